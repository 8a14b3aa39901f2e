package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

func TestWriteConcatList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.txt")
	images := []string{"/img/a.jpg", "/img/b.jpg", "/img/c.jpg"}

	if err := writeConcatList(path, images, 30.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading list: %v", err)
	}
	content := string(data)

	// Three timed entries plus the trailing repeat of the last image.
	if got := strings.Count(content, "file '"); got != 4 {
		t.Errorf("expected 4 file lines, got %d:\n%s", got, content)
	}
	if got := strings.Count(content, "duration 10.000"); got != 3 {
		t.Errorf("expected 3 equal durations, got %d:\n%s", got, content)
	}
	if !strings.HasSuffix(strings.TrimSpace(content), "file '/img/c.jpg'") {
		t.Errorf("list must end with the last image repeated:\n%s", content)
	}
}

func TestOverlayFilters(t *testing.T) {
	overlay := &production.OverlayStyle{
		Lines:     []string{"Evangelho", "Sep 01, 2026"},
		Font:      "Arial",
		FontSize:  30,
		PositionY: 150,
		Color:     "#FFFFFF",
	}

	filters := overlayFilters(overlay, 1920)
	if len(filters) != 2 {
		t.Fatalf("expected one filter per line, got %d", len(filters))
	}
	if !strings.Contains(filters[0], "drawtext") || !strings.Contains(filters[0], "Evangelho") {
		t.Errorf("unexpected filter: %q", filters[0])
	}
	if !strings.Contains(filters[0], "y=150") {
		t.Errorf("first line must sit at the configured baseline: %q", filters[0])
	}
	if strings.Contains(filters[1], "y=150") {
		t.Errorf("second line must be offset below the first: %q", filters[1])
	}
}

func TestOverlayFiltersEmpty(t *testing.T) {
	if got := overlayFilters(nil, 1920); got != nil {
		t.Errorf("nil overlay must produce no filters, got %v", got)
	}
	if got := overlayFilters(&production.OverlayStyle{}, 1920); got != nil {
		t.Errorf("empty overlay must produce no filters, got %v", got)
	}
}

func TestEscapeDrawtext(t *testing.T) {
	got := escapeDrawtext("Sl 95: Cantai 100%")
	if !strings.Contains(got, `\:`) {
		t.Errorf("colon not escaped: %q", got)
	}
	if !strings.Contains(got, `\%`) {
		t.Errorf("percent not escaped: %q", got)
	}
}

func TestAssColor(t *testing.T) {
	// libass uses BGR ordering.
	if got := assColor("#FFFF00"); got != "&H0000FFFF" {
		t.Errorf("assColor(#FFFF00) = %q", got)
	}
	if got := assColor("#FF0000"); got != "&H000000FF" {
		t.Errorf("assColor(#FF0000) = %q", got)
	}
	if got := assColor("bogus"); got != "&H0000FFFF" {
		t.Errorf("invalid colors fall back to yellow, got %q", got)
	}
}

func TestSubtitlesFilter(t *testing.T) {
	filter := subtitlesFilter("/tmp/c.srt", &production.CaptionsArtifact{
		Font:     "Arial",
		FontSize: 40,
		Color:    "#FFFF00",
	})
	if !strings.Contains(filter, "subtitles=") {
		t.Errorf("unexpected filter: %q", filter)
	}
	if !strings.Contains(filter, "FontSize=40") {
		t.Errorf("font size missing: %q", filter)
	}
	if !strings.Contains(filter, "&H0000FFFF") {
		t.Errorf("color not converted: %q", filter)
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	r := NewRenderer(Options{})

	err := r.Render(context.Background(), Input{AudioPath: "a.wav", DurationSec: 10})
	if err == nil || !strings.Contains(err.Error(), "no images") {
		t.Errorf("expected no-images error, got %v", err)
	}

	err = r.Render(context.Background(), Input{ImagePaths: []string{"a.jpg"}, AudioPath: "a.wav"})
	if err == nil || !strings.Contains(err.Error(), "duration") {
		t.Errorf("expected duration error, got %v", err)
	}
}

func TestNewRendererDefaults(t *testing.T) {
	r := NewRenderer(Options{})
	if r.Options.FPS != 30 || r.Options.Width != 1080 || r.Options.Height != 1920 {
		t.Errorf("unexpected defaults: %+v", r.Options)
	}
	if r.Options.AudioBitrate != "192k" {
		t.Errorf("unexpected default bitrate %q", r.Options.AudioBitrate)
	}
}
