package captions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSRTTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.042, "00:01:01,042"},
		{3723.999, "01:02:03,999"},
		{-2, "00:00:00,000"},
	}
	for _, c := range cases {
		if got := srtTimestamp(c.seconds); got != c.want {
			t.Errorf("srtTimestamp(%f) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestFormatSRT(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 1.5, Text: "Hello world."},
		{Start: 1.5, End: 3, Text: "Goodbye."},
	}
	out := FormatSRT(segments)

	if !strings.HasPrefix(out, "1\n00:00:00,000 --> 00:00:01,500\nHello world.\n\n") {
		t.Errorf("unexpected first cue:\n%s", out)
	}
	if !strings.Contains(out, "2\n00:00:01,500 --> 00:00:03,000\nGoodbye.\n\n") {
		t.Errorf("unexpected second cue:\n%s", out)
	}
}

func TestWriteSRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.srt")
	segments := []Segment{{Start: 0, End: 2, Text: "Line"}}

	if err := WriteSRT(path, segments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if !strings.Contains(string(data), "Line") {
		t.Error("expected cue text in written file")
	}
}

func TestWriteSRTEmpty(t *testing.T) {
	if err := WriteSRT(filepath.Join(t.TempDir(), "x.srt"), nil); err == nil {
		t.Error("expected error for empty segments")
	}
}
