// Package render assembles the final video with ffmpeg: a slideshow of the
// scene images timed to the narration audio, with the static text overlay
// drawn on top and the caption track burned in when enabled.
package render

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/TobiSchelling/LiturgyCast/internal/captions"
	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

// Options controls the encode.
type Options struct {
	FPS          int
	Width        int
	Height       int
	AudioBitrate string
}

// Renderer runs ffmpeg. Progress, when set, receives each ffmpeg stderr
// line as it arrives; the dashboard streams these to the browser.
type Renderer struct {
	Options  Options
	Progress func(line string)
}

// NewRenderer creates a renderer with the given options.
func NewRenderer(opts Options) *Renderer {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Width <= 0 {
		opts.Width = 1080
	}
	if opts.Height <= 0 {
		opts.Height = 1920
	}
	if opts.AudioBitrate == "" {
		opts.AudioBitrate = "192k"
	}
	return &Renderer{Options: opts}
}

// Input describes everything a render needs. Overlay and Captions may be
// nil; the audio duration drives the per-image display time.
type Input struct {
	ImagePaths  []string
	AudioPath   string
	DurationSec float64
	Overlay     *production.OverlayStyle
	Captions    *production.CaptionsArtifact
	WorkDir     string
	OutPath     string
}

// Render produces the video at in.OutPath.
func (r *Renderer) Render(ctx context.Context, in Input) error {
	if len(in.ImagePaths) == 0 {
		return fmt.Errorf("no images to render")
	}
	if in.DurationSec <= 0 {
		return fmt.Errorf("audio duration unavailable")
	}
	if err := os.MkdirAll(in.WorkDir, 0o755); err != nil {
		return fmt.Errorf("creating render workdir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(in.OutPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	listPath := filepath.Join(in.WorkDir, "slides.txt")
	if err := writeConcatList(listPath, in.ImagePaths, in.DurationSec); err != nil {
		return err
	}

	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
			r.Options.Width, r.Options.Height, r.Options.Width, r.Options.Height),
		fmt.Sprintf("fps=%d", r.Options.FPS),
	}
	filters = append(filters, overlayFilters(in.Overlay, r.Options.Height)...)

	if in.Captions != nil && in.Captions.Enabled && len(in.Captions.Segments) > 0 {
		srtPath := filepath.Join(in.WorkDir, "captions.srt")
		if err := captions.WriteSRT(srtPath, in.Captions.Segments); err != nil {
			return fmt.Errorf("writing caption track: %w", err)
		}
		filters = append(filters, subtitlesFilter(srtPath, in.Captions))
	}

	args := []string{
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", in.AudioPath,
		"-vf", strings.Join(filters, ","),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", r.Options.AudioBitrate,
		"-shortest",
		in.OutPath,
	}

	if err := r.runFFmpeg(ctx, args); err != nil {
		return err
	}

	info, err := os.Stat(in.OutPath)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no output at %s", in.OutPath)
	}
	return nil
}

// writeConcatList writes an ffmpeg concat demuxer list. Each image gets an
// equal share of the audio duration; the final image is repeated without a
// duration so the last frame holds until -shortest cuts the stream.
func writeConcatList(path string, images []string, durationSec float64) error {
	perImage := durationSec / float64(len(images))

	var b strings.Builder
	for _, img := range images {
		abs, err := filepath.Abs(img)
		if err != nil {
			abs = img
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
		fmt.Fprintf(&b, "duration %.3f\n", perImage)
	}
	last, err := filepath.Abs(images[len(images)-1])
	if err != nil {
		last = images[len(images)-1]
	}
	fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(last, "'", `'\''`))

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing concat list: %w", err)
	}
	return nil
}

// overlayFilters builds one drawtext filter per overlay line, stacked from
// the configured baseline downward.
func overlayFilters(overlay *production.OverlayStyle, frameHeight int) []string {
	if overlay == nil || len(overlay.Lines) == 0 {
		return nil
	}

	font := overlay.Font
	if font == "" {
		font = "Arial"
	}
	size := overlay.FontSize
	if size <= 0 {
		size = 30
	}
	color := strings.TrimPrefix(overlay.Color, "#")
	if color == "" {
		color = "FFFFFF"
	}
	y := overlay.PositionY
	if y <= 0 || y >= frameHeight {
		y = 150
	}

	lineGap := size + size/3
	filters := make([]string, 0, len(overlay.Lines))
	for i, line := range overlay.Lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		filters = append(filters, fmt.Sprintf(
			"drawtext=font='%s':text='%s':fontsize=%d:fontcolor=0x%s:x=(w-text_w)/2:y=%d",
			escapeDrawtext(font), escapeDrawtext(line), size, color, y+i*lineGap,
		))
	}
	return filters
}

func subtitlesFilter(srtPath string, c *production.CaptionsArtifact) string {
	font := c.Font
	if font == "" {
		font = "Arial"
	}
	size := c.FontSize
	if size <= 0 {
		size = 40
	}
	// libass wants colors as &HBBGGRR.
	color := assColor(c.Color)
	return fmt.Sprintf(
		"subtitles=%s:force_style='FontName=%s,FontSize=%d,PrimaryColour=%s,Alignment=2,MarginV=60'",
		escapeFilterPath(srtPath), font, size, color,
	)
}

// assColor converts "#RRGGBB" into libass "&H00BBGGRR" form.
func assColor(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return "&H0000FFFF" // yellow
	}
	return "&H00" + hex[4:6] + hex[2:4] + hex[0:2]
}

func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return s
}

func escapeFilterPath(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}

func (r *Renderer) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("opening ffmpeg stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	var tail []string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		line := scanner.Text()
		tail = append(tail, line)
		if len(tail) > 20 {
			tail = tail[1:]
		}
		if r.Progress != nil {
			r.Progress(line)
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w\n%s", err, strings.Join(tail, "\n"))
	}
	return nil
}
