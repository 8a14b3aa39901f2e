// Package tts synthesizes narration audio with a local piper binary and
// measures the result with ffprobe.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Engine runs piper as a subprocess: narration text on stdin, WAV on disk.
type Engine struct {
	Binary    string
	ModelPath string
}

// NewEngine creates a piper TTS engine.
func NewEngine(binary, modelPath string) *Engine {
	if binary == "" {
		binary = "piper"
	}
	return &Engine{Binary: binary, ModelPath: modelPath}
}

// Verify checks that the piper binary and the voice model are available.
func (e *Engine) Verify() error {
	if _, err := exec.LookPath(e.Binary); err != nil {
		return fmt.Errorf("piper binary %q not found in PATH: %w", e.Binary, err)
	}
	if _, err := os.Stat(e.ModelPath); err != nil {
		return fmt.Errorf("voice model not found: %s", e.ModelPath)
	}
	return nil
}

// Synthesize speaks text into a WAV file at outPath and returns its duration
// in seconds.
func (e *Engine) Synthesize(ctx context.Context, text, outPath string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("nothing to synthesize: empty text")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating audio directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.Binary,
		"--model", e.ModelPath,
		"--output_file", outPath,
	)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("piper failed: %w\n%s", err, strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		return 0, fmt.Errorf("piper produced no audio at %s", outPath)
	}

	duration, err := Duration(ctx, outPath)
	if err != nil {
		return 0, err
	}
	return duration, nil
}

// Duration returns a media file's duration in seconds via ffprobe.
func Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe on %s: %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("ffprobe reported non-positive duration for %s", path)
	}
	return duration, nil
}
