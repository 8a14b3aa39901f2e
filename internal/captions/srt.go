package captions

import (
	"fmt"
	"os"
	"strings"
)

// FormatSRT renders segments as a SubRip subtitle document.
func FormatSRT(segments []Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(seg.Start), srtTimestamp(seg.End), seg.Text)
	}
	return b.String()
}

// WriteSRT writes segments to path in SubRip format for the renderer.
func WriteSRT(path string, segments []Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("no caption segments to write")
	}
	if err := os.WriteFile(path, []byte(FormatSRT(segments)), 0o644); err != nil {
		return fmt.Errorf("writing subtitle file: %w", err)
	}
	return nil
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int(seconds*1000 + 0.5)
	h := millis / 3600000
	m := millis % 3600000 / 60000
	s := millis % 60000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
