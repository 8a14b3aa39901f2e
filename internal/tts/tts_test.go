package tts

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine("", "model.onnx")
	if e.Binary != "piper" {
		t.Errorf("expected default binary piper, got %q", e.Binary)
	}
}

func TestVerifyMissingBinary(t *testing.T) {
	e := NewEngine("definitely-not-a-real-binary-name", "model.onnx")
	if err := e.Verify(); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestSynthesizeEmptyText(t *testing.T) {
	e := NewEngine("piper", "model.onnx")
	out := filepath.Join(t.TempDir(), "out.wav")
	_, err := e.Synthesize(context.Background(), "   \n ", out)
	if err == nil || !strings.Contains(err.Error(), "empty text") {
		t.Errorf("expected empty-text error, got %v", err)
	}
}
