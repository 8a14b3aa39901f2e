package images

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	payload := bytes.Repeat([]byte{0xFF}, 4096)
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("width") != "1080" || r.URL.Query().Get("height") != "1920" {
			t.Errorf("unexpected dimensions: %s", r.URL.RawQuery)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "flux")
	data, err := client.Generate(context.Background(), "a quiet sunrise", "9:16", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("expected %d bytes, got %d", len(payload), len(data))
	}
	if !strings.HasPrefix(gotPath, "/prompt/") {
		t.Errorf("unexpected request path %q", gotPath)
	}
}

func TestGenerateRejectsTinyPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>error page</html>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "flux")
	client.retryDelay = time.Millisecond
	if _, err := client.Generate(context.Background(), "prompt", "9:16", 1); err == nil {
		t.Error("expected error for a payload too small to be an image")
	}
}

func TestGenerateToDir(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "images")
	client := NewClient(srv.URL, "flux")
	paths, err := client.GenerateToDir(context.Background(), []string{"one", "two"}, "9:16", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	for i, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("image %d not written: %v", i, err)
		}
		if info.Size() != int64(len(payload)) {
			t.Errorf("image %d has size %d", i, info.Size())
		}
	}
	if paths[0] == paths[1] {
		t.Error("expected unique file names")
	}
	if !strings.Contains(filepath.Base(paths[0]), "scene_01") {
		t.Errorf("expected ordered scene names, got %q", filepath.Base(paths[0]))
	}
}

func TestAspectDimensions(t *testing.T) {
	cases := map[string][2]int{
		"9:16":  {1080, 1920},
		"16:9":  {1920, 1080},
		"1:1":   {1080, 1080},
		"weird": {1080, 1920},
	}
	for aspect, want := range cases {
		w, h := aspectDimensions(aspect)
		if w != want[0] || h != want[1] {
			t.Errorf("aspectDimensions(%q) = %dx%d, want %dx%d", aspect, w, h, want[0], want[1])
		}
	}
}
