package publish

import (
	"context"
	"strings"
	"testing"

	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

type fakeProvider struct {
	response   string
	configured bool
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return f.response, nil
}

func (f *fakeProvider) IsConfigured() bool { return f.configured }

func TestSuggestMetadata(t *testing.T) {
	provider := &fakeProvider{
		configured: true,
		response: `{
			"title": "O Evangelho de hoje #shorts",
			"description": "Jesus em Nazaré. #liturgia #evangelho",
			"suggestions": "Post before 7am."
		}`,
	}

	md, err := SuggestMetadata(context.Background(), provider, &production.ScriptArtifact{Title: "T", Commentary: "C"}, 512)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md.Title != "O Evangelho de hoje #shorts" {
		t.Errorf("unexpected title %q", md.Title)
	}
	if md.Suggestions == "" {
		t.Error("expected suggestions to carry through")
	}
}

func TestSuggestMetadataFallbackWithoutProvider(t *testing.T) {
	script := &production.ScriptArtifact{Title: "Jesus em Nazaré", Hook: "Fique até o fim."}

	md, err := SuggestMetadata(context.Background(), nil, script, 512)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md.Title, "Jesus em Nazaré") {
		t.Errorf("fallback must use the script title, got %q", md.Title)
	}
	if !strings.Contains(strings.ToLower(md.Title), "#shorts") {
		t.Errorf("fallback title must carry the shorts tag, got %q", md.Title)
	}
	if !strings.Contains(md.Description, "Fique até o fim.") {
		t.Errorf("fallback description must use the hook, got %q", md.Description)
	}
}

func TestSuggestMetadataFallbackOnEmptyTitle(t *testing.T) {
	provider := &fakeProvider{configured: true, response: `{"title": "", "description": ""}`}
	script := &production.ScriptArtifact{Title: "Base Title"}

	md, err := SuggestMetadata(context.Background(), provider, script, 512)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md.Title, "Base Title") {
		t.Errorf("expected fallback on empty LLM title, got %q", md.Title)
	}
}

func TestUploadRequiresCredentials(t *testing.T) {
	u := &Uploader{}
	_, err := u.Upload(context.Background(), "video.mp4", &Metadata{Title: "T"})
	if err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Errorf("expected credentials error, got %v", err)
	}
}

func TestCredentialsComplete(t *testing.T) {
	if (Credentials{}).complete() {
		t.Error("empty credentials must be incomplete")
	}
	full := Credentials{ClientID: "a", ClientSecret: "b", RefreshToken: "c"}
	if !full.complete() {
		t.Error("full credentials must be complete")
	}
	if (Credentials{ClientID: "a", ClientSecret: "b"}).complete() {
		t.Error("missing refresh token must be incomplete")
	}
}
