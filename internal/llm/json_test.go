package llm

import "testing"

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced no lang", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\": 1}\n```\n  ", `{"a": 1}`},
	}
	for _, c := range cases {
		if got := StripCodeFences(c.in); got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestDecodeJSONResponse(t *testing.T) {
	var out struct {
		Title string `json:"title"`
	}
	if err := DecodeJSONResponse("```json\n{\"title\": \"Hello\"}\n```", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Title != "Hello" {
		t.Errorf("expected Hello, got %q", out.Title)
	}
}

func TestDecodeJSONResponseInvalid(t *testing.T) {
	var out map[string]any
	if err := DecodeJSONResponse("not json at all", &out); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestDecodeJSONResponseEmpty(t *testing.T) {
	var out map[string]any
	if err := DecodeJSONResponse("   ", &out); err == nil {
		t.Error("expected error for empty response")
	}
}
