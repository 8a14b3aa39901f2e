package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripCodeFences removes a surrounding markdown code fence, if present.
// LLMs frequently wrap JSON responses in ```json blocks.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.Join(lines[1:endIdx], "\n")
}

// DecodeJSONResponse parses an LLM response into v, tolerating markdown
// code fences around the JSON document.
func DecodeJSONResponse(text string, v any) error {
	text = StripCodeFences(text)
	if text == "" {
		return fmt.Errorf("empty LLM response")
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("parsing LLM response as JSON: %w", err)
	}
	return nil
}
