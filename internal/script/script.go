package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/TobiSchelling/LiturgyCast/internal/llm"
	"github.com/TobiSchelling/LiturgyCast/internal/production"
)

const scriptPrompt = `You write narration scripts for short vertical videos narrating the daily Catholic liturgy ("Bíblia Narrada" style). Write in the language of the readings. The tone is warm, reverent and direct; the video is under two minutes.

Today is %s (%s). The focus reading is the %s.

THE READINGS:
%s

Respond with ONLY this JSON:
{
    "title": "a short, compelling video title",
    "hook": "an opening line that makes the viewer stay",
    "commentary": "the focus reading retold as flowing narration, brief explanations woven in",
    "reflection": "one practical application for life today",
    "closing_prayer": "a short closing prayer"
}`

// Generator produces narration scripts from a day's readings.
type Generator struct {
	provider  llm.Provider
	maxTokens int
}

// NewGenerator creates a script generator.
func NewGenerator(provider llm.Provider, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{provider: provider, maxTokens: maxTokens}
}

// Generate writes a script for the reading of the given kind. The whole
// reading set is given as context; the named reading is the focus.
func (g *Generator) Generate(ctx context.Context, rs *production.ReadingSet, kind string) (*production.ScriptArtifact, error) {
	if g.provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}
	if rs.FindReading(kind) == nil {
		return nil, fmt.Errorf("reading %q not in set for %s", kind, rs.Date)
	}

	prompt := fmt.Sprintf(scriptPrompt, rs.Date, rs.DayName, kind, readingsBlock(rs))

	response, err := g.provider.Generate(ctx, prompt, g.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating script: %w", err)
	}

	var artifact production.ScriptArtifact
	if err := llm.DecodeJSONResponse(response, &artifact); err != nil {
		return nil, err
	}
	if strings.TrimSpace(artifact.Narration()) == "" {
		return nil, fmt.Errorf("script response has no narration content")
	}
	return &artifact, nil
}

// readingsBlock formats all readings for the prompt, focus marked by kind.
func readingsBlock(rs *production.ReadingSet) string {
	var b strings.Builder
	for _, r := range rs.Readings {
		fmt.Fprintf(&b, "%s (%s):\n%s\n\n", r.Kind, r.Reference, r.Text)
	}
	return strings.TrimSpace(b.String())
}

// ImagePrompts derives one image-generation prompt per scene from a script.
// Scenes follow the script blocks so the visuals track the narration.
func ImagePrompts(artifact *production.ScriptArtifact, count int) []string {
	themes := []string{
		"opening scene, dramatic sky over an ancient landscape",
		"biblical scene, figures in period dress, warm light",
		"quiet contemplative scene, symbolic detail, soft focus",
		"hopeful closing scene, sunrise over hills",
	}

	base := strings.TrimSpace(artifact.Title)
	if base == "" {
		base = firstSentence(artifact.Commentary)
	}

	if count <= 0 {
		count = len(themes)
	}
	prompts := make([]string, 0, count)
	for i := 0; i < count; i++ {
		theme := themes[i%len(themes)]
		prompts = append(prompts, fmt.Sprintf("%s, %s, cinematic, vertical composition, no text", base, theme))
	}
	return prompts
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	return text
}
