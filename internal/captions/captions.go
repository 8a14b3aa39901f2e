// Package captions partitions narration text into display-sized segments and
// times them against a known audio duration. There is no speech recognition
// involved: each segment gets a share of the total duration proportional to
// its character length. Very short segments can flash briefly on screen;
// that is accepted behavior for this tool.
package captions

import (
	"errors"
	"strings"
)

// DefaultMaxWords is the default word limit per caption segment.
const DefaultMaxWords = 3

// ErrDurationUnavailable is returned when the audio duration is missing or
// not positive. Callers must not mark the captions stage complete.
var ErrDurationUnavailable = errors.New("audio duration unavailable")

// Segment is a timed span of narration text. Segments in a sequence are
// contiguous: each starts exactly where the previous one ended.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Duration returns the display time of the segment in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Synchronize splits text into caption segments covering [0, durationSec].
// maxWords caps the words per segment; sentence-final punctuation closes a
// segment early, and a pause mark (comma, colon, semicolon) closes it once
// the segment holds at least two words. If maxWords is not positive the
// default is used.
func Synchronize(text string, durationSec float64, maxWords int) ([]Segment, error) {
	if durationSec <= 0 {
		return nil, ErrDurationUnavailable
	}
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}

	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil, nil
	}

	var texts []string
	for _, sentence := range splitSentences(normalized) {
		texts = append(texts, groupWords(sentence, maxWords)...)
	}

	total := 0
	weights := make([]int, len(texts))
	for i, t := range texts {
		weights[i] = len([]rune(t))
		total += weights[i]
	}
	if total == 0 {
		return nil, nil
	}

	// Lay segments end to end; each end is computed from the cumulative
	// weight so the last segment lands exactly on durationSec.
	segments := make([]Segment, len(texts))
	cumulative := 0
	start := 0.0
	for i, t := range texts {
		cumulative += weights[i]
		end := float64(cumulative) / float64(total) * durationSec
		segments[i] = Segment{Start: start, End: end, Text: t}
		start = end
	}
	return segments, nil
}

// splitSentences breaks text on sentence-final punctuation followed by a
// space, keeping the punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	begin := 0
	for i := 0; i < len(runes)-1; i++ {
		if isSentenceEnd(runes[i]) && runes[i+1] == ' ' {
			sentences = append(sentences, string(runes[begin:i+1]))
			begin = i + 2
		}
	}
	if begin < len(runes) {
		sentences = append(sentences, string(runes[begin:]))
	}
	return sentences
}

// groupWords greedily accumulates a sentence's words into segments.
func groupWords(sentence string, maxWords int) []string {
	var out []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
		}
	}

	for _, word := range strings.Fields(sentence) {
		current = append(current, word)
		last, _ := lastRune(word)
		switch {
		case len(current) >= maxWords:
			flush()
		case isSentenceEnd(last):
			flush()
		case isPauseMark(last) && len(current) >= 2:
			flush()
		}
	}
	flush()
	return out
}

func lastRune(s string) (rune, bool) {
	var r rune
	found := false
	for _, c := range s {
		r = c
		found = true
	}
	return r, found
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isPauseMark(r rune) bool {
	return r == ',' || r == ':' || r == ';'
}
