package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNoJSON = errors.New("no JSON found in model output")

	fencePattern = regexp.MustCompile("(?i)```(?:json|html)?\\s*")
	jsonPattern  = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)
)

// CleanModelOutput strips markdown code fences and surrounding whitespace.
func CleanModelOutput(text string) string {
	text = fencePattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// ExtractJSON decodes the widest {...} or [...] span of text into v.
func ExtractJSON(text string, v any) error {
	match := jsonPattern.FindString(CleanModelOutput(text))
	if match == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(match), v)
}
