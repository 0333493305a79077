// Package jsonx provides best-effort structured extraction from free-form
// LLM output. Models routinely wrap the requested JSON object in commentary
// or markdown fences; extraction scans for the first balanced
// brace-delimited object and parses that substring.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject reports that no balanced JSON object was found in the text.
var ErrNoObject = errors.New("no json object found")

// ExtractObject locates the first top-level brace-delimited JSON object
// inside text and unmarshals it into v. It never panics past its boundary:
// the failure modes are ErrNoObject (nothing brace-delimited) and a wrapped
// unmarshal error, so callers can apply a uniform fallback policy.
func ExtractObject(text string, v any) error {
	obj, ok := firstObject(text)
	if !ok {
		return ErrNoObject
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v", ErrNoObject, err)
	}
	return nil
}

// firstObject returns the first balanced {...} substring, skipping brace
// characters that appear inside JSON string literals.
func firstObject(text string) (string, bool) {
	text = stripFences(text)
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// stripFences removes markdown code-fence markers around the payload.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
