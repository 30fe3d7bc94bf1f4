package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON unmarshals a model reply into v, tolerating the markdown code
// fences (```json ... ```) some models wrap around JSON output even when
// instructed otherwise. A reply that fails to parse after fence stripping is
// returned as an error; re-prompt repair is the caller's concern.
func ParseJSON(content string, v any) error {
	cleaned := StripFences(content)
	if cleaned == "" {
		return fmt.Errorf("llm: parse json: empty response")
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("llm: parse json: %w", err)
	}
	return nil
}

// StripFences removes optional markdown code fences that some models prepend
// and append to JSON output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
