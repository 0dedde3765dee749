package generator

import "strings"

// extractJSON pulls a JSON object out of a model response that may wrap it
// in markdown code fences or surrounding prose. Returns the input unchanged
// when no object can be located, leaving the failure to json.Unmarshal.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	// Strip markdown code fences (```json ... ``` or ``` ... ```).
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	s = strings.TrimSpace(s)

	// Slice from the first { to the last }.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}
