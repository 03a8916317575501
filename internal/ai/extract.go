package ai

import (
	"encoding/json"
	"sort"
	"strings"
)

// ExtractJSONObject returns the first balanced top-level JSON object
// embedded in s, or "" when none exists. Models wrap JSON in prose and
// markdown fences often enough that a plain json.Unmarshal of the whole
// response is unreliable; walking braces with string awareness is.
func ExtractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// ExtractText pulls usable narrative text out of a model response.
// Strategies are tried in order:
//  1. responses without a JSON object are used verbatim (trimmed);
//  2. a JSON object with a "text", "content" or "story" field wins;
//  3. otherwise the first string value found in the object;
//  4. otherwise the trimmed raw response.
func ExtractText(response string) string {
	trimmed := strings.TrimSpace(response)

	obj := ExtractJSONObject(trimmed)
	if obj == "" {
		return trimmed
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return trimmed
	}

	for _, key := range []string{"text", "content", "story"} {
		if raw, ok := fields[key]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		var s string
		if err := json.Unmarshal(fields[key], &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}

	return trimmed
}
