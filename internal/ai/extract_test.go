package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare object",
			input:    `{"text": "hello"}`,
			expected: `{"text": "hello"}`,
		},
		{
			name:     "object wrapped in prose",
			input:    "Sure! Here is the result:\n{\"text\": \"hello\"}\nLet me know if you need more.",
			expected: `{"text": "hello"}`,
		},
		{
			name:     "markdown fence",
			input:    "```json\n{\"pages\": [{\"pageNumber\": 1}]}\n```",
			expected: `{"pages": [{"pageNumber": 1}]}`,
		},
		{
			name:     "braces inside strings",
			input:    `{"text": "use {curly} braces and a \" quote"}`,
			expected: `{"text": "use {curly} braces and a \" quote"}`,
		},
		{
			name:     "nested objects",
			input:    `prefix {"a": {"b": {"c": 1}}} suffix`,
			expected: `{"a": {"b": {"c": 1}}}`,
		},
		{
			name:     "no object",
			input:    "just a plain sentence",
			expected: "",
		},
		{
			name:     "unbalanced",
			input:    `{"text": "never closed`,
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractJSONObject(tc.input))
		})
	}
}

func TestExtractText(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text used verbatim",
			input:    "  Mia smiled at the friendly dog.  ",
			expected: "Mia smiled at the friendly dog.",
		},
		{
			name:     "text field wins",
			input:    `{"text": "From the text field", "content": "not this"}`,
			expected: "From the text field",
		},
		{
			name:     "content field second",
			input:    `{"content": "From the content field"}`,
			expected: "From the content field",
		},
		{
			name:     "story field third",
			input:    `{"story": "From the story field"}`,
			expected: "From the story field",
		},
		{
			name:     "first string value as fallback",
			input:    `{"answer": "From some other field"}`,
			expected: "From some other field",
		},
		{
			name:     "no string values falls back to raw",
			input:    `{"count": 3}`,
			expected: `{"count": 3}`,
		},
		{
			name:     "invalid json falls back to raw",
			input:    `{"text": broken}`,
			expected: `{"text": broken}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractText(tc.input))
		})
	}
}
