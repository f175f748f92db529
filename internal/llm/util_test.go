package llm

import "testing"

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain json", `{"levels": []}`, `{"levels": []}`},
		{"json fence", "```json\n{\"levels\": []}\n```", `{"levels": []}`},
		{"bare fence", "```\n{\"levels\": []}\n```", `{"levels": []}`},
		{"fence with language", "```javascript\n{\"a\": 1}\n```", `{"a": 1}`},
		{"whitespace", "  \n{\"a\": 1}\n  ", `{"a": 1}`},
		{"fence no newline", "```json{\"a\": 1}```", `{"a": 1}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}
