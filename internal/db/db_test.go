package db

import "testing"

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Manager@Example.com", "manager@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"already@lower.io", "already@lower.io"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeEmail(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeEmail(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}
