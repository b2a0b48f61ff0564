package logparse

import "testing"

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// Standard forms
		{"TRACE", "TRACE"}, {"DEBUG", "DEBUG"}, {"INFO", "INFO"},
		{"WARN", "WARN"}, {"ERROR", "ERROR"},
		// Variants
		{"TRAC", "TRACE"}, {"TRC", "TRACE"}, {"FINEST", "TRACE"},
		{"DEBU", "DEBUG"}, {"DBG", "DEBUG"}, {"FINE", "DEBUG"},
		{"INFORMATION", "INFO"}, {"INF", "INFO"},
		{"WARNING", "WARN"}, {"WRN", "WARN"},
		{"ERR", "ERROR"}, {"ERRO", "ERROR"},
		// Above ERROR collapses onto ERROR
		{"FATAL", "ERROR"}, {"CRITICAL", "ERROR"}, {"PANIC", "ERROR"}, {"SEVERE", "ERROR"},
		// Case insensitive
		{"info", "INFO"}, {"warn", "WARN"}, {"debug", "DEBUG"},
		// Prefix matching
		{"WARNING_LEVEL", "WARN"}, {"ERROR_CODE_42", "ERROR"}, {"FATAL_CRASH", "ERROR"},
		// Unknown defaults to INFO
		{"", "INFO"}, {"UNKNOWN", "INFO"},
		// Whitespace
		{"  INFO  ", "INFO"}, {"\tWARN\t", "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeSeverity(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeSeverity(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractSeverityFromText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2024-01-01 INFO Starting server", "INFO"},
		{"ERROR: connection refused", "ERROR"},
		{"[WARN] disk usage high", "WARN"},
		{"FATAL out of memory", "ERROR"},
		{"TRACE entering function", "TRACE"},
		{"WARNING deprecated API", "WARN"},
		{"no severity here", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ExtractSeverityFromText(tt.input)
			if got != tt.expected {
				t.Errorf("ExtractSeverityFromText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNumericSeverity(t *testing.T) {
	for level, want := range map[int]string{10: "TRACE", 20: "DEBUG", 30: "INFO", 40: "WARN", 50: "ERROR", 60: "ERROR", 35: "INFO"} {
		if got := NumericSeverity(level); got != want {
			t.Errorf("NumericSeverity(%d) = %q, want %q", level, got, want)
		}
	}
}
