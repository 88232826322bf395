package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{"unset uses default", "", true, true},
		{"true", "true", false, true},
		{"numeric one", "1", false, true},
		{"yes mixed case", "YeS", false, true},
		{"on with spaces", "  on ", false, true},
		{"false", "false", true, false},
		{"off", "off", true, false},
		{"invalid uses default", "maybe", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("POSTPIPE_TEST_BOOL", tt.value)
			if got := ParseBoolEnv("POSTPIPE_TEST_BOOL", tt.def); got != tt.expected {
				t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
			}
		})
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"24h", 24 * time.Hour},
		{"0", 0},
		{"soon", time.Minute},
		{"-5s", time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("POSTPIPE_TEST_DURATION", tt.value)
		if got := ParseDurationEnv("POSTPIPE_TEST_DURATION", time.Minute); got != tt.expected {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("POSTPIPE_TEST_INT", "12")
	if got := ParseIntEnv("POSTPIPE_TEST_INT", 3); got != 12 {
		t.Errorf("got %d, want 12", got)
	}
	t.Setenv("POSTPIPE_TEST_INT", "twelve")
	if got := ParseIntEnv("POSTPIPE_TEST_INT", 3); got != 3 {
		t.Errorf("invalid value: got %d, want default 3", got)
	}
	t.Setenv("POSTPIPE_TEST_INT", "")
	if got := ParseIntEnv("POSTPIPE_TEST_INT", 3); got != 3 {
		t.Errorf("unset value: got %d, want default 3", got)
	}
}
