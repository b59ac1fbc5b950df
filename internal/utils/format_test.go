package utils

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"milliseconds", 45 * time.Millisecond, "45ms"},
		{"one second", time.Second, "1.0s"},
		{"seconds with decimal", 1500 * time.Millisecond, "1.5s"},
		{"one minute", time.Minute, "1m"},
		{"minutes and seconds", 2*time.Minute + 30*time.Second, "2m 30s"},
		{"hours and minutes", time.Hour + 15*time.Minute, "1h 15m"},
		{"just hours", 2 * time.Hour, "2h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.duration); got != tt.expected {
				t.Errorf("FormatDuration(%v) = %s; want %s", tt.duration, got, tt.expected)
			}
		})
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		at       time.Time
		expected string
	}{
		{"zero", time.Time{}, "-"},
		{"now", now, "just now"},
		{"past", now.Add(-5 * time.Minute), "5m ago"},
		{"sub-second noise dropped", now.Add(-90*time.Second - 300*time.Millisecond), "1m 30s ago"},
		{"future", now.Add(2 * time.Hour), "in 2h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAge(tt.at, now); got != tt.expected {
				t.Errorf("FormatAge() = %q; want %q", got, tt.expected)
			}
		})
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxLen   int
		expected string
	}{
		{"short", "disk full", 20, "disk full"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "High CPU usage on web-01", 10, "High CP..."},
		{"newlines flattened", "line one\nline two", 30, "line one line two"},
		{"tiny limit", "hello world", 2, "..."},
		{"multibyte", "Überlastung", 6, "Übe..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateText(tt.text, tt.maxLen); got != tt.expected {
				t.Errorf("TruncateText(%q, %d) = %q; want %q", tt.text, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestGetLastNLines(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		n        int
		expected string
	}{
		{"fewer lines", "a\nb", 5, "a\nb"},
		{"exact", "a\nb\nc", 3, "a\nb\nc"},
		{"tail", "a\nb\nc\nd", 2, "c\nd"},
		{"empty", "", 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetLastNLines(tt.text, tt.n); got != tt.expected {
				t.Errorf("GetLastNLines(%q, %d) = %q; want %q", tt.text, tt.n, got, tt.expected)
			}
		})
	}
}
