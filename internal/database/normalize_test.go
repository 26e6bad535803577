package database

import (
	"testing"
	"time"
)

func TestNormalizePersonName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Jan Novak", "jan novak"},
		{"diacritics", "Jan Novák", "jan novak"},
		{"extra whitespace", "  Jan   Novak ", "jan novak"},
		{"mixed case", "JAN novAK", "jan novak"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizePersonName(tc.input)
			if got != tc.expected {
				t.Errorf("NormalizePersonName(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestHashPasswordDeterministic(t *testing.T) {
	h1 := HashPassword("secret")
	h2 := HashPassword("secret")
	if h1 != h2 {
		t.Error("hash should be deterministic")
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(h1))
	}
}

func TestVerifyPassword(t *testing.T) {
	hash := HashPassword("secret")

	if !VerifyPassword(hash, "secret") {
		t.Error("expected matching password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Error("expected mismatched password to fail")
	}
}

func TestDayOf(t *testing.T) {
	// 23:30 at UTC-5 on March 9 is 04:30 UTC on March 10.
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2025, 3, 9, 23, 30, 0, 0, loc)

	day := DayOf(ts)

	if day.Year() != 2025 || day.Month() != 3 || day.Day() != 10 {
		t.Errorf("expected UTC date 2025-03-10, got %v", day)
	}
	if day.Hour() != 0 || day.Minute() != 0 {
		t.Errorf("expected midnight, got %v", day)
	}
}
