package kitabi

import (
	"math"
	"testing"
)

func TestArabicRatio(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    float64
		counted int
	}{
		{"empty", "", 0, 0},
		{"english", "hello world", 0, 10},
		{"arabic", "مرحبا بالعالم", 1, 12},
		{"mixed", "abcd مرحب", 0.5, 8},
		{"presentation forms", "ﻣﺮﺣﺒﺎ", 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, counted := ArabicRatio(tt.text)
			if math.Abs(got-tt.want) > 1e-9 || counted != tt.counted {
				t.Errorf("ArabicRatio(%q) = (%v, %d), want (%v, %d)", tt.text, got, counted, tt.want, tt.counted)
			}
		})
	}
}

func TestNormalizeDigits(t *testing.T) {
	if got := NormalizeDigits("صفحة ١٢٣ و ۴۵"); got != "صفحة 123 و 45" {
		t.Errorf("NormalizeDigits = %q", got)
	}
}

func TestIsNumeric(t *testing.T) {
	for _, s := range []string{"12", "١٢", " 3 ", "۱۲۳", "1.2", "10-12"} {
		if !isNumeric(s) {
			t.Errorf("isNumeric(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "Chapter 1", "الفصل ١", "..", "IV"} {
		if isNumeric(s) {
			t.Errorf("isNumeric(%q) = true, want false", s)
		}
	}
}

func TestNormalizeArabic(t *testing.T) {
	tests := []struct{ in, want string }{
		{"المُحْتَوَيَات", "المحتويات"},
		{"فهـــرس", "فهرس"},
		{"إسلام", "اسلام"},
		{"ﺍﻟﻤﺤﺘﻮﻳﺎﺕ", "المحتويات"},
	}
	for _, tt := range tests {
		if got := NormalizeArabic(tt.in); got != tt.want {
			t.Errorf("NormalizeArabic(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("مرحبا", 3); got != "مرح" {
		t.Errorf("truncateRunes = %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Errorf("truncateRunes = %q", got)
	}
}
