package kitabi

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// IsArabicRune reports whether r belongs to one of the Arabic script blocks,
// including presentation forms.
func IsArabicRune(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF,
		r >= 0x0750 && r <= 0x077F,
		r >= 0x08A0 && r <= 0x08FF,
		r >= 0xFB50 && r <= 0xFDFF,
		r >= 0xFE70 && r <= 0xFEFF:
		return true
	}
	return false
}

// ArabicRatio returns the share of Arabic runes among the non-whitespace
// runes of text, and how many non-whitespace runes were counted.
func ArabicRatio(text string) (ratio float64, counted int) {
	var arabic int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		counted++
		if IsArabicRune(r) {
			arabic++
		}
	}
	if counted == 0 {
		return 0, 0
	}
	return float64(arabic) / float64(counted), counted
}

// NormalizeDigits maps Arabic-Indic (U+0660..0669) and Extended Arabic-Indic
// (U+06F0..06F9) digits to ASCII digits.
func NormalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x0660 && r <= 0x0669:
			return '0' + (r - 0x0660)
		case r >= 0x06F0 && r <= 0x06F9:
			return '0' + (r - 0x06F0)
		}
		return r
	}, s)
}

// isNumeric reports whether s consists only of digits in either script,
// with optional separators, and contains at least one digit.
func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range NormalizeDigits(s) {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case unicode.IsSpace(r), r == '.', r == '-', r == '/', r == '–':
		default:
			return false
		}
	}
	return digits > 0
}

// isArabicDiacritic covers harakat, Quranic annotation marks and tatweel.
func isArabicDiacritic(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670 || r == 0x0640 ||
		(r >= 0x06D6 && r <= 0x06ED)
}

var alefForms = runes.Map(func(r rune) rune {
	switch r {
	case 'أ', 'إ', 'آ', 'ٱ':
		return 'ا'
	case 'ى':
		return 'ي'
	}
	return r
})

// NormalizeArabic folds presentation forms to base letters, strips
// diacritics and tatweel, and unifies alef variants. It is meant for
// matching, never for display.
func NormalizeArabic(s string) string {
	t := transform.Chain(norm.NFKC, runes.Remove(runes.Predicate(isArabicDiacritic)), alefForms)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// collapseSpace replaces every run of whitespace with a single space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
