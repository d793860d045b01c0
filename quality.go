package kitabi

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// QualityValidator treats a language verdict outside the supported pair as
// evidence of corrupted text (OCR noise) rather than as a foreign language.
type QualityValidator struct{}

// Validate reports whether v is suspect. Only the raw code matters; the
// model's confidence is ignored.
func (QualityValidator) Validate(v LanguageVerdict) bool {
	return !v.Supported()
}

// Apply zeroes the confidence of a suspect verdict so that routing falls
// back. It returns the adjusted verdict and whether it was suspect.
func (q QualityValidator) Apply(v LanguageVerdict) (LanguageVerdict, bool) {
	if !q.Validate(v) {
		return v, false
	}
	v.Confidence = 0
	return v, true
}

// IsGibberish is a text-level heuristic for broken text layers: too few
// letters, or words whose average length is implausible for natural text.
func IsGibberish(text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	var letters, total, wordRunes int
	for _, f := range fields {
		wordRunes += utf8.RuneCountInString(f)
		for _, r := range f {
			total++
			if unicode.IsLetter(r) || unicode.IsMark(r) {
				letters++
			}
		}
	}
	if float64(letters)/float64(total) < 0.5 {
		return true
	}
	avg := float64(wordRunes) / float64(len(fields))
	return avg < 3 || avg > 15
}
