package kitabi

import (
	"strings"
	"unicode/utf8"
)

// LanguageIdentifier turns sampled text into a LanguageVerdict.
type LanguageIdentifier struct {
	model LanguageModel
	cfg   Config
}

// NewLanguageIdentifier wraps m.
func NewLanguageIdentifier(m LanguageModel, cfg Config) *LanguageIdentifier {
	return &LanguageIdentifier{model: m, cfg: cfg}
}

// Identify normalises whitespace, truncates the sample and asks the model.
// A code outside {ar, en} gets the unsupported sentinel confidence whatever
// the model reported. Empty text is treated the same way.
func (li *LanguageIdentifier) Identify(text string) LanguageVerdict {
	sample := PrepareSample(text, li.cfg.LanguageSampleChars)
	v := LanguageVerdict{
		Language:        English,
		Confidence:      li.cfg.UnsupportedConfidence,
		SampleCharCount: utf8.RuneCountInString(sample),
	}
	if sample == "" {
		return v
	}

	label, conf := li.model.Predict(sample)
	v.RawCode = strings.ToLower(strings.TrimSpace(label))
	if lang, ok := languageFromCode(v.RawCode); ok {
		v.Language = lang
		v.Confidence = min(max(conf, 0), 1)
	}
	return v
}

// PrepareSample collapses whitespace and keeps at most n runes.
func PrepareSample(text string, n int) string {
	return truncateRunes(collapseSpace(text), n)
}
