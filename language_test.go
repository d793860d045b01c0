package kitabi

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// recordingModel remembers the text it was asked about.
type recordingModel struct {
	label string
	conf  float64
	seen  string
}

func (m *recordingModel) Predict(text string) (string, float64) {
	m.seen = text
	return m.label, m.conf
}

func TestIdentifySupported(t *testing.T) {
	li := NewLanguageIdentifier(fixedModel{label: " AR ", conf: 0.93}, DefaultConfig())
	v := li.Identify("نص عربي")
	if v.Language != Arabic || v.Confidence != 0.93 || v.RawCode != "ar" {
		t.Errorf("verdict = %+v, want ar at 0.93", v)
	}
}

func TestIdentifyUnsupportedGetsSentinel(t *testing.T) {
	for _, conf := range []float64{0.01, 0.55, 0.99} {
		li := NewLanguageIdentifier(fixedModel{label: "fr", conf: conf}, DefaultConfig())
		v := li.Identify("bonjour tout le monde")
		if v.Confidence != 0.5 {
			t.Errorf("model confidence %g: verdict confidence = %g, want 0.5", conf, v.Confidence)
		}
		if v.RawCode != "fr" || v.Language != English {
			t.Errorf("verdict = %+v, want raw fr mapped to english", v)
		}
	}
}

func TestIdentifyEmpty(t *testing.T) {
	m := &recordingModel{label: "en", conf: 1}
	v := NewLanguageIdentifier(m, DefaultConfig()).Identify(" \n\t ")
	if v.RawCode != "" || v.Confidence != 0.5 || v.SampleCharCount != 0 {
		t.Errorf("verdict = %+v, want empty sentinel", v)
	}
	if m.seen != "" {
		t.Error("model must not be called for empty text")
	}
}

func TestIdentifyTruncatesSample(t *testing.T) {
	m := &recordingModel{label: "en", conf: 0.95}
	text := strings.Repeat("word   and\n\nmore ", 500)
	v := NewLanguageIdentifier(m, DefaultConfig()).Identify(text)

	if n := utf8.RuneCountInString(m.seen); n != 1000 {
		t.Errorf("model saw %d runes, want 1000", n)
	}
	if strings.Contains(m.seen, "  ") || strings.Contains(m.seen, "\n") {
		t.Error("whitespace must be collapsed before truncation")
	}
	if v.SampleCharCount != 1000 {
		t.Errorf("sample chars = %d, want 1000", v.SampleCharCount)
	}
}

func TestIdentifyClampsConfidence(t *testing.T) {
	v := NewLanguageIdentifier(fixedModel{label: "en", conf: 1.7}, DefaultConfig()).Identify("hello there")
	if v.Confidence != 1 {
		t.Errorf("confidence = %g, want 1", v.Confidence)
	}
}
