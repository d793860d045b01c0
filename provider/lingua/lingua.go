// Package lingua implements kitabi.LanguageModel with lingua-go.
//
// The detector is built over a candidate set wider than the two languages
// kitabi extracts. Corrupted text then tends to come out as one of the other
// candidates, which is the signal the quality check looks for.
package lingua

import (
	"fmt"
	"strings"

	"github.com/nevindra/kitabi"
	"github.com/pemistahl/lingua-go"
)

// DefaultLanguages are the ISO 639-1 codes the detector chooses between.
// Persian and Urdu share the Arabic script; the Latin-script languages catch
// noisy English text layers.
var DefaultLanguages = []string{"ar", "en", "fa", "ur", "fr", "de", "es", "id", "ms", "tr"}

// Model wraps a lingua detector. It is read-only after New and safe for
// concurrent use.
type Model struct {
	detector  lingua.LanguageDetector
	languages []string
}

// Option configures a Model.
type Option func(*options)

type options struct {
	languages   []string
	lowAccuracy bool
	preload     bool
	minDistance float64
}

// WithLanguages replaces DefaultLanguages. At least two codes are required.
func WithLanguages(codes ...string) Option {
	return func(o *options) { o.languages = codes }
}

// WithLowAccuracyMode trades accuracy on short text for speed and memory.
func WithLowAccuracyMode() Option {
	return func(o *options) { o.lowAccuracy = true }
}

// WithPreloadedModels loads every language model up front instead of on
// first use.
func WithPreloadedModels() Option {
	return func(o *options) { o.preload = true }
}

// WithMinimumRelativeDistance makes the detector return no language when
// the top two candidates are closer than d (0..0.99).
func WithMinimumRelativeDistance(d float64) Option {
	return func(o *options) { o.minDistance = d }
}

// New builds the detector.
func New(opts ...Option) (*Model, error) {
	o := options{languages: DefaultLanguages}
	for _, opt := range opts {
		opt(&o)
	}

	langs := make([]lingua.Language, 0, len(o.languages))
	codes := make([]string, 0, len(o.languages))
	for _, code := range o.languages {
		code = strings.ToLower(strings.TrimSpace(code))
		lang, ok := languageByCode(code)
		if !ok {
			return nil, fmt.Errorf("lingua: unknown language code %q", code)
		}
		langs = append(langs, lang)
		codes = append(codes, code)
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("lingua: need at least two languages, got %d", len(langs))
	}

	b := lingua.NewLanguageDetectorBuilder().FromLanguages(langs...)
	if o.lowAccuracy {
		b = b.WithLowAccuracyMode()
	}
	if o.preload {
		b = b.WithPreloadedLanguageModels()
	}
	if o.minDistance > 0 {
		b = b.WithMinimumRelativeDistance(o.minDistance)
	}
	return &Model{detector: b.Build(), languages: codes}, nil
}

func languageByCode(code string) (lingua.Language, bool) {
	for _, l := range lingua.AllLanguages() {
		if strings.EqualFold(l.IsoCode639_1().String(), code) {
			return l, true
		}
	}
	return lingua.Unknown, false
}

// Languages returns the candidate codes.
func (m *Model) Languages() []string { return append([]string(nil), m.languages...) }

// Predict implements kitabi.LanguageModel.
func (m *Model) Predict(text string) (string, float64) {
	if strings.TrimSpace(text) == "" {
		return "", 0
	}
	values := m.detector.ComputeLanguageConfidenceValues(text)
	if len(values) == 0 {
		return "", 0
	}
	top := values[0]
	if top.Language() == lingua.Unknown {
		return "", 0
	}
	return strings.ToLower(top.Language().IsoCode639_1().String()), top.Value()
}

var _ kitabi.LanguageModel = (*Model)(nil)
