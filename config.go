package kitabi

import (
	"errors"
	"fmt"
)

// Config holds every calibration constant of the pipeline. The defaults
// come from a small evaluation corpus; recalibrate against your own.
type Config struct {
	// Scanned detection.
	ScannedSamplePages  int     `toml:"scanned_sample_pages" json:"scanned_sample_pages"`
	ScannedCharsPerPage float64 `toml:"scanned_chars_per_page" json:"scanned_chars_per_page"`
	SkipGibberishPages  bool    `toml:"skip_gibberish_pages" json:"skip_gibberish_pages"`

	// Language sampling. Start is 0-based: 3 skips the first three pages.
	LanguageSampleStart   int     `toml:"language_sample_start" json:"language_sample_start"`
	LanguageSamplePages   int     `toml:"language_sample_pages" json:"language_sample_pages"`
	LanguageSampleChars   int     `toml:"language_sample_chars" json:"language_sample_chars"`
	MinLanguageConfidence float64 `toml:"min_language_confidence" json:"min_language_confidence"`
	UnsupportedConfidence float64 `toml:"unsupported_confidence" json:"unsupported_confidence"`

	// Character-ratio fallback.
	ArabicRatioThreshold float64 `toml:"arabic_ratio_threshold" json:"arabic_ratio_threshold"`
	FallbackMinChars     int     `toml:"fallback_min_chars" json:"fallback_min_chars"`

	// Structure recovery.
	MinTocEntries     int     `toml:"min_toc_entries" json:"min_toc_entries"`
	TocScanStart      int     `toml:"toc_scan_start" json:"toc_scan_start"`
	TocScanEnd        int     `toml:"toc_scan_end" json:"toc_scan_end"`
	TocTailPages      int     `toml:"toc_tail_pages" json:"toc_tail_pages"`
	MinOutlineEntries int     `toml:"min_outline_entries" json:"min_outline_entries"`
	MinHeadingHeight  float64 `toml:"min_heading_height" json:"min_heading_height"`
	MinHeadingLength  int     `toml:"min_heading_length" json:"min_heading_length"`
	MaxHeadingLength  int     `toml:"max_heading_length" json:"max_heading_length"`
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		ScannedSamplePages:  10,
		ScannedCharsPerPage: 100,

		LanguageSampleStart:   3,
		LanguageSamplePages:   10,
		LanguageSampleChars:   1000,
		MinLanguageConfidence: 0.90,
		UnsupportedConfidence: 0.5,

		ArabicRatioThreshold: 0.3,
		FallbackMinChars:     50,

		MinTocEntries:     5,
		TocScanStart:      2,
		TocScanEnd:        12,
		TocTailPages:      10,
		MinOutlineEntries: 4,
		MinHeadingHeight:  0.025,
		MinHeadingLength:  3,
		MaxHeadingLength:  200,
	}
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %g", name, v))
		}
	}

	positive("scanned_sample_pages", c.ScannedSamplePages)
	positive("language_sample_pages", c.LanguageSamplePages)
	positive("language_sample_chars", c.LanguageSampleChars)
	positive("min_toc_entries", c.MinTocEntries)
	positive("min_outline_entries", c.MinOutlineEntries)
	positive("max_heading_length", c.MaxHeadingLength)
	unit("min_language_confidence", c.MinLanguageConfidence)
	unit("unsupported_confidence", c.UnsupportedConfidence)
	unit("arabic_ratio_threshold", c.ArabicRatioThreshold)
	unit("min_heading_height", c.MinHeadingHeight)

	if c.ScannedCharsPerPage < 0 {
		errs = append(errs, fmt.Errorf("scanned_chars_per_page must not be negative, got %g", c.ScannedCharsPerPage))
	}
	if c.LanguageSampleStart < 0 {
		errs = append(errs, fmt.Errorf("language_sample_start must not be negative, got %d", c.LanguageSampleStart))
	}
	if c.FallbackMinChars < 0 {
		errs = append(errs, fmt.Errorf("fallback_min_chars must not be negative, got %d", c.FallbackMinChars))
	}
	if c.TocScanStart < 0 || c.TocScanEnd < c.TocScanStart {
		errs = append(errs, fmt.Errorf("toc scan window [%d, %d) is invalid", c.TocScanStart, c.TocScanEnd))
	}
	if c.TocTailPages < 0 {
		errs = append(errs, fmt.Errorf("toc_tail_pages must not be negative, got %d", c.TocTailPages))
	}
	if c.MinHeadingLength < 0 || c.MinHeadingLength > c.MaxHeadingLength {
		errs = append(errs, fmt.Errorf("heading length bounds [%d, %d] are invalid", c.MinHeadingLength, c.MaxHeadingLength))
	}
	return errors.Join(errs...)
}

// languageWindow is the page range sampled for language identification.
// Documents too short for the window are sampled whole.
func (c Config) languageWindow(pageCount int) PageRange {
	r := PageRange{Start: c.LanguageSampleStart, End: c.LanguageSampleStart + c.LanguageSamplePages}.Clamp(pageCount)
	if r.Len() == 0 {
		return PageRange{Start: 0, End: min(pageCount, c.LanguageSamplePages)}
	}
	return r
}
