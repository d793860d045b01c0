package kitabi

import (
	"strings"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidateCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScannedSamplePages = 0
	cfg.MinLanguageConfidence = 1.5
	cfg.TocScanEnd = 1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"scanned_sample_pages", "min_language_confidence", "toc scan window"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLanguageWindow(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		pages int
		want  PageRange
	}{
		{200, PageRange{3, 13}},
		{8, PageRange{3, 8}},
		{3, PageRange{0, 3}},
		{1, PageRange{0, 1}},
	}
	for _, tt := range tests {
		if got := cfg.languageWindow(tt.pages); got != tt.want {
			t.Errorf("languageWindow(%d) = %+v, want %+v", tt.pages, got, tt.want)
		}
	}
}
