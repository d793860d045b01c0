package kitabi

import (
	"context"
	"log/slog"
)

// ScannedDocumentDetector decides whether a document has a usable text layer
// from the character density of its first pages.
type ScannedDocumentDetector struct {
	sampler *PageSampler
	cfg     Config
	logger  *slog.Logger
}

// NewScannedDocumentDetector returns a detector sampling through s.
func NewScannedDocumentDetector(s *PageSampler, cfg Config, logger *slog.Logger) *ScannedDocumentDetector {
	if logger == nil {
		logger = nopLogger
	}
	return &ScannedDocumentDetector{sampler: s, cfg: cfg, logger: logger}
}

// Classify samples the first pages of pdf and classifies it.
func (d *ScannedDocumentDetector) Classify(ctx context.Context, pdf []byte) (DocumentClassification, error) {
	n, err := d.sampler.PageCount(ctx, pdf)
	if err != nil {
		return DocumentClassification{}, err
	}
	c, _, err := d.classify(ctx, pdf, n)
	return c, err
}

// classify also returns the samples so later stages can reuse them.
func (d *ScannedDocumentDetector) classify(ctx context.Context, pdf []byte, pageCount int) (DocumentClassification, []PageSample, error) {
	samples, err := d.sampler.Sample(ctx, pdf, pageCount, PageRange{Start: 0, End: d.cfg.ScannedSamplePages})
	if err != nil {
		return DocumentClassification{}, nil, err
	}
	c := ClassifySamples(samples, d.cfg)
	d.logger.Debug("scanned detection",
		"sample_size", c.SampleSize,
		"avg_chars_per_page", c.AvgCharsPerPage,
		"threshold", c.ThresholdUsed,
		"is_scanned", c.IsScanned)
	return c, samples, nil
}

// ClassifySamples computes the classification from already sampled pages.
// With SkipGibberishPages set, pages whose text looks like noise count as
// empty.
func ClassifySamples(samples []PageSample, cfg Config) DocumentClassification {
	c := DocumentClassification{
		SampleSize:    len(samples),
		ThresholdUsed: cfg.ScannedCharsPerPage,
	}
	if len(samples) == 0 {
		c.IsScanned = true
		return c
	}
	total := 0
	for _, s := range samples {
		if cfg.SkipGibberishPages && IsGibberish(s.Text) {
			continue
		}
		total += s.CharacterCount
	}
	c.AvgCharsPerPage = float64(total) / float64(len(samples))
	c.IsScanned = c.AvgCharsPerPage < cfg.ScannedCharsPerPage
	return c
}
