package kitabi

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PageSampler reads bounded page ranges through the local reader.
type PageSampler struct {
	reader LocalReader
}

// NewPageSampler returns a sampler over r.
func NewPageSampler(r LocalReader) *PageSampler {
	return &PageSampler{reader: r}
}

// PageCount returns the number of pages, wrapping any failure as
// ErrDocumentUnreadable.
func (s *PageSampler) PageCount(ctx context.Context, pdf []byte) (int, error) {
	n, err := s.reader.PageCount(ctx, pdf)
	if err != nil {
		return 0, unreadable(err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: document has no pages", ErrDocumentUnreadable)
	}
	return n, nil
}

// Sample reads pages r of a document with pageCount pages. The range is
// clamped to the document; an empty range returns no samples.
func (s *PageSampler) Sample(ctx context.Context, pdf []byte, pageCount int, r PageRange) ([]PageSample, error) {
	r = r.Clamp(pageCount)
	if r.Len() == 0 {
		return nil, nil
	}
	samples, err := s.reader.ReadPages(ctx, pdf, r)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, unreadable(err)
	}
	return samples, nil
}

// joinSamples concatenates sample texts in page order.
func joinSamples(samples []PageSample) string {
	parts := make([]string, 0, len(samples))
	for _, s := range samples {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func unreadable(err error) error {
	if errors.Is(err, ErrDocumentUnreadable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDocumentUnreadable, err)
}
