package kitabi

import (
	"context"
	"fmt"
)

// extractLocal reads every page with the local reader.
func (rt *ExtractionRouter) extractLocal(ctx context.Context, pdf []byte, pageCount int) (ExtractionResult, error) {
	ctx, span := startSpan(ctx, rt.tracer, "kitabi.extract",
		StringAttr("extract.method", string(MethodLocal)), IntAttr("extract.pages", pageCount))
	defer span.End()

	samples, err := rt.sampler.Sample(ctx, pdf, pageCount, PageRange{})
	if err != nil {
		span.Error(err)
		return ExtractionResult{}, err
	}
	pages := make([]string, pageCount)
	seen := make([]bool, pageCount)
	for _, s := range samples {
		if s.PageIndex < 0 || s.PageIndex >= pageCount {
			continue
		}
		pages[s.PageIndex] = s.Text
		seen[s.PageIndex] = true
	}
	res, err := buildExtraction(pages, seen, MethodLocal)
	if err != nil {
		span.Error(err)
	}
	return res, err
}

// extractCloud runs the cloud service over the whole document and rebuilds
// the text line by line so right-to-left reading order survives.
func (rt *ExtractionRouter) extractCloud(ctx context.Context, pdf []byte, pageCount int) (ExtractionResult, *Analysis, error) {
	ctx, span := startSpan(ctx, rt.tracer, "kitabi.extract",
		StringAttr("extract.method", string(MethodCloud)),
		StringAttr("extract.service", rt.cloud.Name()),
		IntAttr("extract.pages", pageCount))
	defer span.End()

	a, err := rt.cloud.Analyze(ctx, pdf, PageRange{})
	if err != nil {
		span.Error(err)
		return ExtractionResult{}, nil, err
	}
	pages := make([]string, pageCount)
	seen := make([]bool, pageCount)
	for _, p := range a.Pages {
		if p.Index < 0 || p.Index >= pageCount || seen[p.Index] {
			continue
		}
		pages[p.Index] = p.Text()
		seen[p.Index] = true
	}
	res, err := buildExtraction(pages, seen, MethodCloud)
	if err != nil {
		span.Error(err)
		return ExtractionResult{}, nil, err
	}
	return res, &a, nil
}

// buildExtraction assembles the result and enforces that every page is present.
func buildExtraction(pages []string, seen []bool, method ExtractionMethod) (ExtractionResult, error) {
	got := 0
	for _, ok := range seen {
		if ok {
			got++
		}
	}
	if got != len(pages) {
		return ExtractionResult{}, fmt.Errorf("%w: %s extractor returned %d of %d pages", ErrIncompleteExtraction, method, got, len(pages))
	}
	text, bounds := AssembleText(pages)
	return ExtractionResult{
		FullText:       text,
		PageBoundaries: bounds,
		Method:         method,
		PagesExtracted: len(pages),
	}, nil
}
