package kitabi

import "context"

// LocalReader reads the embedded text layer of a PDF. It is fast and free,
// and fails only on corrupt or encrypted files (wrapping ErrDocumentUnreadable).
type LocalReader interface {
	// PageCount returns the number of pages in the document.
	PageCount(ctx context.Context, pdf []byte) (int, error)
	// ReadPages returns one sample per page in r, in page order. The zero
	// range reads every page.
	ReadPages(ctx context.Context, pdf []byte, r PageRange) ([]PageSample, error)
}

// OutlineReader is implemented by readers that can return native PDF bookmarks.
type OutlineReader interface {
	Outline(ctx context.Context, pdf []byte) ([]OutlineEntry, error)
}

// CloudAnalyzer is the paid OCR and layout-analysis service.
type CloudAnalyzer interface {
	// Analyze runs layout analysis over the pages in r. The zero range
	// analyzes the whole document. Implementations bound each call with
	// their own timeout.
	Analyze(ctx context.Context, pdf []byte, r PageRange) (Analysis, error)
	// Name returns the service name (e.g. "azure").
	Name() string
}

// LanguageModel is a pretrained language identifier. It must be safe for
// concurrent use.
type LanguageModel interface {
	// Predict returns a lower-case ISO 639-1 code and a confidence in [0, 1].
	// An empty label means no language could be determined.
	Predict(text string) (label string, confidence float64)
}
