package kitabi

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	englishPage = "The history of the city is told in many books and the reader will find here a long account of its markets and scholars. "
	arabicPage  = "هذا كتاب في تاريخ المدينة وفيه فصول كثيرة عن أهلها وعلمائها وأسواقها ومساجدها القديمة والحديثة وفي آخره فهرس للأعلام والأماكن التي ورد ذكرها في الأبواب "
	scannedPage = "scan noise 1"
)

// repeatPages returns n copies of text.
func repeatPages(n int, text string) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = text
	}
	return pages
}

// fakeReader serves fixed page texts and records every range it was asked for.
type fakeReader struct {
	pages    []string
	countErr error
	readErr  error
	short    int // pages dropped from full reads

	mu     sync.Mutex
	ranges []PageRange
}

func (f *fakeReader) PageCount(_ context.Context, _ []byte) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.pages), nil
}

func (f *fakeReader) ReadPages(_ context.Context, _ []byte, r PageRange) ([]PageSample, error) {
	f.mu.Lock()
	f.ranges = append(f.ranges, r)
	f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	end := r.End
	if r.Start == 0 && r.End == len(f.pages) {
		end -= f.short
	}
	var out []PageSample
	for i := r.Start; i < end; i++ {
		out = append(out, NewPageSample(i, f.pages[i], 0))
	}
	return out, nil
}

func (f *fakeReader) requested(r PageRange) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, got := range f.ranges {
		if got == r {
			return true
		}
	}
	return false
}

// outlineReader adds native bookmarks to a fakeReader.
type outlineReader struct {
	*fakeReader
	outline []OutlineEntry
	err     error
}

func (o *outlineReader) Outline(_ context.Context, _ []byte) ([]OutlineEntry, error) {
	return o.outline, o.err
}

// scriptModel labels text by its dominant script.
type scriptModel struct{}

func (scriptModel) Predict(text string) (string, float64) {
	if strings.TrimSpace(text) == "" {
		return "", 0
	}
	if ratio, _ := ArabicRatio(text); ratio > 0.5 {
		return "ar", 0.97
	}
	return "en", 0.95
}

// fixedModel always returns the same prediction.
type fixedModel struct {
	label string
	conf  float64
}

func (m fixedModel) Predict(string) (string, float64) { return m.label, m.conf }

// fakeCloud returns a prepared analysis.
type fakeCloud struct {
	analysis Analysis
	err      error
	calls    atomic.Int32
}

func (c *fakeCloud) Name() string { return "fake" }

func (c *fakeCloud) Analyze(ctx context.Context, _ []byte, _ PageRange) (Analysis, error) {
	c.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	return c.analysis, c.err
}

// analysisOf builds an analysis with one line per entry of lines(i) on each page.
func analysisOf(n int, lines func(i int) []string) Analysis {
	a := Analysis{Model: "prebuilt-layout"}
	for i := 0; i < n; i++ {
		p := AnalyzedPage{Index: i, Width: 612, Height: 792, Unit: "pixel"}
		for _, l := range lines(i) {
			p.Lines = append(p.Lines, Line{Content: l})
		}
		a.Pages = append(a.Pages, p)
	}
	return a
}

// box returns a rectangle polygon of height h at vertical position y.
func box(y, h float64) []float64 {
	return []float64{50, y, 500, y, 500, y + h, 50, y + h}
}

func intp(n int) *int { return &n }
