// Package pdf reads the embedded text layer of PDF documents.
//
// Page text comes from ledongthuc/pdf (BSD-3, pure Go). Validation, page
// counts and native bookmarks come from pdfcpu, which rejects encrypted and
// structurally broken files before any text is read.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nevindra/kitabi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Reader implements kitabi.LocalReader and kitabi.OutlineReader. It holds
// no per-document state and is safe for concurrent use.
type Reader struct {
	strict bool
}

// Option configures a Reader.
type Option func(*Reader)

// WithStrictValidation makes pdfcpu reject files that break the PDF
// standard instead of tolerating common producer mistakes.
func WithStrictValidation() Option {
	return func(r *Reader) { r.strict = true }
}

// NewReader creates a PDF reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if r.strict {
		conf.ValidationMode = model.ValidationStrict
	}
	return conf
}

// open parses and validates content with pdfcpu.
func (r *Reader) open(content []byte) (*model.Context, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty PDF content", kitabi.ErrDocumentUnreadable)
	}
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), r.config())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kitabi.ErrDocumentUnreadable, err)
	}
	return ctx, nil
}

// PageCount implements kitabi.LocalReader.
func (r *Reader) PageCount(_ context.Context, content []byte) (int, error) {
	ctx, err := r.open(content)
	if err != nil {
		return 0, err
	}
	return ctx.PageCount, nil
}

// ReadPages implements kitabi.LocalReader. Pages whose content stream
// cannot be decoded yield an empty sample rather than an error, so a single
// damaged page never hides the rest of the document.
func (r *Reader) ReadPages(ctx context.Context, content []byte, pages kitabi.PageRange) ([]kitabi.PageSample, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty PDF content", kitabi.ErrDocumentUnreadable)
	}
	doc, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", kitabi.ErrDocumentUnreadable, err)
	}

	pages = pages.Clamp(doc.NumPage())
	samples := make([]kitabi.PageSample, 0, pages.Len())
	for i := pages.Start; i < pages.End; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := doc.Page(i + 1)
		if page.V.IsNull() {
			samples = append(samples, kitabi.NewPageSample(i, "", 0))
			continue
		}
		samples = append(samples, kitabi.NewPageSample(i, pageText(page), imageCount(page)))
	}
	return samples, nil
}

// Outline implements kitabi.OutlineReader. Documents without bookmarks
// return an empty outline.
func (r *Reader) Outline(_ context.Context, content []byte) ([]kitabi.OutlineEntry, error) {
	ctx, err := r.open(content)
	if err != nil {
		return nil, err
	}
	bms, err := pdfcpu.Bookmarks(ctx)
	if err != nil {
		if errors.Is(err, api.ErrNoOutlines) {
			return nil, nil
		}
		return nil, fmt.Errorf("read outline: %w", err)
	}
	var out []kitabi.OutlineEntry
	flattenBookmarks(bms, 1, &out)
	return out, nil
}

// flattenBookmarks walks the bookmark tree depth first. pdfcpu page numbers
// are 1-based; levels deeper than 3 are folded into 3.
func flattenBookmarks(bms []pdfcpu.Bookmark, level int, out *[]kitabi.OutlineEntry) {
	for _, bm := range bms {
		title := strings.TrimSpace(bm.Title)
		if title != "" && bm.PageFrom > 0 {
			*out = append(*out, kitabi.OutlineEntry{
				Title:     title,
				Level:     min(level, 3),
				PageIndex: bm.PageFrom - 1,
			})
		}
		flattenBookmarks(bm.Kids, level+1, out)
	}
}

// pageText extracts the plain text of a page. ledongthuc panics on some
// malformed streams, so the call is guarded.
func pageText(page pdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	t, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(t)
}

// imageCount counts the image XObjects in a page's resources.
func imageCount(page pdf.Page) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	xobjects := page.Resources().Key("XObject")
	if xobjects.Kind() != pdf.Dict {
		return 0
	}
	for _, key := range xobjects.Keys() {
		if xobjects.Key(key).Key("Subtype").Name() == "Image" {
			n++
		}
	}
	return n
}

var (
	_ kitabi.LocalReader   = (*Reader)(nil)
	_ kitabi.OutlineReader = (*Reader)(nil)
)
