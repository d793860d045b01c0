package kitabi

import (
	"strings"
	"unicode/utf8"
)

// Language is the dominant language of a document.
type Language string

const (
	Arabic  Language = "arabic"
	English Language = "english"
)

// Code returns the ISO 639-1 code for l, or "" for an unknown language.
func (l Language) Code() string {
	switch l {
	case Arabic:
		return "ar"
	case English:
		return "en"
	}
	return ""
}

// languageFromCode maps a lower-case ISO 639-1 code to a supported Language.
func languageFromCode(code string) (Language, bool) {
	switch code {
	case "ar":
		return Arabic, true
	case "en":
		return English, true
	}
	return "", false
}

// PageRange is a half-open, 0-based range of page indices [Start, End).
// The zero value selects every page.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// All reports whether r selects the whole document.
func (r PageRange) All() bool { return r.Start == 0 && r.End == 0 }

// Clamp bounds r to a document of n pages. The zero range becomes [0, n).
func (r PageRange) Clamp(n int) PageRange {
	if r.All() {
		return PageRange{Start: 0, End: n}
	}
	start, end := max(r.Start, 0), min(r.End, n)
	if start > end {
		start = end
	}
	return PageRange{Start: start, End: end}
}

// Len returns the number of pages in r.
func (r PageRange) Len() int { return max(r.End-r.Start, 0) }

// PageSample is the local reader's view of one page.
type PageSample struct {
	PageIndex      int    `json:"page_index"`
	CharacterCount int    `json:"character_count"`
	WordCount      int    `json:"word_count"`
	ImageCount     int    `json:"image_count"`
	Text           string `json:"text"`
}

// NewPageSample builds a PageSample, deriving the counts from text.
func NewPageSample(index int, text string, images int) PageSample {
	text = strings.TrimSpace(text)
	return PageSample{
		PageIndex:      index,
		CharacterCount: utf8.RuneCountInString(text),
		WordCount:      len(strings.Fields(text)),
		ImageCount:     images,
		Text:           text,
	}
}

// DocumentClassification is the scanned/digital verdict for a document.
// AvgCharsPerPage covers only the sampled pages.
type DocumentClassification struct {
	IsScanned       bool    `json:"is_scanned"`
	SampleSize      int     `json:"sample_size"`
	AvgCharsPerPage float64 `json:"avg_chars_per_page"`
	ThresholdUsed   float64 `json:"threshold_used"`
}

// LanguageVerdict is what the language model said about a text sample.
type LanguageVerdict struct {
	Language        Language `json:"language"`
	Confidence      float64  `json:"confidence"`
	RawCode         string   `json:"raw_code"`
	SampleCharCount int      `json:"sample_char_count"`
}

// Supported reports whether the raw code is one of the two handled languages.
func (v LanguageVerdict) Supported() bool {
	_, ok := languageFromCode(v.RawCode)
	return ok
}

// ExtractionMethod identifies the extractor that produced the full text.
type ExtractionMethod string

const (
	MethodLocal ExtractionMethod = "local"
	MethodCloud ExtractionMethod = "cloud"
)

// PageBreak separates consecutive pages in ExtractionResult.FullText.
const PageBreak = "\f"

// ExtractionResult is the full text of a document. PageBoundaries[i] is the
// byte offset in FullText where page i starts.
type ExtractionResult struct {
	Language       Language         `json:"language"`
	FullText       string           `json:"full_text"`
	PageBoundaries []int            `json:"page_boundaries"`
	Method         ExtractionMethod `json:"method"`
	PagesExtracted int              `json:"pages_extracted"`
}

// PageText returns the text of page i, or "" when i is out of range.
func (r ExtractionResult) PageText(i int) string {
	if i < 0 || i >= len(r.PageBoundaries) {
		return ""
	}
	start := r.PageBoundaries[i]
	end := len(r.FullText)
	if i+1 < len(r.PageBoundaries) {
		end = r.PageBoundaries[i+1] - len(PageBreak)
	}
	if start > end || end > len(r.FullText) {
		return ""
	}
	return r.FullText[start:end]
}

// Pages returns the text of every page in order.
func (r ExtractionResult) Pages() []string {
	out := make([]string, len(r.PageBoundaries))
	for i := range out {
		out[i] = r.PageText(i)
	}
	return out
}

// AssembleText joins per-page texts with PageBreak and returns the joined
// text together with the start offset of every page.
func AssembleText(pages []string) (string, []int) {
	var b strings.Builder
	bounds := make([]int, len(pages))
	for i, p := range pages {
		if i > 0 {
			b.WriteString(PageBreak)
		}
		bounds[i] = b.Len()
		b.WriteString(strings.ReplaceAll(p, PageBreak, "\n"))
	}
	return b.String(), bounds
}

// TocEntry is one line of a table of contents. PrintedPage is the number
// printed in the book; ResolvedPageIndex is the positional page index once
// an offset has been applied.
type TocEntry struct {
	Title             string `json:"title"`
	Level             int    `json:"level"`
	PrintedPage       *int   `json:"printed_page,omitempty"`
	ResolvedPageIndex *int   `json:"resolved_page_index,omitempty"`
}

// Section is a contiguous range of positional pages [PageStart, PageEnd].
type Section struct {
	Title     string `json:"title"`
	Level     int    `json:"level"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
}

// StructureSource records where a document's sections came from.
type StructureSource string

const (
	StructureOutline  StructureSource = "outline"
	StructureTocPage  StructureSource = "toc_page"
	StructureHeadings StructureSource = "headings"
	StructureNone     StructureSource = "none"
)

// OutlineEntry is a native PDF bookmark. PageIndex is positional.
type OutlineEntry struct {
	Title     string `json:"title"`
	Level     int    `json:"level"`
	PageIndex int    `json:"page_index"`
}

// --- Cloud layout analysis ---

// ParagraphRole is the structural role the layout service assigned to a paragraph.
type ParagraphRole string

const (
	RoleTitle          ParagraphRole = "title"
	RoleSectionHeading ParagraphRole = "sectionHeading"
	RolePageHeader     ParagraphRole = "pageHeader"
	RolePageFooter     ParagraphRole = "pageFooter"
	RolePageNumber     ParagraphRole = "pageNumber"
	RoleFootnote       ParagraphRole = "footnote"
)

// Analysis is the cloud service's layout result for a document.
type Analysis struct {
	Model string         `json:"model"`
	Pages []AnalyzedPage `json:"pages"`
}

// Page returns the analyzed page with positional index i.
func (a *Analysis) Page(i int) (AnalyzedPage, bool) {
	if a == nil {
		return AnalyzedPage{}, false
	}
	for _, p := range a.Pages {
		if p.Index == i {
			return p, true
		}
	}
	return AnalyzedPage{}, false
}

// AnalyzedPage is one page of an Analysis. Index is 0-based and positional.
// Polygon coordinates share the unit of Width and Height.
type AnalyzedPage struct {
	Index      int         `json:"index"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
	Unit       string      `json:"unit,omitempty"`
	Lines      []Line      `json:"lines,omitempty"`
	Paragraphs []Paragraph `json:"paragraphs,omitempty"`
	Tables     []Table     `json:"tables,omitempty"`
}

// Text joins the page's lines in reading order.
func (p AnalyzedPage) Text() string {
	lines := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = l.Content
	}
	return strings.Join(lines, "\n")
}

// Line is a single OCR line.
type Line struct {
	Content string    `json:"content"`
	Polygon []float64 `json:"polygon,omitempty"`
}

// Paragraph is a role-tagged block of text.
type Paragraph struct {
	Role    ParagraphRole `json:"role,omitempty"`
	Content string        `json:"content"`
	Polygon []float64     `json:"polygon,omitempty"`
}

// Table is a detected table with its cells.
type Table struct {
	RowCount    int         `json:"row_count"`
	ColumnCount int         `json:"column_count"`
	Cells       []TableCell `json:"cells"`
}

// TableCell is one cell of a Table.
type TableCell struct {
	RowIndex    int    `json:"row_index"`
	ColumnIndex int    `json:"column_index"`
	Kind        string `json:"kind,omitempty"`
	Content     string `json:"content"`
}

// Rows returns the table as a row-major grid of cell contents.
func (t Table) Rows() [][]string {
	rows := t.RowCount
	cols := t.ColumnCount
	for _, c := range t.Cells {
		rows = max(rows, c.RowIndex+1)
		cols = max(cols, c.ColumnIndex+1)
	}
	grid := make([][]string, rows)
	for i := range grid {
		grid[i] = make([]string, cols)
	}
	for _, c := range t.Cells {
		if c.RowIndex < 0 || c.ColumnIndex < 0 {
			continue
		}
		grid[c.RowIndex][c.ColumnIndex] = strings.TrimSpace(c.Content)
	}
	return grid
}

// polygonHeight returns the vertical extent of a flat [x0,y0,x1,y1,...] polygon.
func polygonHeight(poly []float64) float64 {
	if len(poly) < 4 {
		return 0
	}
	minY, maxY := poly[1], poly[1]
	for i := 1; i < len(poly); i += 2 {
		minY = min(minY, poly[i])
		maxY = max(maxY, poly[i])
	}
	return maxY - minY
}
