package kitabi

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TocPage is the material a TOC page offers: its text lines and, when the
// cloud service analyzed it, its detected tables.
type TocPage struct {
	Text   string
	Tables []Table
}

// TocPageExtractor parses a table-of-contents page into entries. Results
// with fewer than MinTocEntries entries are discarded.
type TocPageExtractor struct {
	cfg Config
}

// NewTocPageExtractor returns an extractor using cfg's entry minimum.
func NewTocPageExtractor(cfg Config) TocPageExtractor {
	return TocPageExtractor{cfg: cfg}
}

// Extract tries every table first, then the line patterns.
func (x TocPageExtractor) Extract(p TocPage) []TocEntry {
	for _, t := range p.Tables {
		if entries := x.FromTable(t); len(entries) > 0 {
			return entries
		}
	}
	return x.FromLines(p.Text)
}

var tocHeaders = []string{
	"table of contents",
	"contents",
	"المحتويات",
	"فهرس المحتويات",
	"جدول المحتويات",
	"فهرس الموضوعات",
	"جدول الموضوعات",
	"فهرس",
}

// HasTocHeader reports whether one of the first lines of text is a
// table-of-contents heading.
func HasTocHeader(text string) bool {
	for i, line := range strings.Split(text, "\n") {
		if i >= 8 {
			break
		}
		if isTocHeaderLine(line) {
			return true
		}
	}
	return false
}

func isTocHeaderLine(line string) bool {
	norm := strings.ToLower(collapseSpace(NormalizeArabic(line)))
	norm = strings.TrimRight(norm, " :.-–")
	if norm == "" {
		return false
	}
	for _, h := range tocHeaders {
		if norm == NormalizeArabic(h) {
			return true
		}
	}
	return false
}

var (
	// title, leader, trailing page number
	trailingPage = regexp.MustCompile(`^(.*?[^\s.·…_\-–])[\s.·…_\-–]*[\s.·…_]\s*(\d{1,4})$`)
	// page number first, as right-to-left text often comes out of the reader
	leadingPage = regexp.MustCompile(`^(\d{1,4})[\s.·…_\-–]+(.+)$`)
	numbering   = regexp.MustCompile(`^(\d+(?:\.\d+)*)[\s.:)\-–]`)
	timestamp   = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}\s+\d{1,2}:\d{2}`)
	inDesign    = regexp.MustCompile(`(?i)^[\w\s]+\.indd\s+\d+$`)
)

// FromLines parses line-structured text. It understands "Title .... 12",
// "12 Title" for Arabic lines, and a title line followed by a line holding
// only the page number.
func (x TocPageExtractor) FromLines(text string) []TocEntry {
	return x.accept(parseLines(text))
}

func parseLines(text string) []TocEntry {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(NormalizeDigits(l))
		if l == "" || isTocNoise(l) || isTocHeaderLine(l) {
			continue
		}
		lines = append(lines, l)
	}

	var entries []TocEntry
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if title, page, ok := splitTrailingPage(line); ok {
			entries = append(entries, newTocEntry(title, page))
			continue
		}
		if title, page, ok := splitLeadingPage(line); ok {
			entries = append(entries, newTocEntry(title, page))
			continue
		}
		if i+1 < len(lines) && validTitle(line) {
			if page, ok := parsePage(lines[i+1]); ok {
				entries = append(entries, newTocEntry(line, page))
				i++
			}
		}
	}
	return entries
}

// FromTable reads one entry per table row. The page cell is the last or
// first non-empty cell holding only a number; the title is the longest other cell.
func (x TocPageExtractor) FromTable(t Table) []TocEntry {
	return x.accept(parseTable(t))
}

func parseTable(t Table) []TocEntry {
	var entries []TocEntry
	for _, row := range t.Rows() {
		first, last := -1, -1
		for c, cell := range row {
			if cell == "" {
				continue
			}
			if first < 0 {
				first = c
			}
			last = c
		}
		if first < 0 {
			continue
		}
		pageCol := -1
		for _, c := range []int{last, first} {
			if _, ok := parsePage(NormalizeDigits(row[c])); ok {
				pageCol = c
				break
			}
		}
		if pageCol < 0 {
			continue
		}
		page, _ := parsePage(NormalizeDigits(row[pageCol]))

		title := ""
		for c, cell := range row {
			if c == pageCol || isNumeric(cell) {
				continue
			}
			if utf8.RuneCountInString(cell) > utf8.RuneCountInString(title) {
				title = cell
			}
		}
		title = collapseSpace(title)
		if !validTitle(title) {
			continue
		}
		entries = append(entries, newTocEntry(title, page))
	}
	return entries
}

// accept keeps the monotonic prefix and enforces the minimum entry count.
func (x TocPageExtractor) accept(entries []TocEntry) []TocEntry {
	entries = monotonic(entries, 0)
	if len(entries) < x.cfg.MinTocEntries {
		return nil
	}
	return entries
}

// Continue parses a page that may carry on a TOC whose last printed page
// was last. It returns the entries that keep page order, or nil when the
// page does not look like a continuation.
func (x TocPageExtractor) Continue(p TocPage, last int) []TocEntry {
	var entries []TocEntry
	for _, t := range p.Tables {
		if entries = parseTable(t); len(entries) > 0 {
			break
		}
	}
	if len(entries) == 0 {
		entries = parseLines(p.Text)
	}
	if len(entries) == 0 || *entries[0].PrintedPage < last {
		return nil
	}
	entries = monotonic(entries, last)
	if len(entries) < 2 {
		return nil
	}
	return entries
}

// monotonic drops everything after the first backward page jump, which
// marks the end of the TOC and the start of body text.
func monotonic(entries []TocEntry, prev int) []TocEntry {
	for i, e := range entries {
		if *e.PrintedPage < prev {
			return entries[:i]
		}
		prev = *e.PrintedPage
	}
	return entries
}

func splitTrailingPage(line string) (string, int, bool) {
	m := trailingPage.FindStringSubmatch(line)
	if m == nil {
		return "", 0, false
	}
	title := strings.TrimSpace(m[1])
	page, ok := parsePage(m[2])
	if !ok || !validTitle(title) || isLevelWord(title) {
		return "", 0, false
	}
	return title, page, true
}

// isLevelWord catches "Chapter 3" style lines where the number is part of
// the heading, not a page reference.
func isLevelWord(title string) bool {
	lower := strings.ToLower(NormalizeArabic(title))
	for _, words := range [][]string{levelOneWords, levelTwoWords, levelThreeWords} {
		for _, w := range words {
			if lower == NormalizeArabic(w) {
				return true
			}
		}
	}
	return false
}

func splitLeadingPage(line string) (string, int, bool) {
	m := leadingPage.FindStringSubmatch(line)
	if m == nil || !containsArabic(m[2]) {
		return "", 0, false
	}
	title := strings.TrimSpace(m[2])
	page, ok := parsePage(m[1])
	if !ok || !validTitle(title) {
		return "", 0, false
	}
	return title, page, true
}

func parsePage(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 4 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 9999 {
		return 0, false
	}
	return n, true
}

func validTitle(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 200 || isNumeric(s) {
		return false
	}
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func containsArabic(s string) bool {
	return strings.IndexFunc(s, IsArabicRune) >= 0
}

// isTocNoise drops print artefacts that appear between TOC lines.
func isTocNoise(line string) bool {
	if timestamp.MatchString(line) || inDesign.MatchString(line) || strings.HasPrefix(line, "©") {
		return true
	}
	if utf8.RuneCountInString(line) < 2 {
		_, page := parsePage(line)
		return !page
	}
	return strings.IndexFunc(line, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) < 0
}

func newTocEntry(title string, page int) TocEntry {
	return TocEntry{Title: title, Level: tocLevel(title), PrintedPage: &page}
}

var (
	levelOneWords   = []string{"chapter", "part", "appendix", "book", "الباب", "الكتاب", "القسم", "الفصل", "الجزء"}
	levelTwoWords   = []string{"section", "المبحث"}
	levelThreeWords = []string{"المطلب"}
)

// tocLevel derives a 1..3 level from a title's numbering or keyword prefix.
func tocLevel(title string) int {
	if m := numbering.FindStringSubmatch(title + " "); m != nil {
		return min(strings.Count(m[1], ".")+1, 3)
	}
	lower := strings.ToLower(NormalizeArabic(title))
	for level, words := range [][]string{levelOneWords, levelTwoWords, levelThreeWords} {
		for _, w := range words {
			if strings.HasPrefix(lower, NormalizeArabic(w)) {
				return level + 1
			}
		}
	}
	return 1
}

// tocCandidates returns the front and tail page windows searched for a TOC,
// with pages carrying a TOC header moved to the front of each window.
func tocCandidates(cfg Config, pageCount int, pageText func(int) string) [][]int {
	front := PageRange{Start: cfg.TocScanStart, End: cfg.TocScanEnd}.Clamp(pageCount)
	tail := PageRange{Start: pageCount - cfg.TocTailPages, End: pageCount}.Clamp(pageCount)
	if tail.Start < front.End {
		tail.Start = front.End
	}
	order := func(r PageRange) []int {
		var withHeader, rest []int
		for i := r.Start; i < r.End; i++ {
			if HasTocHeader(pageText(i)) {
				withHeader = append(withHeader, i)
			} else {
				rest = append(rest, i)
			}
		}
		return append(withHeader, rest...)
	}
	var windows [][]int
	for _, r := range []PageRange{front, tail} {
		if r.Len() > 0 {
			windows = append(windows, order(r))
		}
	}
	return windows
}
