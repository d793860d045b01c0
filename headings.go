package kitabi

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"
)

// HeadingTocGenerator recovers sections from heading paragraphs tagged by
// the layout service. It works on positional pages only, so printed page
// numbers and offsets play no part.
type HeadingTocGenerator struct {
	cfg Config
}

// NewHeadingTocGenerator returns a generator using cfg's heading thresholds.
func NewHeadingTocGenerator(cfg Config) HeadingTocGenerator {
	return HeadingTocGenerator{cfg: cfg}
}

// Generate returns one section per accepted heading, ordered by page and
// then by order of appearance on the page.
func (g HeadingTocGenerator) Generate(a Analysis, pageCount int) []Section {
	pages := slices.Clone(a.Pages)
	slices.SortStableFunc(pages, func(x, y AnalyzedPage) int { return cmp.Compare(x.Index, y.Index) })

	var starts []sectionStart
	for _, p := range pages {
		if p.Index < 0 || p.Index >= pageCount {
			continue
		}
		for _, para := range p.Paragraphs {
			level, title, ok := g.accept(p, para)
			if !ok {
				continue
			}
			starts = append(starts, sectionStart{title: title, level: level, page: p.Index})
		}
	}
	return buildSections(starts, pageCount)
}

// accept applies the heading filters: a heading role, a bounding box tall
// enough relative to the page, non-numeric content and a sane length.
func (g HeadingTocGenerator) accept(p AnalyzedPage, para Paragraph) (level int, title string, ok bool) {
	switch para.Role {
	case RoleTitle:
		level = 1
	case RoleSectionHeading:
		level = 2
	default:
		return 0, "", false
	}
	if p.Height <= 0 || polygonHeight(para.Polygon)/p.Height < g.cfg.MinHeadingHeight {
		return 0, "", false
	}
	title = collapseSpace(strings.TrimSpace(para.Content))
	if isNumeric(title) {
		return 0, "", false
	}
	n := utf8.RuneCountInString(title)
	if n < g.cfg.MinHeadingLength || n > g.cfg.MaxHeadingLength {
		return 0, "", false
	}
	return level, title, true
}
