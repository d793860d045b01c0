package kitabi

import (
	"cmp"
	"slices"
)

// sectionStart is a heading located at a positional page.
type sectionStart struct {
	title string
	level int
	page  int
}

// buildSections orders starts by page and closes each section on the page
// before the next one begins. The last section runs to the final page. When
// two sections start on the same page the first one ends on that page.
func buildSections(starts []sectionStart, pageCount int) []Section {
	if len(starts) == 0 || pageCount <= 0 {
		return nil
	}
	starts = slices.Clone(starts)
	slices.SortStableFunc(starts, func(a, b sectionStart) int { return cmp.Compare(a.page, b.page) })

	sections := make([]Section, len(starts))
	for i, s := range starts {
		end := pageCount - 1
		if i+1 < len(starts) {
			end = max(starts[i+1].page-1, s.page)
		}
		sections[i] = Section{
			Title:     s.title,
			Level:     min(max(s.level, 1), 3),
			PageStart: s.page,
			PageEnd:   end,
		}
	}
	return sections
}

// SectionsFromEntries builds sections from resolved TOC entries. Entries that
// are unresolved or point outside the document are dropped and counted.
func SectionsFromEntries(entries []TocEntry, pageCount int) (sections []Section, dropped int) {
	starts := make([]sectionStart, 0, len(entries))
	for _, e := range entries {
		if e.ResolvedPageIndex == nil {
			dropped++
			continue
		}
		idx := *e.ResolvedPageIndex
		if idx < 0 || idx >= pageCount {
			dropped++
			continue
		}
		starts = append(starts, sectionStart{title: e.Title, level: e.Level, page: idx})
	}
	return buildSections(starts, pageCount), dropped
}

// sectionsFromOutline converts native bookmarks into sections.
func sectionsFromOutline(entries []OutlineEntry, pageCount int) []Section {
	starts := make([]sectionStart, 0, len(entries))
	for _, e := range entries {
		if e.PageIndex < 0 || e.PageIndex >= pageCount || e.Title == "" {
			continue
		}
		starts = append(starts, sectionStart{title: e.Title, level: e.Level, page: e.PageIndex})
	}
	return buildSections(starts, pageCount)
}
