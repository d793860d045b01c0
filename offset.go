package kitabi

// PageOffsetResolver maps printed TOC page numbers to positional indices.
// It never guesses the offset; callers supply it or accept the default 0.
type PageOffsetResolver struct{}

// Resolve returns copies of entries with ResolvedPageIndex set to
// PrintedPage + offset. Entries without a printed page stay unresolved.
// The input is not modified.
func (PageOffsetResolver) Resolve(entries []TocEntry, offset int) []TocEntry {
	out := make([]TocEntry, len(entries))
	for i, e := range entries {
		out[i] = TocEntry{Title: e.Title, Level: e.Level}
		if e.PrintedPage == nil {
			continue
		}
		printed := *e.PrintedPage
		resolved := printed + offset
		out[i].PrintedPage = &printed
		out[i].ResolvedPageIndex = &resolved
	}
	return out
}
