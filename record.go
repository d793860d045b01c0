package kitabi

// Record is the processed form of one document.
type Record struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	PageCount       int                    `json:"page_count"`
	Classification  DocumentClassification `json:"classification"`
	Verdict         LanguageVerdict        `json:"verdict"`
	Language        Language               `json:"language"`
	Route           Route                  `json:"route"`
	Extraction      ExtractionResult       `json:"extraction"`
	TocEntries      []TocEntry             `json:"toc_entries,omitempty"`
	Sections        []Section              `json:"sections"`
	StructureSource StructureSource        `json:"structure_source"`
	Warnings        []Warning              `json:"warnings,omitempty"`
	Degraded        bool                   `json:"degraded"`
	CreatedAt       int64                  `json:"created_at"`
}

// PageText returns the text of positional page i.
func (r Record) PageText(i int) string { return r.Extraction.PageText(i) }

// SectionText returns the text of every page in s, joined by PageBreak.
func (r Record) SectionText(s Section) string {
	start := max(s.PageStart, 0)
	end := min(s.PageEnd, len(r.Extraction.PageBoundaries)-1)
	if start > end {
		return ""
	}
	from := r.Extraction.PageBoundaries[start]
	to := len(r.Extraction.FullText)
	if end+1 < len(r.Extraction.PageBoundaries) {
		to = r.Extraction.PageBoundaries[end+1] - len(PageBreak)
	}
	return r.Extraction.FullText[from:to]
}

// HasWarning reports whether the record carries a warning of kind k.
func (r Record) HasWarning(k WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == k {
			return true
		}
	}
	return false
}

// Summary returns the listing view of r.
func (r Record) Summary() RecordSummary {
	return RecordSummary{
		ID:              r.ID,
		Name:            r.Name,
		PageCount:       r.PageCount,
		Language:        r.Language,
		IsScanned:       r.Classification.IsScanned,
		Method:          r.Extraction.Method,
		StructureSource: r.StructureSource,
		Sections:        len(r.Sections),
		Degraded:        r.Degraded,
		CreatedAt:       r.CreatedAt,
	}
}

// RecordSummary is a Record without its text.
type RecordSummary struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	PageCount       int              `json:"page_count"`
	Language        Language         `json:"language"`
	IsScanned       bool             `json:"is_scanned"`
	Method          ExtractionMethod `json:"method"`
	StructureSource StructureSource  `json:"structure_source"`
	Sections        int              `json:"sections"`
	Degraded        bool             `json:"degraded"`
	CreatedAt       int64            `json:"created_at"`
}
