package kitabi

import (
	"context"
	"fmt"
)

// structureInput is everything structure recovery reads.
type structureInput struct {
	pdf        []byte
	pageCount  int
	extraction ExtractionResult
	analysis   *Analysis
	offset     int
}

// structureResult is the recovered outline of a document.
type structureResult struct {
	source   StructureSource
	entries  []TocEntry
	sections []Section
	warnings []Warning
}

// recoverStructure tries the native outline, then a TOC page, then cloud
// headings. Finding nothing is not an error.
func (p *Pipeline) recoverStructure(ctx context.Context, in structureInput) structureResult {
	ctx, span := startSpan(ctx, p.tracer, "kitabi.structure", IntAttr("structure.offset", in.offset))
	defer span.End()

	res := p.structure(ctx, in)
	span.SetAttr(StringAttr("structure.source", string(res.source)), IntAttr("structure.sections", len(res.sections)))
	p.logger.Debug("structure recovered", "source", res.source, "sections", len(res.sections), "entries", len(res.entries))
	return res
}

func (p *Pipeline) structure(ctx context.Context, in structureInput) structureResult {
	var res structureResult

	if p.outline != nil {
		outline, err := p.outline.Outline(ctx, in.pdf)
		switch {
		case err != nil:
			p.logger.Debug("outline unavailable", "error", err)
		case len(outline) >= p.cfg.MinOutlineEntries:
			if sections := sectionsFromOutline(outline, in.pageCount); len(sections) >= p.cfg.MinOutlineEntries {
				res.source, res.sections = StructureOutline, sections
				return res
			}
		}
	}

	if entries := p.findToc(in); len(entries) > 0 {
		resolved := p.offsets.Resolve(entries, in.offset)
		sections, dropped := SectionsFromEntries(resolved, in.pageCount)
		if dropped > 0 {
			res.warnings = append(res.warnings, Warning{
				Kind:    WarnEntryOutOfRange,
				Message: fmt.Sprintf("%d of %d toc entries fall outside the document with offset %d", dropped, len(entries), in.offset),
			})
		}
		if len(sections) > 0 {
			res.source, res.entries, res.sections = StructureTocPage, resolved, sections
			return res
		}
	}

	if in.analysis != nil {
		if sections := p.headings.Generate(*in.analysis, in.pageCount); len(sections) > 0 {
			res.source, res.sections = StructureHeadings, sections
			return res
		}
	}

	res.source = StructureNone
	res.warnings = append(res.warnings, Warning{Kind: WarnTocNotFound, Message: "no outline, toc page or headings found"})
	return res
}

// findToc searches the candidate windows for a TOC page. A TOC that spills
// onto the following pages is extended while those pages keep page order.
func (p *Pipeline) findToc(in structureInput) []TocEntry {
	page := func(i int) TocPage {
		tp := TocPage{Text: in.extraction.PageText(i)}
		if ap, ok := in.analysis.Page(i); ok {
			tp.Tables = ap.Tables
		}
		return tp
	}
	for _, window := range tocCandidates(p.cfg, in.pageCount, in.extraction.PageText) {
		for _, i := range window {
			entries := p.toc.Extract(page(i))
			if len(entries) == 0 {
				continue
			}
			for j := i + 1; j < in.pageCount; j++ {
				more := p.toc.Continue(page(j), *entries[len(entries)-1].PrintedPage)
				if len(more) == 0 {
					break
				}
				entries = append(entries, more...)
			}
			p.logger.Debug("toc page found", "page", i, "entries", len(entries))
			return entries
		}
	}
	return nil
}
