// Package kitabi classifies PDF books and recovers their structure.
//
// For each document it decides whether the pages carry a usable text layer
// or are scanned images, which of Arabic or English dominates, and from that
// which extractor runs over the full document: the free local text reader,
// or the paid cloud OCR and layout service. It then recovers a section
// outline from native bookmarks, a table-of-contents page or heading
// paragraphs.
//
// # Quick Start
//
//	reader := pdf.NewReader()
//	model, _ := lingua.New()
//	client, _ := azure.New(endpoint, key)
//	cloud := kitabi.WithRetry(client)
//
//	p, err := kitabi.New(reader, model,
//		kitabi.WithCloud(cloud),
//		kitabi.WithLogger(logger),
//	)
//	rec, err := p.Process(ctx, kitabi.Document{Name: "book.pdf", Content: data},
//		kitabi.WithPageOffset(12))
//
// # Core Interfaces
//
// The root package defines the contracts the implementations satisfy:
//
//   - [LocalReader]: embedded text layer reader; [OutlineReader] adds bookmarks
//   - [CloudAnalyzer]: OCR and layout analysis with page ranges
//   - [LanguageModel]: pretrained language identifier
//   - [Store]: persistence of processed records
//   - [Tracer]: spans around each pipeline stage
//
// # Included Implementations
//
// Readers: ingest/pdf (ledongthuc/pdf text, pdfcpu structure).
// Cloud: provider/azure (Document Intelligence layout model).
// Language: provider/lingua (lingua-go).
// Storage: store/sqlite, store/postgres.
// Observability: observer (OpenTelemetry).
// Rendering: export (Markdown and HTML outlines).
//
// See cmd/kitabi for a complete command-line application.
package kitabi
