package kitabi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Document is one PDF to process. Name is used for logs and records only.
type Document struct {
	Name    string
	Content []byte
}

// Pipeline classifies documents, extracts their text and recovers their
// structure. It is safe for concurrent use when its collaborators are.
type Pipeline struct {
	reader   LocalReader
	outline  OutlineReader // nil when reader has no bookmark support
	model    LanguageModel
	cloud    CloudAnalyzer
	cfg      Config
	logger   *slog.Logger
	tracer   Tracer
	sampler  *PageSampler
	detector *ScannedDocumentDetector
	router   *ExtractionRouter
	toc      TocPageExtractor
	headings HeadingTocGenerator
	offsets  PageOffsetResolver
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCloud sets the cloud OCR and layout service. Without it, Arabic
// digital documents fail with ErrCloudUnavailable and scanned documents
// get degraded local text.
func WithCloud(c CloudAnalyzer) Option {
	return func(p *Pipeline) { p.cloud = c }
}

// WithConfig replaces DefaultConfig.
func WithConfig(c Config) Option {
	return func(p *Pipeline) { p.cfg = c }
}

// WithLogger sets the structured logger. If not set, nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTracer enables spans around each stage.
func WithTracer(t Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// New builds a pipeline over a local reader and a language model. If
// reader also implements OutlineReader, native bookmarks are used for
// structure recovery.
func New(reader LocalReader, model LanguageModel, opts ...Option) (*Pipeline, error) {
	if reader == nil {
		return nil, errors.New("kitabi: nil LocalReader")
	}
	if model == nil {
		return nil, errors.New("kitabi: nil LanguageModel")
	}
	p := &Pipeline{reader: reader, model: model, cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kitabi: invalid config: %w", err)
	}
	if p.logger == nil {
		p.logger = nopLogger
	}
	if or, ok := reader.(OutlineReader); ok {
		p.outline = or
	}
	p.sampler = NewPageSampler(reader)
	p.detector = NewScannedDocumentDetector(p.sampler, p.cfg, p.logger)
	p.router = NewExtractionRouter(p.sampler, NewLanguageIdentifier(model, p.cfg), p.cloud, p.cfg, p.logger, p.tracer)
	p.toc = NewTocPageExtractor(p.cfg)
	p.headings = NewHeadingTocGenerator(p.cfg)
	return p, nil
}

// Config returns the thresholds the pipeline runs with.
func (p *Pipeline) Config() Config { return p.cfg }

// ProcessOption adjusts a single Process call.
type ProcessOption func(*processConfig)

type processConfig struct {
	offset int
	id     string
}

// WithPageOffset sets the offset added to printed TOC page numbers to get
// positional page indices. The default is 0.
func WithPageOffset(n int) ProcessOption {
	return func(c *processConfig) { c.offset = n }
}

// WithRecordID sets the record ID instead of generating one.
func WithRecordID(id string) ProcessOption {
	return func(c *processConfig) { c.id = id }
}

// Process runs the whole pipeline over doc. Unreadable documents, a missing
// cloud service for Arabic text and incomplete extractions are errors; every
// other problem is recorded as a warning on the returned Record.
func (p *Pipeline) Process(ctx context.Context, doc Document, opts ...ProcessOption) (Record, error) {
	var pc processConfig
	for _, opt := range opts {
		opt(&pc)
	}
	if pc.id == "" {
		pc.id = NewID()
	}

	ctx, span := startSpan(ctx, p.tracer, "kitabi.process",
		StringAttr("document.name", doc.Name), IntAttr("document.bytes", len(doc.Content)))
	defer span.End()
	start := time.Now()

	rec, err := p.process(ctx, doc, pc)
	if err != nil {
		span.Error(err)
		return Record{}, err
	}
	span.SetAttr(
		IntAttr("document.pages", rec.PageCount),
		StringAttr("document.language", string(rec.Language)),
		StringAttr("extract.method", string(rec.Extraction.Method)),
		BoolAttr("document.degraded", rec.Degraded))
	p.logger.Info("document processed",
		"name", doc.Name,
		"id", rec.ID,
		"pages", rec.PageCount,
		"scanned", rec.Classification.IsScanned,
		"language", rec.Language,
		"method", rec.Extraction.Method,
		"structure", rec.StructureSource,
		"sections", len(rec.Sections),
		"degraded", rec.Degraded,
		"duration", time.Since(start))
	return rec, nil
}

func (p *Pipeline) process(ctx context.Context, doc Document, pc processConfig) (Record, error) {
	in, err := p.classify(ctx, doc.Content)
	if err != nil {
		return Record{}, err
	}
	routed, err := p.router.Route(ctx, in)
	if err != nil {
		return Record{}, stageError(ctx, StageRoute, err)
	}

	st := p.recoverStructure(ctx, structureInput{
		pdf:        doc.Content,
		pageCount:  in.PageCount,
		extraction: routed.Extraction,
		analysis:   routed.Analysis,
		offset:     pc.offset,
	})
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	return Record{
		ID:              pc.id,
		Name:            doc.Name,
		PageCount:       in.PageCount,
		Classification:  in.Classification,
		Verdict:         routed.Verdict,
		Language:        routed.Language,
		Route:           routed.Route,
		Extraction:      routed.Extraction,
		TocEntries:      st.entries,
		Sections:        st.sections,
		StructureSource: st.source,
		Warnings:        append(routed.Warnings, st.warnings...),
		Degraded:        routed.Degraded,
		CreatedAt:       NowUnix(),
	}, nil
}

// classify counts pages and runs scanned detection.
func (p *Pipeline) classify(ctx context.Context, pdf []byte) (RouteInput, error) {
	ctx, span := startSpan(ctx, p.tracer, "kitabi.classify")
	defer span.End()

	n, err := p.sampler.PageCount(ctx, pdf)
	if err != nil {
		span.Error(err)
		return RouteInput{}, stageError(ctx, StageClassify, err)
	}
	c, front, err := p.detector.classify(ctx, pdf, n)
	if err != nil {
		span.Error(err)
		return RouteInput{}, stageError(ctx, StageClassify, err)
	}
	span.SetAttr(
		IntAttr("document.pages", n),
		BoolAttr("document.scanned", c.IsScanned),
		FloatAttr("document.avg_chars", c.AvgCharsPerPage))
	return RouteInput{PDF: pdf, PageCount: n, Classification: c, Front: front}, nil
}

// Classification is the cloud-free verdict on a document.
type Classification struct {
	PageCount  int                    `json:"page_count"`
	Document   DocumentClassification `json:"document"`
	Verdict    LanguageVerdict        `json:"verdict"`
	Language   Language               `json:"language,omitempty"`
	Route      Route                  `json:"route"`
	Warnings   []Warning              `json:"warnings,omitempty"`
	NeedsCloud bool                   `json:"needs_cloud"`
}

// Classify decides whether pdf is scanned and which language it is in
// without extracting it. It never calls the cloud service. For scanned
// documents with a cloud service configured the language is only known
// after OCR, so Language is left empty.
func (p *Pipeline) Classify(ctx context.Context, pdf []byte) (Classification, error) {
	in, err := p.classify(ctx, pdf)
	if err != nil {
		return Classification{}, err
	}
	routed, err := p.router.Decide(ctx, in)
	if err != nil {
		return Classification{}, stageError(ctx, StageRoute, err)
	}
	return Classification{
		PageCount:  in.PageCount,
		Document:   in.Classification,
		Verdict:    routed.Verdict,
		Language:   routed.Language,
		Route:      routed.Route,
		Warnings:   routed.Warnings,
		NeedsCloud: (in.Classification.IsScanned && p.cloud != nil) || routed.Language == Arabic,
	}, nil
}

// stageError attributes err to stage unless it already carries a stage or
// is a cancellation.
func stageError(ctx context.Context, stage Stage, err error) error {
	var se *StageError
	if errors.As(err, &se) || ctx.Err() != nil {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
