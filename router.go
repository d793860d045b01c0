package kitabi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// RouteState is a state of the extraction router.
type RouteState string

const (
	StateSampling   RouteState = "sampling"
	StateRouting    RouteState = "routing"
	StateExtracting RouteState = "extracting"
	StateFallback   RouteState = "fallback"
	StateDone       RouteState = "done"
)

type routeEvent string

const (
	evDigital      routeEvent = "digital"       // language sample taken locally
	evScannedCloud routeEvent = "scanned_cloud" // scanned, cloud configured
	evScannedLocal routeEvent = "scanned_local" // scanned, no cloud
	evAccepted     routeEvent = "accepted"
	evRejected     routeEvent = "rejected"
	evResolved     routeEvent = "resolved"
	evExtracted    routeEvent = "extracted"
	evCloudFailed  routeEvent = "cloud_failed"
)

// routeTransitions is the complete dispatch table. A (state, event) pair
// missing here is a programming error.
var routeTransitions = map[RouteState]map[routeEvent]RouteState{
	StateSampling: {
		evDigital:      StateRouting,
		evScannedCloud: StateExtracting,
		evScannedLocal: StateFallback,
	},
	StateRouting: {
		evAccepted: StateExtracting,
		evRejected: StateFallback,
	},
	StateFallback: {
		evResolved: StateExtracting,
	},
	StateExtracting: {
		evExtracted:   StateDone,
		evCloudFailed: StateFallback,
	},
}

// LanguageSource records how the final language was decided.
type LanguageSource string

const (
	SourceModel     LanguageSource = "model"
	SourceCharRatio LanguageSource = "char_ratio"
	SourceDefault   LanguageSource = "default"
)

// Route is the audit trail of one routing pass.
type Route struct {
	Path           []RouteState   `json:"path"`
	LanguageSource LanguageSource `json:"language_source,omitempty"`
	ArabicRatio    float64        `json:"arabic_ratio,omitempty"`
	Suspect        bool           `json:"suspect,omitempty"`
	LowConfidence  bool           `json:"low_confidence,omitempty"`
	CloudFailed    bool           `json:"cloud_failed,omitempty"`
}

// Routed is the outcome of a routing pass.
type Routed struct {
	Verdict    LanguageVerdict
	Language   Language
	Route      Route
	Extraction ExtractionResult
	Analysis   *Analysis // cloud layout, when the cloud extracted the document
	Warnings   []Warning
	Degraded   bool
}

// ExtractionRouter decides how a classified document is extracted and runs
// that extraction over every page.
type ExtractionRouter struct {
	sampler    *PageSampler
	identifier *LanguageIdentifier
	validator  QualityValidator
	cloud      CloudAnalyzer // nil when not configured
	cfg        Config
	logger     *slog.Logger
	tracer     Tracer
}

// NewExtractionRouter wires a router. cloud, logger and tracer may be nil.
func NewExtractionRouter(s *PageSampler, li *LanguageIdentifier, cloud CloudAnalyzer, cfg Config, logger *slog.Logger, tracer Tracer) *ExtractionRouter {
	if logger == nil {
		logger = nopLogger
	}
	return &ExtractionRouter{
		sampler:    s,
		identifier: li,
		cloud:      cloud,
		cfg:        cfg,
		logger:     logger,
		tracer:     tracer,
	}
}

// RouteInput is what the router needs from classification. Front holds the
// pages sampled by the scanned detector.
type RouteInput struct {
	PDF            []byte
	PageCount      int
	Classification DocumentClassification
	Front          []PageSample
}

// Route runs the state machine to completion. The result always covers
// every page of the document.
func (rt *ExtractionRouter) Route(ctx context.Context, in RouteInput) (Routed, error) {
	return rt.run(ctx, in, StateDone)
}

// Decide runs the state machine up to, not including, extraction. It never
// calls the cloud service.
func (rt *ExtractionRouter) Decide(ctx context.Context, in RouteInput) (Routed, error) {
	return rt.run(ctx, in, StateExtracting)
}

func (rt *ExtractionRouter) run(ctx context.Context, in RouteInput, until RouteState) (Routed, error) {
	r := &routeRun{rt: rt, in: in}
	state := StateSampling
	r.out.Route.Path = []RouteState{state}
	for state != until {
		if err := ctx.Err(); err != nil {
			return Routed{}, err
		}
		ev, err := r.step(ctx, state)
		if err != nil {
			return Routed{}, err
		}
		next, ok := routeTransitions[state][ev]
		if !ok {
			return Routed{}, fmt.Errorf("router: no transition from %s on %s", state, ev)
		}
		rt.logger.Debug("route transition", "from", state, "event", ev, "to", next)
		state = next
		r.out.Route.Path = append(r.out.Route.Path, state)
	}
	return r.out, nil
}

// routeRun is the mutable state of a single pass. It never outlives Route.
type routeRun struct {
	rt     *ExtractionRouter
	in     RouteInput
	sample string
	out    Routed
}

func (r *routeRun) step(ctx context.Context, st RouteState) (routeEvent, error) {
	switch st {
	case StateSampling:
		return r.sampling(ctx)
	case StateRouting:
		return r.routing()
	case StateFallback:
		return r.fallback()
	case StateExtracting:
		return r.extracting(ctx)
	}
	return "", fmt.Errorf("router: unknown state %q", st)
}

func (r *routeRun) sampling(ctx context.Context) (routeEvent, error) {
	if r.in.Classification.IsScanned {
		if r.rt.cloud != nil {
			return evScannedCloud, nil
		}
		r.degrade("scanned document and no cloud service configured; using the local text layer")
		return evScannedLocal, nil
	}

	window := r.rt.cfg.languageWindow(r.in.PageCount)
	ctx, span := startSpan(ctx, r.rt.tracer, "kitabi.language",
		IntAttr("sample.start", window.Start), IntAttr("sample.end", window.End))
	defer span.End()

	samples, err := r.rt.sampler.Sample(ctx, r.in.PDF, r.in.PageCount, window)
	if err != nil {
		span.Error(err)
		return "", &StageError{Stage: StageLanguage, Err: err}
	}
	r.sample = joinSamples(samples)
	r.out.Verdict = r.rt.identifier.Identify(r.sample)
	span.SetAttr(
		StringAttr("language.raw_code", r.out.Verdict.RawCode),
		FloatAttr("language.confidence", r.out.Verdict.Confidence))
	return evDigital, nil
}

func (r *routeRun) routing() (routeEvent, error) {
	v, suspect := r.rt.validator.Apply(r.out.Verdict)
	r.out.Verdict = v
	if suspect {
		r.out.Route.Suspect = true
		r.rt.logger.Warn("suspect language verdict, treating sample as noise",
			"raw_code", v.RawCode, "sample_chars", v.SampleCharCount)
		r.warn(WarnSuspectGibberish, fmt.Sprintf("language model returned unsupported code %q", v.RawCode))
		return evRejected, nil
	}
	if v.Confidence < r.rt.cfg.MinLanguageConfidence {
		r.out.Route.LowConfidence = true
		r.rt.logger.Debug("low language confidence", "language", v.Language, "confidence", v.Confidence)
		r.warn(WarnLowConfidence, fmt.Sprintf("language model confidence %.2f below %.2f", v.Confidence, r.rt.cfg.MinLanguageConfidence))
		return evRejected, nil
	}
	r.out.Language = v.Language
	r.out.Route.LanguageSource = SourceModel
	return evAccepted, nil
}

func (r *routeRun) fallback() (routeEvent, error) {
	text := r.sample
	if strings.TrimSpace(text) == "" {
		text = joinSamples(r.in.Front)
	}
	r.resolveByRatio(text)
	return evResolved, nil
}

// resolveByRatio decides the language from the Arabic share of text.
func (r *routeRun) resolveByRatio(text string) {
	ratio, counted := ArabicRatio(text)
	r.out.Route.ArabicRatio = ratio
	if counted < r.rt.cfg.FallbackMinChars {
		r.out.Language = English
		r.out.Route.LanguageSource = SourceDefault
		r.degrade(fmt.Sprintf("language undetermined: only %d characters available", counted))
		return
	}
	r.out.Language = English
	if ratio > r.rt.cfg.ArabicRatioThreshold {
		r.out.Language = Arabic
	}
	r.out.Route.LanguageSource = SourceCharRatio
	r.rt.logger.Debug("language from script ratio", "ratio", ratio, "language", r.out.Language)
}

func (r *routeRun) extracting(ctx context.Context) (routeEvent, error) {
	if r.in.Classification.IsScanned {
		return r.extractScanned(ctx)
	}
	if r.out.Language == Arabic {
		if r.rt.cloud == nil {
			return "", &StageError{Stage: StageExtract, Err: fmt.Errorf("%w: arabic extraction requires the cloud service", ErrCloudUnavailable)}
		}
		res, a, err := r.rt.extractCloud(ctx, r.in.PDF, r.in.PageCount)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if !errors.Is(err, ErrIncompleteExtraction) && !errors.Is(err, ErrCloudUnavailable) {
				err = fmt.Errorf("%w: %w", ErrCloudUnavailable, err)
			}
			return "", &StageError{Stage: StageExtract, Err: err}
		}
		res.Language = Arabic
		r.out.Extraction, r.out.Analysis = res, a
		return evExtracted, nil
	}

	res, err := r.rt.extractLocal(ctx, r.in.PDF, r.in.PageCount)
	if err != nil {
		return "", &StageError{Stage: StageExtract, Err: err}
	}
	res.Language = r.out.Language
	r.out.Extraction = res
	return evExtracted, nil
}

// extractScanned sends scanned documents to the cloud when possible and
// otherwise returns the local text layer flagged as degraded.
func (r *routeRun) extractScanned(ctx context.Context) (routeEvent, error) {
	if r.rt.cloud != nil && !r.out.Route.CloudFailed {
		res, a, err := r.rt.extractCloud(ctx, r.in.PDF, r.in.PageCount)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			r.out.Route.CloudFailed = true
			r.rt.logger.Warn("cloud extraction failed for scanned document", "error", err)
			r.degrade(fmt.Sprintf("cloud extraction failed: %v", err))
			return evCloudFailed, nil
		}
		r.resolveFromPages(res)
		res.Language = r.out.Language
		r.out.Extraction, r.out.Analysis = res, a
		return evExtracted, nil
	}

	res, err := r.rt.extractLocal(ctx, r.in.PDF, r.in.PageCount)
	if err != nil {
		return "", &StageError{Stage: StageExtract, Err: err}
	}
	res.Language = r.out.Language
	if IsGibberish(truncateRunes(res.FullText, 4*r.rt.cfg.LanguageSampleChars)) {
		r.warn(WarnSuspectGibberish, "local text layer of scanned document looks like noise")
	}
	r.out.Extraction = res
	return evExtracted, nil
}

// resolveFromPages identifies the language of an OCR'd document from the
// same page window used for digital documents.
func (r *routeRun) resolveFromPages(res ExtractionResult) {
	window := r.rt.cfg.languageWindow(res.PagesExtracted)
	var b strings.Builder
	for i := window.Start; i < window.End; i++ {
		b.WriteString(res.PageText(i))
		b.WriteByte('\n')
	}
	text := b.String()

	v, suspect := r.rt.validator.Apply(r.rt.identifier.Identify(text))
	r.out.Verdict = v
	switch {
	case suspect:
		r.out.Route.Suspect = true
		r.warn(WarnSuspectGibberish, fmt.Sprintf("language model returned unsupported code %q on OCR text", v.RawCode))
	case v.Confidence >= r.rt.cfg.MinLanguageConfidence:
		r.out.Language = v.Language
		r.out.Route.LanguageSource = SourceModel
		return
	default:
		r.out.Route.LowConfidence = true
		r.warn(WarnLowConfidence, fmt.Sprintf("language model confidence %.2f below %.2f on OCR text", v.Confidence, r.rt.cfg.MinLanguageConfidence))
	}
	r.resolveByRatio(text)
}

func (r *routeRun) warn(kind WarningKind, msg string) {
	r.out.Warnings = append(r.out.Warnings, Warning{Kind: kind, Message: msg})
}

func (r *routeRun) degrade(msg string) {
	r.out.Degraded = true
	r.warn(WarnExtractionDegraded, msg)
}
