package kitabi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrDocumentUnreadable means the PDF could not be opened (corrupt or
	// encrypted). It is fatal for the document and never retried.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrCloudUnavailable means extraction required the cloud service and it
	// was not configured or could not be reached.
	ErrCloudUnavailable = errors.New("cloud service unavailable")

	// ErrIncompleteExtraction means an extractor returned fewer pages than the
	// document has.
	ErrIncompleteExtraction = errors.New("extraction did not cover every page")

	// ErrNotFound is returned by stores for unknown record IDs.
	ErrNotFound = errors.New("not found")
)

// Stage names a step of the pipeline.
type Stage string

const (
	StageClassify  Stage = "classify"
	StageLanguage  Stage = "language"
	StageRoute     Stage = "route"
	StageExtract   Stage = "extract"
	StageStructure Stage = "structure"
)

// StageError attributes a failure to the pipeline stage where it happened.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrHTTP is a non-success response from a remote service.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration // parsed from the Retry-After header; 0 if absent
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses a Retry-After header given either as seconds or as
// an HTTP date. It returns 0 when the header is empty or malformed.
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// WarningKind classifies a non-fatal condition recorded on a Record.
type WarningKind string

const (
	WarnExtractionDegraded WarningKind = "extraction_degraded"
	WarnSuspectGibberish   WarningKind = "suspect_gibberish"
	WarnLowConfidence      WarningKind = "low_confidence_language"
	WarnTocNotFound        WarningKind = "toc_not_found"
	WarnEntryOutOfRange    WarningKind = "toc_entry_out_of_range"
)

// Warning is a recoverable condition the pipeline worked around.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}
