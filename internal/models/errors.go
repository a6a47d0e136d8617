package models

import (
	"errors"
	"fmt"
)

// Error kinds for the fetch stage.
const (
	FetchTransient     = "transient"
	FetchAuthorization = "authorization"
)

// Error kinds for the LLM stages.
const (
	LLMTimeout        = "timeout"
	LLMMalformedReply = "malformed_reply"
)

// FetchError is returned by the fetcher. Transient errors are retryable
// with backoff; authorization errors are surfaced immediately.
type FetchError struct {
	Kind string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewTransientFetchError wraps a retryable network failure.
func NewTransientFetchError(err error) *FetchError {
	return &FetchError{Kind: FetchTransient, Err: err}
}

// NewAuthFetchError wraps a non-retryable authorization failure.
func NewAuthFetchError(err error) *FetchError {
	return &FetchError{Kind: FetchAuthorization, Err: err}
}

// IsAuthorizationError reports whether err is a non-retryable auth failure.
func IsAuthorizationError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchAuthorization
}

// IsTransientError reports whether err is retryable with backoff.
func IsTransientError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchTransient
}

// ConversionError records an unsupported node type met during markdown
// conversion. Recoverable: the converter degrades the node to its plain
// text, so this never aborts a document.
type ConversionError struct {
	NodeType string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("unsupported content node type %q, degraded to plain text", e.NodeType)
}

// ExtractionError is a non-fatal stage-1 failure; the basic note written
// before extraction remains the final artifact for that document.
type ExtractionError struct {
	Kind string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ConsolidationError is a non-fatal stage-2 failure; the caller falls back
// to the unconsolidated list truncated to the threshold.
type ConsolidationError struct {
	Kind string
	Err  error
}

func (e *ConsolidationError) Error() string {
	return fmt.Sprintf("consolidation failed (%s): %v", e.Kind, e.Err)
}

func (e *ConsolidationError) Unwrap() error { return e.Err }

// WriteError is fatal for the affected document only; the batch continues.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed for %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ErrCredentialsNotFound is returned by a credential resolver when no
// usable credential bundle exists. Batch-fatal at startup.
var ErrCredentialsNotFound = errors.New("credentials not found")

// ErrLockHeld is returned when another sync run holds the run lock.
var ErrLockHeld = errors.New("run lock held by another process")

// ErrDocumentNotFound is returned when a requested document id is not
// present in the fetch window.
var ErrDocumentNotFound = errors.New("document not found")
