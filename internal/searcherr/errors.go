// Package searcherr defines the error kinds from spec §7, shared across every
// Core component so the Scheduler can distinguish recoverable degradation
// (absorbed at the component boundary) from an unrecoverable turn failure.
package searcherr

import "errors"

// Sentinel kinds. Components wrap these with context via fmt.Errorf("...: %w", Kind)
// or the New* constructors below; callers compare with errors.Is.
var (
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")
	ErrLLMUnavailable       = errors.New("llm unavailable after retries")
	ErrLLMParseError        = errors.New("llm response could not be parsed as json")
	ErrVectorStoreError     = errors.New("vector store request failed")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrDeadlineExceeded     = errors.New("turn deadline exceeded")
)

// wrapped pairs a sentinel kind with an optional underlying cause, preserving
// both errors.Is(err, Kind) and the original message via Unwrap/Error.
type wrapped struct {
	kind  error
	cause error
}

func (w *wrapped) Error() string {
	if w.cause == nil {
		return w.kind.Error()
	}
	return w.kind.Error() + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() []error {
	if w.cause == nil {
		return []error{w.kind}
	}
	return []error{w.kind, w.cause}
}

func NewEmbeddingUnavailable(cause error) error { return &wrapped{ErrEmbeddingUnavailable, cause} }
func NewLLMUnavailable(cause error) error       { return &wrapped{ErrLLMUnavailable, cause} }
func NewLLMParseError(cause error) error        { return &wrapped{ErrLLMParseError, cause} }
func NewVectorStoreError(cause error) error     { return &wrapped{ErrVectorStoreError, cause} }
func NewProfileNotFound(userID string) error {
	return &wrapped{ErrProfileNotFound, errors.New("user_id=" + userID)}
}
func NewDeadlineExceeded(cause error) error { return &wrapped{ErrDeadlineExceeded, cause} }
