package quotation

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("quotation not found")

// GenerationUnavailableError reports that the AI draft call exhausted its
// retry budget. The quotation stays in draft; the operator enters items by
// hand instead.
type GenerationUnavailableError struct {
	Attempts int
	LastErr  error
}

func (e *GenerationUnavailableError) Error() string {
	return fmt.Sprintf("draft generation unavailable after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *GenerationUnavailableError) Unwrap() error { return e.LastErr }

// FontRegistrationError is fatal for the renderer that raised it. No layout
// is attempted once registration has failed.
type FontRegistrationError struct {
	Font string
	Err  error
}

func (e *FontRegistrationError) Error() string {
	return fmt.Sprintf("font registration failed (%s): %v", e.Font, e.Err)
}

func (e *FontRegistrationError) Unwrap() error { return e.Err }

// RenderDeterminismViolation marks an internal defect: two renders of one
// content hash disagreed. It is never shown to customers.
type RenderDeterminismViolation struct {
	ContentHash string
}

func (e *RenderDeterminismViolation) Error() string {
	return "render determinism violated for content hash " + e.ContentHash
}

// DeliveryTransientError is a network/timeout class failure; the dispatcher
// retries it up to its bound.
type DeliveryTransientError struct {
	Err error
}

func (e *DeliveryTransientError) Error() string {
	return "transient delivery failure: " + e.Err.Error()
}

func (e *DeliveryTransientError) Unwrap() error { return e.Err }

// DeliveryPermanentError means retrying is futile (invalid recipient,
// rejected message). It is surfaced immediately.
type DeliveryPermanentError struct {
	Err error
}

func (e *DeliveryPermanentError) Error() string {
	return "permanent delivery failure: " + e.Err.Error()
}

func (e *DeliveryPermanentError) Unwrap() error { return e.Err }

// DeliveryFailedError carries the outcome of an exhausted or aborted
// dispatch: how many attempts were made and what the last cause was.
type DeliveryFailedError struct {
	Attempts int
	LastErr  error
}

func (e *DeliveryFailedError) Error() string {
	return fmt.Sprintf("delivery failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *DeliveryFailedError) Unwrap() error { return e.LastErr }

// StaleDocumentError rejects a signature captured against a superseded
// artifact. The document must be regenerated and resent before signing can
// be retried.
type StaleDocumentError struct {
	SignedHash  string
	CurrentHash string
}

func (e *StaleDocumentError) Error() string {
	return fmt.Sprintf("signature against stale document: signed %.12s, current %.12s", e.SignedHash, e.CurrentHash)
}

// TransitionError rejects a lifecycle move not present in the status graph.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}
