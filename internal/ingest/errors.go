package ingest

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ingestion pipeline. All of them are terminal
// validation outcomes except ErrStorage: the input bytes are static, so a
// validation verdict never changes on retry. ErrStorage is the only class a
// caller may reasonably retry (by repeating the whole ingest call).
var (
	ErrInputTooLarge         = errors.New("upload exceeds the maximum allowed size")
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrInvalidCategory       = errors.New("category is not in the allowed set")
	ErrResidentNotFound      = errors.New("resident not found")
	ErrFacilityNotFound      = errors.New("facility not found or inactive")
	ErrFacilityMismatch      = errors.New("resident does not belong to the given facility")
	ErrMissingFacility       = errors.New("no facility given and none implied by requester scope")
	ErrAccessDenied          = errors.New("requester scope does not cover the resolved facility")
	ErrUnsupportedType       = errors.New("detected content type is not allowed")
	ErrExtensionNotAllowed   = errors.New("file extension is not allowed")
	ErrTypeExtensionMismatch = errors.New("file extension does not match the detected content type")
	ErrUnverifiableType      = errors.New("content type could not be verified for this extension")
	ErrStorage               = errors.New("storage failure")
)

// DuplicateContentError reports that identical content already exists within
// the dedup scope. ExistingID identifies the surviving record so callers can
// offer "view existing document" instead of a blind retry.
type DuplicateContentError struct {
	ExistingID string
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("duplicate content: document %s already exists in this scope", e.ExistingID)
}

// StorageError wraps a transient byte-store or database failure. It unwraps
// to ErrStorage so callers can distinguish the retryable class without
// inspecting the underlying error.
func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
