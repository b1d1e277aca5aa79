package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"caredocs/internal/http/middleware"
	"caredocs/internal/ingest"
	"caredocs/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// ExistingDocumentID is set only for DUPLICATE_CONTENT so a caller can
	// offer "view existing document" instead of retrying blindly.
	ExistingDocumentID string `json:"existing_document_id,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by
// middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking
// internal details (no filesystem paths, no SQL).
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// writeIngestError translates the ingestion error taxonomy to HTTP. Every
// kind except STORAGE_FAILURE is terminal for the given input; 503 signals
// the one class where repeating the whole call may help.
func writeIngestError(c *fiber.Ctx, err error) error {
	var dup *ingest.DuplicateContentError
	if errors.As(err, &dup) {
		return c.Status(fiber.StatusConflict).JSON(errorPayload{
			RequestID: requestIDFromCtx(c),
			Error: errorEnvelope{
				Code:               "DUPLICATE_CONTENT",
				Message:            "identical content already exists in this scope",
				ExistingDocumentID: dup.ExistingID,
			},
		})
	}

	switch {
	case errors.Is(err, ingest.ErrInputTooLarge):
		return writeError(c, fiber.StatusRequestEntityTooLarge, "INPUT_TOO_LARGE", "upload exceeds the maximum allowed size")
	case errors.Is(err, ingest.ErrMissingRequiredField):
		return writeError(c, fiber.StatusBadRequest, "MISSING_REQUIRED_FIELD", err.Error())
	case errors.Is(err, ingest.ErrInvalidCategory):
		return writeError(c, fiber.StatusBadRequest, "INVALID_CATEGORY", "category is not in the allowed set")
	case errors.Is(err, ingest.ErrResidentNotFound):
		return writeError(c, fiber.StatusNotFound, "RESIDENT_NOT_FOUND", "resident not found")
	case errors.Is(err, ingest.ErrFacilityNotFound):
		return writeError(c, fiber.StatusNotFound, "FACILITY_NOT_FOUND", "facility not found or inactive")
	case errors.Is(err, ingest.ErrFacilityMismatch):
		return writeError(c, fiber.StatusUnprocessableEntity, "FACILITY_MISMATCH", "resident does not belong to the given facility")
	case errors.Is(err, ingest.ErrMissingFacility):
		return writeError(c, fiber.StatusBadRequest, "MISSING_FACILITY", "a facility must be given or implied by your scope")
	case errors.Is(err, ingest.ErrAccessDenied):
		return writeError(c, fiber.StatusForbidden, "ACCESS_DENIED", "you may not ingest documents for this facility")
	case errors.Is(err, ingest.ErrUnsupportedType):
		return writeError(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", "detected content type is not allowed")
	case errors.Is(err, ingest.ErrExtensionNotAllowed):
		return writeError(c, fiber.StatusUnsupportedMediaType, "EXTENSION_NOT_ALLOWED", "file extension is not allowed")
	case errors.Is(err, ingest.ErrTypeExtensionMismatch):
		return writeError(c, fiber.StatusUnsupportedMediaType, "TYPE_EXTENSION_MISMATCH", "file extension does not match the detected content type")
	case errors.Is(err, ingest.ErrUnverifiableType):
		return writeError(c, fiber.StatusUnsupportedMediaType, "UNVERIFIABLE_TYPE", "content type could not be verified for this extension")
	case errors.Is(err, ingest.ErrStorage):
		return writeError(c, fiber.StatusServiceUnavailable, "STORAGE_FAILURE", "storage failure, the request may be retried")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error
// responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
