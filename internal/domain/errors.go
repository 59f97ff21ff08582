package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// document or resource does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, unknown entry type).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrStorageUnavailable is returned when the blob backend is not configured.
// Callers degrade to local-only mode; this must never surface as a hard
// failure to the editing user.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrUploadFailed wraps transient blob upload/fetch failures. The failing
// offload step is skipped and retried implicitly on the next save cycle.
var ErrUploadFailed = errors.New("upload failed")

// ErrDocumentTooLarge is returned when a save cycle exhausts every offload
// strategy and the document still exceeds the store's size ceiling.
// Handlers should map this to HTTP 413 with guidance to export a backup.
var ErrDocumentTooLarge = errors.New("document too large")

// ErrInvalidFormat is returned by the importer when an uploaded file is not
// a trip export. The in-memory state is left untouched.
var ErrInvalidFormat = errors.New("invalid format")
