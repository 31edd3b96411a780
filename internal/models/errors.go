package models

import "errors"

var (
	// ErrNotFound is returned by result stores for unknown keys.
	ErrNotFound = errors.New("results not found")
	// ErrAlreadyExists is returned by result stores when a key is taken.
	ErrAlreadyExists = errors.New("result key already exists")
	// ErrOCRUnavailable means no OCR collaborator is configured or reachable.
	// It aborts the whole batch.
	ErrOCRUnavailable = errors.New("OCR service not configured")
	// ErrUnsupportedInput marks a file whose content type is not accepted.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrNoFiles is returned when a request carries no files.
	ErrNoFiles = errors.New("no files provided")
)
