// Package common defines shared constants and sentinel errors used across
// client and server layers of heartwall. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Validation errors. These never reach storage.
	ErrMissingArtifact = errors.New("cropped image is required")
	ErrEmptyArtifact   = errors.New("image is empty")
	ErrEmptyMessage    = errors.New("message is required")
	ErrMessageTooLong  = errors.New("message is too long")
	ErrNicknameTooLong = errors.New("nickname is too long")
	ErrNotImage        = errors.New("content type is not an image")

	// Transform errors.
	ErrDecode = errors.New("image cannot be decoded")

	// Storage errors.
	ErrBlobWrite     = errors.New("blob write failed")
	ErrMetadataWrite = errors.New("metadata write failed")

	// Client flow errors.
	ErrUploadInProgress = errors.New("upload already in progress")
	ErrNoSession        = errors.New("no image selected")
)

// IsValidation reports whether err is one of the submission validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingArtifact) ||
		errors.Is(err, ErrEmptyArtifact) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, ErrNicknameTooLong) ||
		errors.Is(err, ErrNotImage)
}
