// Package common contains shared constants and sentinel errors used across
// heartwall components.
package common

// EventNewCard is the fan-out event name carrying a newly committed memory.
const EventNewCard = "new_card"

// Multipart form field names of the upload request.
const (
	FieldFile     = "file"
	FieldFullFile = "fullFile"
	FieldNickname = "nickname"
	FieldMessage  = "message"
)

// Text limits, counted in code points.
const (
	MaxNicknameLength = 10
	MaxMessageLength  = 30
)

// UploadSuccessMessage is returned alongside the saved record.
const UploadSuccessMessage = "File uploaded & saved!"

// GenericUploadFailure is shown when the server did not provide a reason.
const GenericUploadFailure = "failed to save memory"
