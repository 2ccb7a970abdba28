// Package models defines server-side data models persisted in the database.
package models

import "time"

// MemoryRecord is the durable unit shown on every gallery.
// ID and CreatedAt are assigned on the server and never by a client.
type MemoryRecord struct {
	ID           int64     `json:"id"`
	ImageURL     string    `json:"imageUrl"`
	FullImageURL string    `json:"fullImageUrl"`
	Nickname     string    `json:"nickname"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`

	// ImageKey and FullImageKey are the object-storage keys behind the URLs.
	ImageKey     string `json:"-"`
	FullImageKey string `json:"-"`
}

// Upload is one received artifact.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Submission is a parsed upload request. Full may be nil, in which case the
// cropped artifact stands in for both.
type Submission struct {
	Cropped  *Upload
	Full     *Upload
	Nickname string
	Message  string
}
