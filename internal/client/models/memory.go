// Package models defines the client's view of server payloads.
package models

import "time"

// Memory mirrors the server's MemoryRecord JSON.
type Memory struct {
	ID           int64     `json:"id"`
	ImageURL     string    `json:"imageUrl"`
	FullImageURL string    `json:"fullImageUrl"`
	Nickname     string    `json:"nickname"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Newer reports whether m sorts before o in a newest-first gallery.
// Ties on CreatedAt are broken by the larger ID.
func (m Memory) Newer(o Memory) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.After(o.CreatedAt)
	}
	return m.ID > o.ID
}

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	Message string  `json:"message"`
	Data    *Memory `json:"data"`
}

// Event is one real-time envelope.
type Event struct {
	Event string  `json:"event"`
	Data  *Memory `json:"data"`
}
