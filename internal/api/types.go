package api

import "time"

// Post is a published content item on a panchayat site.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	CoverKey    string    `json:"cover_key,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Announcement is a short notice shown on the public site.
type Announcement struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Scheme is a government scheme entry with its attached documents.
type Scheme struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// Document is stored-file metadata. FileKey feeds the media URL cache.
type Document struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	FileKey  string `json:"file_key"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// SignedURL is a time-limited URL for direct access to a stored resource.
type SignedURL struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"` // seconds
}

// listResponse is the backend's envelope for collection endpoints.
type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
