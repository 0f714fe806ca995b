package samples

import "time"

// Sample is an uploaded sample image with its stored object keys.
type Sample struct {
	ID           string    `json:"id"`
	UserID       string    `json:"-"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	StorageKey   string    `json:"-"`
	ThumbnailKey string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
