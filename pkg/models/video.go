package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxVideoUIDLength is the longest accepted video_uid.
const MaxVideoUIDLength = 255

// Video is one annotatable clip. VideoUID and URL are independently unique;
// when a record omits the UID it is derived from the URL's filename.
// Metadata is free-form and nil when none was supplied.
type Video struct {
	ID         uuid.UUID      `json:"id"`
	VideoUID   string         `json:"video_uid"`
	URL        string         `json:"url"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	IsArchived bool           `json:"is_archived"`
}
