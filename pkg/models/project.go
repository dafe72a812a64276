package models

import (
	"time"

	"github.com/google/uuid"
)

// Project binds a schema to a set of videos. Name is unique and SchemaID
// never changes after creation.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	SchemaID    uuid.UUID `json:"schema_id"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	IsArchived  bool      `json:"is_archived"`
}

// ProjectVideo links a video into a project.
type ProjectVideo struct {
	ProjectID uuid.UUID `json:"project_id"`
	VideoID   uuid.UUID `json:"video_id"`
	AddedAt   time.Time `json:"added_at"`
}

// DisplayOverride substitutes display text and option labels for one
// question on one video in one project, without touching the underlying
// question. Rows are wholly recomputed by the display diff on each project
// sync. CustomOptionValues maps original option label to override label.
type DisplayOverride struct {
	ProjectID          uuid.UUID         `json:"project_id"`
	VideoID            uuid.UUID         `json:"video_id"`
	QuestionID         uuid.UUID         `json:"question_id"`
	CustomDisplayText  *string           `json:"custom_display_text,omitempty"`
	CustomOptionValues map[string]string `json:"custom_option_values,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}
