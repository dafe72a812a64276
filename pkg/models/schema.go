package models

import (
	"time"

	"github.com/google/uuid"
)

// Schema is an ordered set of question groups applied to projects.
// Name is unique. HasCustomDisplay gates per-video display overrides on
// projects using this schema.
type Schema struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	InstructionsURL  string    `json:"instructions_url,omitempty"`
	HasCustomDisplay bool      `json:"has_custom_display"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	IsArchived       bool      `json:"is_archived"`
}

// SchemaQuestionGroup links a question group into a schema at a display
// position.
type SchemaQuestionGroup struct {
	SchemaID        uuid.UUID `json:"schema_id"`
	QuestionGroupID uuid.UUID `json:"question_group_id"`
	DisplayOrder    int       `json:"display_order"`
}
