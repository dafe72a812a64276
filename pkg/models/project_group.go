package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectGroup is a named collection of projects used to organize the
// workspace. Name is unique. Projects in one group must not overlap on both
// videos and questions, so per-question results stay unambiguous within the
// group.
type ProjectGroup struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	IsArchived  bool      `json:"is_archived"`
}

// ProjectGroupProject links a project into a group.
type ProjectGroupProject struct {
	ProjectGroupID uuid.UUID `json:"project_group_id"`
	ProjectID      uuid.UUID `json:"project_id"`
}
