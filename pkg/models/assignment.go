package models

import (
	"time"

	"github.com/google/uuid"
)

// Project role constants. Admin accounts have implicit access to every
// project and are never stored as project-scoped links.
const (
	RoleAnnotator = "annotator"
	RoleReviewer  = "reviewer"
	RoleAdmin     = "admin"
	RoleModel     = "model"
)

// ValidRoles contains all valid project role values.
var ValidRoles = []string{RoleAnnotator, RoleReviewer, RoleAdmin, RoleModel}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleAllowedForUserType reports whether a stored project role is legal for
// the given user_type: model accounts take only the model role, human
// accounts only annotator or reviewer.
func RoleAllowedForUserType(role, userType string) bool {
	switch userType {
	case UserTypeModel:
		return role == RoleModel
	case UserTypeHuman:
		return role == RoleAnnotator || role == RoleReviewer
	default:
		return false
	}
}

// ProjectUserRole links a user to a project with a role. UserWeight feeds
// the weighted majority vote over annotator answers.
type ProjectUserRole struct {
	ProjectID  uuid.UUID `json:"project_id"`
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	UserWeight float64   `json:"user_weight"`
	AssignedAt time.Time `json:"assigned_at"`
	IsArchived bool      `json:"is_archived"`
}
