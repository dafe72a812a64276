package models

import (
	"time"

	"github.com/google/uuid"
)

// User type constants. Model accounts carry confidence scores and may never
// cross into human roles (and vice versa).
const (
	UserTypeHuman = "human"
	UserTypeModel = "model"
	UserTypeAdmin = "admin"
)

// ValidUserTypes contains all valid user_type values.
var ValidUserTypes = []string{UserTypeHuman, UserTypeModel, UserTypeAdmin}

// IsValidUserType checks if the given user type is valid.
func IsValidUserType(userType string) bool {
	for _, t := range ValidUserTypes {
		if t == userType {
			return true
		}
	}
	return false
}

// User represents an account. UserID (the login handle) and Email are
// independently unique; Email is nil for model accounts.
type User struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"user_id"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	UserType     string    `json:"user_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsArchived   bool      `json:"is_archived"`
}

// IsModel reports whether the account is a model account.
func (u *User) IsModel() bool {
	return u.UserType == UserTypeModel
}
