package models

import (
	"time"

	"github.com/google/uuid"
)

// AnnotatorAnswer is one user's answer to one question on one video in one
// project. A user has at most one row per (video, question, project).
type AnnotatorAnswer struct {
	ID              uuid.UUID `json:"id"`
	VideoID         uuid.UUID `json:"video_id"`
	QuestionID      uuid.UUID `json:"question_id"`
	UserID          uuid.UUID `json:"user_id"`
	ProjectID       uuid.UUID `json:"project_id"`
	AnswerType      string    `json:"answer_type"`
	AnswerValue     string    `json:"answer_value"`
	ConfidenceScore *float64  `json:"confidence_score,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ReviewerGroundTruth is the single authoritative answer for one question on
// one video in one project, keyed (video, question, project). Later
// submissions overwrite earlier ones and record the submitting reviewer.
type ReviewerGroundTruth struct {
	VideoID     uuid.UUID `json:"video_id"`
	QuestionID  uuid.UUID `json:"question_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	ReviewerID  uuid.UUID `json:"reviewer_id"`
	AnswerType  string    `json:"answer_type"`
	AnswerValue string    `json:"answer_value"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
