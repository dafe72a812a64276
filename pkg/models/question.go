package models

import (
	"time"

	"github.com/google/uuid"
)

// Question type constants.
const (
	QuestionTypeSingle      = "single"
	QuestionTypeDescription = "description"
	QuestionTypeText        = "text"
)

// ValidQuestionTypes contains all valid question type values.
var ValidQuestionTypes = []string{QuestionTypeSingle, QuestionTypeDescription, QuestionTypeText}

// IsValidQuestionType checks if the given question type is valid.
func IsValidQuestionType(qtype string) bool {
	for _, t := range ValidQuestionTypes {
		if t == qtype {
			return true
		}
	}
	return false
}

// Question is an immutable prompt owned by exactly one question group.
// Text is globally unique across the whole catalog. Options, DisplayValues
// and OptionWeights are parallel lists and only set for single-choice
// questions.
type Question struct {
	ID            uuid.UUID `json:"id"`
	Text          string    `json:"text"`
	DisplayText   string    `json:"display_text"`
	QType         string    `json:"qtype"`
	Options       []string  `json:"options,omitempty"`
	DisplayValues []string  `json:"display_values,omitempty"`
	OptionWeights []float64 `json:"option_weights,omitempty"`
	DefaultOption *string   `json:"default_option,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	IsArchived    bool      `json:"is_archived"`
}

// HasOption reports whether opt is one of the question's options.
func (q *Question) HasOption(opt string) bool {
	for _, o := range q.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// QuestionGroup is a named, reusable bundle of questions presented together.
// Title is immutable and unique; the question set is fixed after creation,
// only display/metadata fields and question order may change.
type QuestionGroup struct {
	ID                   uuid.UUID `json:"id"`
	Title                string    `json:"title"`
	DisplayTitle         string    `json:"display_title"`
	Description          string    `json:"description"`
	IsReusable           bool      `json:"is_reusable"`
	IsAutoSubmit         bool      `json:"is_auto_submit"`
	VerificationFunction *string   `json:"verification_function,omitempty"`
	IsArchived           bool      `json:"is_archived"`
}

// QuestionGroupQuestion links a question into a group at a display position.
type QuestionGroupQuestion struct {
	QuestionGroupID uuid.UUID `json:"question_group_id"`
	QuestionID      uuid.UUID `json:"question_id"`
	DisplayOrder    int       `json:"display_order"`
}
