package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Input record types for each batch kind. The JSON shape follows the
// exported workspace files: is_active in transit maps to is_archived in
// storage, and an omitted is_active means active.

// VideoRecord is one video in a batch. When VideoUID is empty it is derived
// from the URL's filename.
type VideoRecord struct {
	VideoUID string          `json:"video_uid,omitempty"`
	URL      string          `json:"url"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	IsActive *bool           `json:"is_active,omitempty"`
}

// UserRecord is one account in a batch. UserID is the login handle; Email is
// forbidden for model accounts and required otherwise.
type UserRecord struct {
	UserID   string  `json:"user_id"`
	Email    *string `json:"email,omitempty"`
	Password string  `json:"password"`
	UserType string  `json:"user_type"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// QuestionRecord is one question inside a question group record. The
// option fields only apply to single-choice questions.
type QuestionRecord struct {
	QType         string    `json:"qtype"`
	Text          string    `json:"text"`
	DisplayText   string    `json:"display_text,omitempty"`
	Options       []string  `json:"options,omitempty"`
	DisplayValues []string  `json:"display_values,omitempty"`
	OptionWeights []float64 `json:"option_weights,omitempty"`
	DefaultOption *string   `json:"default_option,omitempty"`
}

// QuestionGroupRecord is one question group with its full question list.
// The question set is fixed after creation; only display fields and order
// may change on later submissions.
type QuestionGroupRecord struct {
	Title                string           `json:"title"`
	DisplayTitle         string           `json:"display_title,omitempty"`
	Description          string           `json:"description,omitempty"`
	IsReusable           bool             `json:"is_reusable,omitempty"`
	IsAutoSubmit         bool             `json:"is_auto_submit,omitempty"`
	VerificationFunction *string          `json:"verification_function,omitempty"`
	IsActive             *bool            `json:"is_active,omitempty"`
	Questions            []QuestionRecord `json:"questions"`
}

// SchemaRecord is one schema with its ordered question group titles.
type SchemaRecord struct {
	SchemaName         string   `json:"schema_name"`
	InstructionsURL    string   `json:"instructions_url,omitempty"`
	QuestionGroupNames []string `json:"question_group_names"`
	HasCustomDisplay   bool     `json:"has_custom_display,omitempty"`
	IsActive           *bool    `json:"is_active,omitempty"`
}

// ProjectRecord is one project with its videos and per-video display
// overrides.
type ProjectRecord struct {
	ProjectName string              `json:"project_name"`
	SchemaName  string              `json:"schema_name"`
	Description string              `json:"description,omitempty"`
	Videos      []ProjectVideoEntry `json:"videos"`
	IsActive    *bool               `json:"is_active,omitempty"`
}

// ProjectVideoEntry is one element of a project's video list. It accepts
// either a bare UID string or an object carrying display overrides; the bare
// form declares the video with no overrides, which removes any stored ones.
type ProjectVideoEntry struct {
	VideoUID  string
	Overrides []QuestionOverride
}

func (e *ProjectVideoEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.VideoUID)
	}

	var obj struct {
		VideoUID  string             `json:"video_uid"`
		Questions []QuestionOverride `json:"questions"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("failed to decode project video entry: %w", err)
	}
	e.VideoUID = obj.VideoUID
	e.Overrides = obj.Questions
	return nil
}

func (e ProjectVideoEntry) MarshalJSON() ([]byte, error) {
	if len(e.Overrides) == 0 {
		return json.Marshal(e.VideoUID)
	}
	return json.Marshal(struct {
		VideoUID  string             `json:"video_uid"`
		Questions []QuestionOverride `json:"questions"`
	}{e.VideoUID, e.Overrides})
}

// QuestionOverride is one per-video display override inside a project video
// entry. Both the historical field names (custom_question, custom_option)
// and the current ones (display_text, option_map) are accepted.
type QuestionOverride struct {
	QuestionText string            `json:"question_text"`
	DisplayText  *string           `json:"display_text,omitempty"`
	OptionMap    map[string]string `json:"option_map,omitempty"`
}

func (o *QuestionOverride) UnmarshalJSON(data []byte) error {
	var obj struct {
		QuestionText   string            `json:"question_text"`
		DisplayText    *string           `json:"display_text"`
		CustomQuestion *string           `json:"custom_question"`
		OptionMap      map[string]string `json:"option_map"`
		CustomOption   map[string]string `json:"custom_option"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("failed to decode question override: %w", err)
	}
	o.QuestionText = obj.QuestionText
	o.DisplayText = obj.DisplayText
	if o.DisplayText == nil {
		o.DisplayText = obj.CustomQuestion
	}
	o.OptionMap = obj.OptionMap
	if o.OptionMap == nil {
		o.OptionMap = obj.CustomOption
	}
	return nil
}

// ProjectGroupRecord is one project group with its full member list. The
// member set is reconciled exactly: stored members not listed are removed.
type ProjectGroupRecord struct {
	ProjectGroupName string   `json:"project_group_name"`
	Description      string   `json:"description,omitempty"`
	Projects         []string `json:"projects,omitempty"`
	IsActive         *bool    `json:"is_active,omitempty"`
}

// AssignmentRecord links a user to a project with a role. The user may be
// addressed by login handle or by email; email wins when both are present.
type AssignmentRecord struct {
	UserName    string   `json:"user_name,omitempty"`
	UserEmail   string   `json:"user_email,omitempty"`
	ProjectName string   `json:"project_name"`
	Role        string   `json:"role"`
	UserWeight  *float64 `json:"user_weight,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// AnswerRecord is one user's answers to every question of one group on one
// video, submitted either as annotations or as ground truth.
type AnswerRecord struct {
	QuestionGroupTitle string             `json:"question_group_title"`
	ProjectName        string             `json:"project_name"`
	UserName           string             `json:"user_name"`
	VideoUID           string             `json:"video_uid"`
	Answers            map[string]string  `json:"answers"`
	IsGroundTruth      bool               `json:"is_ground_truth,omitempty"`
	ConfidenceScores   map[string]float64 `json:"confidence_scores,omitempty"`
	Notes              map[string]string  `json:"notes,omitempty"`
}

// DecodeRecords decodes a JSON document into a batch of records. Both a
// top-level array and a single object are accepted, matching the exported
// workspace files.
func DecodeRecords[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var one T
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		return []T{one}, nil
	}
	var records []T
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}

// archivedFlag translates the wire-level is_active (default true) into the
// stored is_archived.
func archivedFlag(isActive *bool) bool {
	return isActive != nil && !*isActive
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func emptyToNil(s *string) *string {
	if s != nil && strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
