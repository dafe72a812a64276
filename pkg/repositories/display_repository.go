package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

// DisplayRepository defines the interface for display override data access.
type DisplayRepository interface {
	// Get retrieves the override for one (project, video, question) triple.
	// Returns nil if no override is stored.
	Get(ctx context.Context, projectID, videoID, questionID uuid.UUID) (*models.DisplayOverride, error)

	// ListByProject returns all stored overrides for a project.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.DisplayOverride, error)

	// Upsert creates or replaces the override for a triple.
	Upsert(ctx context.Context, override *models.DisplayOverride) error

	// Delete removes the override for a triple; deleting a missing row is a
	// no-op.
	Delete(ctx context.Context, projectID, videoID, questionID uuid.UUID) error
}

// displayRepository implements DisplayRepository using PostgreSQL.
type displayRepository struct {
	q database.Querier
}

// NewDisplayRepository creates a new display override repository bound to q.
func NewDisplayRepository(q database.Querier) DisplayRepository {
	return &displayRepository{q: q}
}

const displayColumns = `project_id, video_id, question_id, custom_display_text, custom_option_values, created_at, updated_at`

func scanDisplay(row pgx.Row) (*models.DisplayOverride, error) {
	var d models.DisplayOverride
	var optionValuesJSON []byte
	err := row.Scan(&d.ProjectID, &d.VideoID, &d.QuestionID, &d.CustomDisplayText, &optionValuesJSON, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan display override: %w", err)
	}
	if len(optionValuesJSON) > 0 {
		if err := json.Unmarshal(optionValuesJSON, &d.CustomOptionValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal custom option values: %w", err)
		}
	}
	return &d, nil
}

func (r *displayRepository) Get(ctx context.Context, projectID, videoID, questionID uuid.UUID) (*models.DisplayOverride, error) {
	query := `SELECT ` + displayColumns + ` FROM project_video_question_displays
		WHERE project_id = $1 AND video_id = $2 AND question_id = $3`
	return scanDisplay(r.q.QueryRow(ctx, query, projectID, videoID, questionID))
}

func (r *displayRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.DisplayOverride, error) {
	query := `SELECT ` + displayColumns + ` FROM project_video_question_displays WHERE project_id = $1`

	rows, err := r.q.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list display overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*models.DisplayOverride
	for rows.Next() {
		d, err := scanDisplay(rows)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, d)
	}
	return overrides, rows.Err()
}

func (r *displayRepository) Upsert(ctx context.Context, override *models.DisplayOverride) error {
	var optionValuesJSON []byte
	if len(override.CustomOptionValues) > 0 {
		var err error
		optionValuesJSON, err = json.Marshal(override.CustomOptionValues)
		if err != nil {
			return fmt.Errorf("failed to marshal custom option values: %w", err)
		}
	}

	now := time.Now()
	query := `
		INSERT INTO project_video_question_displays
			(project_id, video_id, question_id, custom_display_text, custom_option_values, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (project_id, video_id, question_id)
		DO UPDATE SET custom_display_text = $4, custom_option_values = $5, updated_at = $6`

	_, err := r.q.Exec(ctx, query, override.ProjectID, override.VideoID, override.QuestionID,
		override.CustomDisplayText, optionValuesJSON, now)
	if err != nil {
		return fmt.Errorf("failed to upsert display override: %w", err)
	}
	override.UpdatedAt = now
	if override.CreatedAt.IsZero() {
		override.CreatedAt = now
	}
	return nil
}

func (r *displayRepository) Delete(ctx context.Context, projectID, videoID, questionID uuid.UUID) error {
	query := `DELETE FROM project_video_question_displays
		WHERE project_id = $1 AND video_id = $2 AND question_id = $3`

	if _, err := r.q.Exec(ctx, query, projectID, videoID, questionID); err != nil {
		return fmt.Errorf("failed to delete display override: %w", err)
	}
	return nil
}
