package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

// QuestionGroupRepository defines the interface for question group data access.
type QuestionGroupRepository interface {
	// GetByTitle retrieves a group by its immutable title. Returns nil if not found.
	GetByTitle(ctx context.Context, title string) (*models.QuestionGroup, error)

	// GetByID retrieves a group by ID. Returns nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*models.QuestionGroup, error)

	// Create inserts a new group and links the given questions in order.
	Create(ctx context.Context, group *models.QuestionGroup, questionIDs []uuid.UUID) error

	// Update rewrites the mutable display/metadata fields of a group.
	Update(ctx context.Context, group *models.QuestionGroup) error

	// UpdateQuestionOrder rewrites display_order for the group's existing
	// question set. The set itself is fixed after creation.
	UpdateQuestionOrder(ctx context.Context, groupID uuid.UUID, questionIDs []uuid.UUID) error

	// ListQuestionIDs returns the group's question IDs in display order.
	ListQuestionIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
}

// questionGroupRepository implements QuestionGroupRepository using PostgreSQL.
type questionGroupRepository struct {
	q database.Querier
}

// NewQuestionGroupRepository creates a new question group repository bound to q.
func NewQuestionGroupRepository(q database.Querier) QuestionGroupRepository {
	return &questionGroupRepository{q: q}
}

const groupColumns = `id, title, display_title, description, is_reusable, is_auto_submit, verification_function, is_archived`

func scanGroup(row pgx.Row) (*models.QuestionGroup, error) {
	var g models.QuestionGroup
	err := row.Scan(&g.ID, &g.Title, &g.DisplayTitle, &g.Description, &g.IsReusable,
		&g.IsAutoSubmit, &g.VerificationFunction, &g.IsArchived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan question group: %w", err)
	}
	return &g, nil
}

func (r *questionGroupRepository) GetByTitle(ctx context.Context, title string) (*models.QuestionGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM question_groups WHERE title = $1`
	return scanGroup(r.q.QueryRow(ctx, query, title))
}

func (r *questionGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.QuestionGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM question_groups WHERE id = $1`
	return scanGroup(r.q.QueryRow(ctx, query, id))
}

func (r *questionGroupRepository) Create(ctx context.Context, group *models.QuestionGroup, questionIDs []uuid.UUID) error {
	query := `
		INSERT INTO question_groups (title, display_title, description, is_reusable, is_auto_submit, verification_function, is_archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := r.q.QueryRow(ctx, query, group.Title, group.DisplayTitle, group.Description,
		group.IsReusable, group.IsAutoSubmit, group.VerificationFunction, group.IsArchived).
		Scan(&group.ID)
	if err != nil {
		return fmt.Errorf("failed to create question group: %w", err)
	}

	for i, qid := range questionIDs {
		_, err := r.q.Exec(ctx,
			`INSERT INTO question_group_questions (question_group_id, question_id, display_order) VALUES ($1, $2, $3)`,
			group.ID, qid, i)
		if err != nil {
			return fmt.Errorf("failed to link question to group: %w", err)
		}
	}
	return nil
}

func (r *questionGroupRepository) Update(ctx context.Context, group *models.QuestionGroup) error {
	query := `
		UPDATE question_groups
		SET display_title = $2, description = $3, is_reusable = $4, is_auto_submit = $5,
		    verification_function = $6, is_archived = $7
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, group.ID, group.DisplayTitle, group.Description,
		group.IsReusable, group.IsAutoSubmit, group.VerificationFunction, group.IsArchived)
	if err != nil {
		return fmt.Errorf("failed to update question group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("question group %q: update matched no rows", group.Title)
	}
	return nil
}

func (r *questionGroupRepository) UpdateQuestionOrder(ctx context.Context, groupID uuid.UUID, questionIDs []uuid.UUID) error {
	for i, qid := range questionIDs {
		_, err := r.q.Exec(ctx,
			`UPDATE question_group_questions SET display_order = $3 WHERE question_group_id = $1 AND question_id = $2`,
			groupID, qid, i)
		if err != nil {
			return fmt.Errorf("failed to update question order: %w", err)
		}
	}
	return nil
}

func (r *questionGroupRepository) ListQuestionIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT question_id FROM question_group_questions
		WHERE question_group_id = $1
		ORDER BY display_order`

	rows, err := r.q.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group question IDs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan question ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
