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

// AssignmentRepository defines the interface for user-project role links.
type AssignmentRepository interface {
	// Get retrieves the link for a (project, user) pair, archived or not.
	// Returns nil if no link exists.
	Get(ctx context.Context, projectID, userID uuid.UUID) (*models.ProjectUserRole, error)

	// Upsert creates the link or updates its role/weight, unarchiving it if
	// it was previously removed.
	Upsert(ctx context.Context, role *models.ProjectUserRole) error

	// Archive deactivates the link for a (project, user) pair.
	Archive(ctx context.Context, projectID, userID uuid.UUID) error
}

// assignmentRepository implements AssignmentRepository using PostgreSQL.
type assignmentRepository struct {
	q database.Querier
}

// NewAssignmentRepository creates a new assignment repository bound to q.
func NewAssignmentRepository(q database.Querier) AssignmentRepository {
	return &assignmentRepository{q: q}
}

func (r *assignmentRepository) Get(ctx context.Context, projectID, userID uuid.UUID) (*models.ProjectUserRole, error) {
	query := `
		SELECT project_id, user_id, role, user_weight, assigned_at, is_archived
		FROM project_user_roles
		WHERE project_id = $1 AND user_id = $2`

	var a models.ProjectUserRole
	err := r.q.QueryRow(ctx, query, projectID, userID).
		Scan(&a.ProjectID, &a.UserID, &a.Role, &a.UserWeight, &a.AssignedAt, &a.IsArchived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

func (r *assignmentRepository) Upsert(ctx context.Context, role *models.ProjectUserRole) error {
	query := `
		INSERT INTO project_user_roles (project_id, user_id, role, user_weight, is_archived)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (project_id, user_id)
		DO UPDATE SET role = $3, user_weight = $4, is_archived = FALSE`

	if _, err := r.q.Exec(ctx, query, role.ProjectID, role.UserID, role.Role, role.UserWeight); err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}
	return nil
}

func (r *assignmentRepository) Archive(ctx context.Context, projectID, userID uuid.UUID) error {
	query := `UPDATE project_user_roles SET is_archived = TRUE WHERE project_id = $1 AND user_id = $2`

	if _, err := r.q.Exec(ctx, query, projectID, userID); err != nil {
		return fmt.Errorf("failed to archive assignment: %w", err)
	}
	return nil
}
