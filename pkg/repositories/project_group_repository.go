package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

// ProjectGroupRepository defines the interface for project group data access.
type ProjectGroupRepository interface {
	// GetByName retrieves a group by its unique name. Returns nil if not found.
	GetByName(ctx context.Context, name string) (*models.ProjectGroup, error)

	// Create inserts a new group and links the given projects.
	Create(ctx context.Context, group *models.ProjectGroup, projectIDs []uuid.UUID) error

	// Update rewrites the mutable fields (description, is_archived) of a group.
	Update(ctx context.Context, group *models.ProjectGroup) error

	// ListProjectIDs returns the IDs of the group's member projects.
	ListProjectIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)

	// AddProject links a project into a group; linking the same project twice
	// is a no-op.
	AddProject(ctx context.Context, groupID, projectID uuid.UUID) error

	// RemoveProject unlinks a project from a group.
	RemoveProject(ctx context.Context, groupID, projectID uuid.UUID) error
}

// projectGroupRepository implements ProjectGroupRepository using PostgreSQL.
type projectGroupRepository struct {
	q database.Querier
}

// NewProjectGroupRepository creates a new project group repository bound to q.
func NewProjectGroupRepository(q database.Querier) ProjectGroupRepository {
	return &projectGroupRepository{q: q}
}

func (r *projectGroupRepository) GetByName(ctx context.Context, name string) (*models.ProjectGroup, error) {
	query := `
		SELECT id, name, description, created_at, updated_at, is_archived
		FROM project_groups WHERE name = $1`

	var g models.ProjectGroup
	err := r.q.QueryRow(ctx, query, name).
		Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt, &g.IsArchived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan project group: %w", err)
	}
	return &g, nil
}

func (r *projectGroupRepository) Create(ctx context.Context, group *models.ProjectGroup, projectIDs []uuid.UUID) error {
	query := `
		INSERT INTO project_groups (name, description, is_archived)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query, group.Name, group.Description, group.IsArchived).
		Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project group: %w", err)
	}

	for _, pid := range projectIDs {
		if err := r.AddProject(ctx, group.ID, pid); err != nil {
			return err
		}
	}
	return nil
}

func (r *projectGroupRepository) Update(ctx context.Context, group *models.ProjectGroup) error {
	now := time.Now()
	query := `
		UPDATE project_groups
		SET description = $2, is_archived = $3, updated_at = $4
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, group.ID, group.Description, group.IsArchived, now)
	if err != nil {
		return fmt.Errorf("failed to update project group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project group %q: update matched no rows", group.Name)
	}
	group.UpdatedAt = now
	return nil
}

func (r *projectGroupRepository) ListProjectIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT gp.project_id
		FROM project_group_projects gp
		JOIN projects p ON p.id = gp.project_id
		WHERE gp.project_group_id = $1
		ORDER BY p.name`

	rows, err := r.q.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project group members: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project group member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *projectGroupRepository) AddProject(ctx context.Context, groupID, projectID uuid.UUID) error {
	query := `
		INSERT INTO project_group_projects (project_group_id, project_id)
		VALUES ($1, $2)
		ON CONFLICT (project_group_id, project_id) DO NOTHING`

	if _, err := r.q.Exec(ctx, query, groupID, projectID); err != nil {
		return fmt.Errorf("failed to add project to group: %w", err)
	}
	return nil
}

func (r *projectGroupRepository) RemoveProject(ctx context.Context, groupID, projectID uuid.UUID) error {
	query := `
		DELETE FROM project_group_projects
		WHERE project_group_id = $1 AND project_id = $2`

	if _, err := r.q.Exec(ctx, query, groupID, projectID); err != nil {
		return fmt.Errorf("failed to remove project from group: %w", err)
	}
	return nil
}
