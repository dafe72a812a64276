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

// ProjectRepository defines the interface for project data access.
type ProjectRepository interface {
	// GetByName retrieves a project by its unique name. Returns nil if not found.
	GetByName(ctx context.Context, name string) (*models.Project, error)

	// GetByID retrieves a project by ID. Returns nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)

	// Create inserts a new project and links the given videos.
	Create(ctx context.Context, project *models.Project, videoIDs []uuid.UUID) error

	// Update rewrites the mutable fields (description, is_archived) of a project.
	Update(ctx context.Context, project *models.Project) error

	// AddVideo links a video into a project; linking the same video twice is
	// a no-op.
	AddVideo(ctx context.Context, projectID, videoID uuid.UUID) error

	// ListVideos returns the project's videos.
	ListVideos(ctx context.Context, projectID uuid.UUID) ([]*models.Video, error)

	// ListQuestions returns every question of the project's schema, in
	// schema group order then question order.
	ListQuestions(ctx context.Context, projectID uuid.UUID) ([]*models.Question, error)
}

// projectRepository implements ProjectRepository using PostgreSQL.
type projectRepository struct {
	q database.Querier
}

// NewProjectRepository creates a new project repository bound to q.
func NewProjectRepository(q database.Querier) ProjectRepository {
	return &projectRepository{q: q}
}

const projectColumns = `id, name, schema_id, description, created_at, updated_at, is_archived`

func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.SchemaID, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.IsArchived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	return &p, nil
}

func (r *projectRepository) GetByName(ctx context.Context, name string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE name = $1`
	return scanProject(r.q.QueryRow(ctx, query, name))
}

func (r *projectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.q.QueryRow(ctx, query, id))
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project, videoIDs []uuid.UUID) error {
	query := `
		INSERT INTO projects (name, schema_id, description, is_archived)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query, project.Name, project.SchemaID, project.Description, project.IsArchived).
		Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	for _, vid := range videoIDs {
		if err := r.AddVideo(ctx, project.ID, vid); err != nil {
			return err
		}
	}
	return nil
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	now := time.Now()
	query := `
		UPDATE projects
		SET description = $2, is_archived = $3, updated_at = $4
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, project.ID, project.Description, project.IsArchived, now)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %q: update matched no rows", project.Name)
	}
	project.UpdatedAt = now
	return nil
}

func (r *projectRepository) AddVideo(ctx context.Context, projectID, videoID uuid.UUID) error {
	query := `
		INSERT INTO project_videos (project_id, video_id)
		VALUES ($1, $2)
		ON CONFLICT (project_id, video_id) DO NOTHING`

	if _, err := r.q.Exec(ctx, query, projectID, videoID); err != nil {
		return fmt.Errorf("failed to add video to project: %w", err)
	}
	return nil
}

func (r *projectRepository) ListVideos(ctx context.Context, projectID uuid.UUID) ([]*models.Video, error) {
	query := `
		SELECT v.id, v.video_uid, v.url, v.metadata, v.created_at, v.updated_at, v.is_archived
		FROM videos v
		JOIN project_videos pv ON pv.video_id = v.id
		WHERE pv.project_id = $1
		ORDER BY pv.added_at, v.video_uid`

	rows, err := r.q.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (r *projectRepository) ListQuestions(ctx context.Context, projectID uuid.UUID) ([]*models.Question, error) {
	query := `
		SELECT ` + qualifiedQuestionColumns("q") + `
		FROM questions q
		JOIN question_group_questions gq ON gq.question_id = q.id
		JOIN schema_question_groups sg ON sg.question_group_id = gq.question_group_id
		JOIN projects p ON p.schema_id = sg.schema_id
		WHERE p.id = $1
		ORDER BY sg.display_order, gq.display_order`

	rows, err := r.q.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project questions: %w", err)
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
