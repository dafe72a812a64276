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

// SchemaRepository defines the interface for schema data access.
type SchemaRepository interface {
	// GetByName retrieves a schema by its unique name. Returns nil if not found.
	GetByName(ctx context.Context, name string) (*models.Schema, error)

	// GetByID retrieves a schema by ID. Returns nil if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Schema, error)

	// Create inserts a new schema and links the given question groups in order.
	Create(ctx context.Context, schema *models.Schema, groupIDs []uuid.UUID) error

	// Update rewrites the mutable fields of a schema.
	Update(ctx context.Context, schema *models.Schema) error

	// UpdateGroupOrder rewrites display_order for the schema's existing
	// group set. The set itself is fixed after creation.
	UpdateGroupOrder(ctx context.Context, schemaID uuid.UUID, groupIDs []uuid.UUID) error

	// ListGroupIDs returns the schema's question group IDs in display order.
	ListGroupIDs(ctx context.Context, schemaID uuid.UUID) ([]uuid.UUID, error)

	// SchemasUsingGroup returns the IDs of schemas that include a group.
	SchemasUsingGroup(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
}

// schemaRepository implements SchemaRepository using PostgreSQL.
type schemaRepository struct {
	q database.Querier
}

// NewSchemaRepository creates a new schema repository bound to q.
func NewSchemaRepository(q database.Querier) SchemaRepository {
	return &schemaRepository{q: q}
}

const schemaColumns = `id, name, instructions_url, has_custom_display, created_at, updated_at, is_archived`

func scanSchema(row pgx.Row) (*models.Schema, error) {
	var s models.Schema
	err := row.Scan(&s.ID, &s.Name, &s.InstructionsURL, &s.HasCustomDisplay, &s.CreatedAt, &s.UpdatedAt, &s.IsArchived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan schema: %w", err)
	}
	return &s, nil
}

func (r *schemaRepository) GetByName(ctx context.Context, name string) (*models.Schema, error) {
	query := `SELECT ` + schemaColumns + ` FROM schemas WHERE name = $1`
	return scanSchema(r.q.QueryRow(ctx, query, name))
}

func (r *schemaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Schema, error) {
	query := `SELECT ` + schemaColumns + ` FROM schemas WHERE id = $1`
	return scanSchema(r.q.QueryRow(ctx, query, id))
}

func (r *schemaRepository) Create(ctx context.Context, schema *models.Schema, groupIDs []uuid.UUID) error {
	query := `
		INSERT INTO schemas (name, instructions_url, has_custom_display, is_archived)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.q.QueryRow(ctx, query, schema.Name, schema.InstructionsURL, schema.HasCustomDisplay, schema.IsArchived).
		Scan(&schema.ID, &schema.CreatedAt, &schema.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	for i, gid := range groupIDs {
		_, err := r.q.Exec(ctx,
			`INSERT INTO schema_question_groups (schema_id, question_group_id, display_order) VALUES ($1, $2, $3)`,
			schema.ID, gid, i)
		if err != nil {
			return fmt.Errorf("failed to link question group to schema: %w", err)
		}
	}
	return nil
}

func (r *schemaRepository) Update(ctx context.Context, schema *models.Schema) error {
	now := time.Now()
	query := `
		UPDATE schemas
		SET instructions_url = $2, has_custom_display = $3, is_archived = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, schema.ID, schema.InstructionsURL, schema.HasCustomDisplay, schema.IsArchived, now)
	if err != nil {
		return fmt.Errorf("failed to update schema: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("schema %q: update matched no rows", schema.Name)
	}
	schema.UpdatedAt = now
	return nil
}

func (r *schemaRepository) UpdateGroupOrder(ctx context.Context, schemaID uuid.UUID, groupIDs []uuid.UUID) error {
	for i, gid := range groupIDs {
		_, err := r.q.Exec(ctx,
			`UPDATE schema_question_groups SET display_order = $3 WHERE schema_id = $1 AND question_group_id = $2`,
			schemaID, gid, i)
		if err != nil {
			return fmt.Errorf("failed to update group order: %w", err)
		}
	}
	return nil
}

func (r *schemaRepository) ListGroupIDs(ctx context.Context, schemaID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT question_group_id FROM schema_question_groups
		WHERE schema_id = $1
		ORDER BY display_order`
	return scanUUIDs(ctx, r.q, query, schemaID)
}

func (r *schemaRepository) SchemasUsingGroup(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT schema_id FROM schema_question_groups WHERE question_group_id = $1`
	return scanUUIDs(ctx, r.q, query, groupID)
}

func scanUUIDs(ctx context.Context, q database.Querier, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query IDs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
