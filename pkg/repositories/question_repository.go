package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

// QuestionRepository defines the interface for question data access.
// Questions are immutable once created; there is deliberately no Update.
type QuestionRepository interface {
	// GetByText retrieves a question by its globally unique text. Returns nil
	// if not found.
	GetByText(ctx context.Context, text string) (*models.Question, error)

	// ListByGroup returns a group's questions in display order.
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Question, error)

	// OwnerGroup returns the ID of the group owning a question, or uuid.Nil
	// if the question is not linked to any group.
	OwnerGroup(ctx context.Context, questionID uuid.UUID) (uuid.UUID, error)

	// Create inserts a new question and fills in the generated ID.
	Create(ctx context.Context, question *models.Question) error
}

// questionRepository implements QuestionRepository using PostgreSQL.
type questionRepository struct {
	q database.Querier
}

// NewQuestionRepository creates a new question repository bound to q.
func NewQuestionRepository(q database.Querier) QuestionRepository {
	return &questionRepository{q: q}
}

const questionColumns = `id, text, display_text, qtype, options, display_values, option_weights, default_option, created_at, is_archived`

func scanQuestion(row pgx.Row) (*models.Question, error) {
	var q models.Question
	var optionsJSON, displayValuesJSON, weightsJSON []byte
	err := row.Scan(&q.ID, &q.Text, &q.DisplayText, &q.QType, &optionsJSON, &displayValuesJSON,
		&weightsJSON, &q.DefaultOption, &q.CreatedAt, &q.IsArchived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan question: %w", err)
	}
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal question options: %w", err)
		}
	}
	if len(displayValuesJSON) > 0 {
		if err := json.Unmarshal(displayValuesJSON, &q.DisplayValues); err != nil {
			return nil, fmt.Errorf("failed to unmarshal question display values: %w", err)
		}
	}
	if len(weightsJSON) > 0 {
		if err := json.Unmarshal(weightsJSON, &q.OptionWeights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal question option weights: %w", err)
		}
	}
	return &q, nil
}

func (r *questionRepository) GetByText(ctx context.Context, text string) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE text = $1`
	return scanQuestion(r.q.QueryRow(ctx, query, text))
}

func (r *questionRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Question, error) {
	query := `
		SELECT ` + qualifiedQuestionColumns("q") + `
		FROM questions q
		JOIN question_group_questions gq ON gq.question_id = q.id
		WHERE gq.question_group_id = $1
		ORDER BY gq.display_order`

	rows, err := r.q.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group questions: %w", err)
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

func (r *questionRepository) OwnerGroup(ctx context.Context, questionID uuid.UUID) (uuid.UUID, error) {
	query := `SELECT question_group_id FROM question_group_questions WHERE question_id = $1`

	var groupID uuid.UUID
	err := r.q.QueryRow(ctx, query, questionID).Scan(&groupID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("failed to get question owner group: %w", err)
	}
	return groupID, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	optionsJSON, err := marshalListOrNil(question.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal question options: %w", err)
	}
	displayValuesJSON, err := marshalListOrNil(question.DisplayValues)
	if err != nil {
		return fmt.Errorf("failed to marshal question display values: %w", err)
	}
	var weightsJSON []byte
	if question.OptionWeights != nil {
		weightsJSON, err = json.Marshal(question.OptionWeights)
		if err != nil {
			return fmt.Errorf("failed to marshal question option weights: %w", err)
		}
	}

	query := `
		INSERT INTO questions (text, display_text, qtype, options, display_values, option_weights, default_option)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err = r.q.QueryRow(ctx, query, question.Text, question.DisplayText, question.QType,
		optionsJSON, displayValuesJSON, weightsJSON, question.DefaultOption).
		Scan(&question.ID, &question.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func qualifiedQuestionColumns(alias string) string {
	return alias + ".id, " + alias + ".text, " + alias + ".display_text, " + alias + ".qtype, " +
		alias + ".options, " + alias + ".display_values, " + alias + ".option_weights, " +
		alias + ".default_option, " + alias + ".created_at, " + alias + ".is_archived"
}

func marshalListOrNil(l []string) ([]byte, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}
