package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

// AnswerRepository defines the interface for annotator answers and reviewer
// ground truth.
type AnswerRepository interface {
	// GetUserAnswers returns a user's stored answer values for the given
	// questions on one (video, project), keyed by question ID.
	GetUserAnswers(ctx context.Context, videoID, projectID, userID uuid.UUID, questionIDs []uuid.UUID) (map[uuid.UUID]string, error)

	// UpsertAnswer creates or replaces one annotator answer.
	UpsertAnswer(ctx context.Context, answer *models.AnnotatorAnswer) error

	// GetGroundTruths returns stored ground-truth values for the given
	// questions on one (video, project), keyed by question ID.
	GetGroundTruths(ctx context.Context, videoID, projectID uuid.UUID, questionIDs []uuid.UUID) (map[uuid.UUID]string, error)

	// UpsertGroundTruth creates or overwrites the single ground-truth row
	// for a (video, question, project) triple.
	UpsertGroundTruth(ctx context.Context, truth *models.ReviewerGroundTruth) error
}

// answerRepository implements AnswerRepository using PostgreSQL.
type answerRepository struct {
	q database.Querier
}

// NewAnswerRepository creates a new answer repository bound to q.
func NewAnswerRepository(q database.Querier) AnswerRepository {
	return &answerRepository{q: q}
}

func (r *answerRepository) GetUserAnswers(ctx context.Context, videoID, projectID, userID uuid.UUID, questionIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	query := `
		SELECT question_id, answer_value
		FROM annotator_answers
		WHERE video_id = $1 AND project_id = $2 AND user_id = $3 AND question_id = ANY($4)`

	return scanAnswerValues(ctx, r.q, query, videoID, projectID, userID, questionIDs)
}

func (r *answerRepository) UpsertAnswer(ctx context.Context, answer *models.AnnotatorAnswer) error {
	now := time.Now()
	query := `
		INSERT INTO annotator_answers
			(video_id, question_id, user_id, project_id, answer_type, answer_value, confidence_score, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (video_id, question_id, user_id, project_id)
		DO UPDATE SET answer_type = $5, answer_value = $6, confidence_score = $7, notes = $8, updated_at = $9`

	_, err := r.q.Exec(ctx, query, answer.VideoID, answer.QuestionID, answer.UserID, answer.ProjectID,
		answer.AnswerType, answer.AnswerValue, answer.ConfidenceScore, answer.Notes, now)
	if err != nil {
		return fmt.Errorf("failed to upsert annotator answer: %w", err)
	}
	return nil
}

func (r *answerRepository) GetGroundTruths(ctx context.Context, videoID, projectID uuid.UUID, questionIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	query := `
		SELECT question_id, answer_value
		FROM reviewer_ground_truths
		WHERE video_id = $1 AND project_id = $2 AND question_id = ANY($3)`

	return scanAnswerValues(ctx, r.q, query, videoID, projectID, questionIDs)
}

func (r *answerRepository) UpsertGroundTruth(ctx context.Context, truth *models.ReviewerGroundTruth) error {
	now := time.Now()
	query := `
		INSERT INTO reviewer_ground_truths
			(video_id, question_id, project_id, reviewer_id, answer_type, answer_value, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (video_id, question_id, project_id)
		DO UPDATE SET reviewer_id = $4, answer_type = $5, answer_value = $6, notes = $7, updated_at = $8`

	_, err := r.q.Exec(ctx, query, truth.VideoID, truth.QuestionID, truth.ProjectID, truth.ReviewerID,
		truth.AnswerType, truth.AnswerValue, truth.Notes, now)
	if err != nil {
		return fmt.Errorf("failed to upsert ground truth: %w", err)
	}
	return nil
}

func scanAnswerValues(ctx context.Context, q database.Querier, query string, args ...any) (map[uuid.UUID]string, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	values := make(map[uuid.UUID]string)
	for rows.Next() {
		var questionID uuid.UUID
		var value string
		if err := rows.Scan(&questionID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		values[questionID] = value
	}
	return values, rows.Err()
}
