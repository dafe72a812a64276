package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/models"
)

// VideoRepository defines the interface for video data access.
type VideoRepository interface {
	// GetByUID retrieves a video by its video_uid. Returns nil if not found.
	GetByUID(ctx context.Context, videoUID string) (*models.Video, error)

	// GetByURL retrieves a video by its URL. Returns nil if not found.
	GetByURL(ctx context.Context, url string) (*models.Video, error)

	// Create inserts a new video and fills in the generated ID.
	Create(ctx context.Context, video *models.Video) error

	// Update rewrites the mutable fields (url, metadata, is_archived) of an
	// existing video.
	Update(ctx context.Context, video *models.Video) error
}

// videoRepository implements VideoRepository using PostgreSQL.
type videoRepository struct {
	q database.Querier
}

// NewVideoRepository creates a new video repository bound to q, which may be
// a pool or an open transaction.
func NewVideoRepository(q database.Querier) VideoRepository {
	return &videoRepository{q: q}
}

const videoColumns = `id, video_uid, url, metadata, created_at, updated_at, is_archived`

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	var metadataJSON []byte
	err := row.Scan(&v.ID, &v.VideoUID, &v.URL, &metadataJSON, &v.CreatedAt, &v.UpdatedAt, &v.IsArchived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &v.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal video metadata: %w", err)
		}
	}
	return &v, nil
}

func (r *videoRepository) GetByUID(ctx context.Context, videoUID string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE video_uid = $1`
	return scanVideo(r.q.QueryRow(ctx, query, videoUID))
}

func (r *videoRepository) GetByURL(ctx context.Context, url string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE url = $1`
	return scanVideo(r.q.QueryRow(ctx, query, url))
}

func (r *videoRepository) Create(ctx context.Context, video *models.Video) error {
	metadataJSON, err := marshalOrNil(video.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal video metadata: %w", err)
	}

	query := `
		INSERT INTO videos (video_uid, url, metadata, is_archived)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err = r.q.QueryRow(ctx, query, video.VideoUID, video.URL, metadataJSON, video.IsArchived).
		Scan(&video.ID, &video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *videoRepository) Update(ctx context.Context, video *models.Video) error {
	metadataJSON, err := marshalOrNil(video.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal video metadata: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE videos
		SET url = $2, metadata = $3, is_archived = $4, updated_at = $5
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, video.ID, video.URL, metadataJSON, video.IsArchived, now)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: update matched no rows", video.VideoUID)
	}
	video.UpdatedAt = now
	return nil
}

// marshalOrNil marshals a value to JSON, mapping nil/empty maps to SQL NULL.
func marshalOrNil(v map[string]any) ([]byte, error) {
	if len(v) == 0 {
		return nil, nil
	}
	return json.Marshal(v)
}
