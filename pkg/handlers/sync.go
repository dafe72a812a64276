package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/cliplabel/cliplabel-engine/pkg/sync"
)

// SyncEngine is the part of the sync engine the HTTP layer needs.
type SyncEngine interface {
	SyncVideos(ctx context.Context, records []sync.VideoRecord) (*sync.Summary, error)
	SyncUsers(ctx context.Context, records []sync.UserRecord) (*sync.Summary, error)
	SyncQuestionGroups(ctx context.Context, records []sync.QuestionGroupRecord) (*sync.Summary, error)
	SyncSchemas(ctx context.Context, records []sync.SchemaRecord) (*sync.Summary, error)
	SyncProjects(ctx context.Context, records []sync.ProjectRecord) (*sync.Summary, error)
	SyncProjectGroups(ctx context.Context, records []sync.ProjectGroupRecord) (*sync.Summary, error)
	SyncAssignments(ctx context.Context, records []sync.AssignmentRecord) (*sync.Summary, error)
	SyncAnnotations(ctx context.Context, records []sync.AnswerRecord) (*sync.Summary, error)
	SyncGroundTruths(ctx context.Context, records []sync.AnswerRecord) (*sync.Summary, error)
}

// maxBatchBody caps a batch upload at 32 MiB.
const maxBatchBody = 32 << 20

// SyncHandler exposes the batch sync operations over HTTP. Each endpoint
// takes a JSON array of records (or a single object) and answers with the
// batch summary; a rejected batch answers 422 with the per-record errors.
type SyncHandler struct {
	engine SyncEngine
	logger *zap.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(engine SyncEngine, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the sync endpoints on the given mux.
func (h *SyncHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sync/videos", runBatch(h, h.engine.SyncVideos))
	mux.HandleFunc("POST /api/sync/users", runBatch(h, h.engine.SyncUsers))
	mux.HandleFunc("POST /api/sync/question-groups", runBatch(h, h.engine.SyncQuestionGroups))
	mux.HandleFunc("POST /api/sync/schemas", runBatch(h, h.engine.SyncSchemas))
	mux.HandleFunc("POST /api/sync/projects", runBatch(h, h.engine.SyncProjects))
	mux.HandleFunc("POST /api/sync/project-groups", runBatch(h, h.engine.SyncProjectGroups))
	mux.HandleFunc("POST /api/sync/assignments", runBatch(h, h.engine.SyncAssignments))
	mux.HandleFunc("POST /api/sync/annotations", runBatch(h, h.engine.SyncAnnotations))
	mux.HandleFunc("POST /api/sync/ground-truths", runBatch(h, h.engine.SyncGroundTruths))
}

// runBatch decodes the request body into records of one kind and runs the
// batch against the engine.
func runBatch[T any](h *SyncHandler, run func(context.Context, []T) (*sync.Summary, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBatchBody))
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
			return
		}
		records, err := sync.DecodeRecords[T](body)
		if err != nil {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		summary, err := run(r.Context(), records)
		if err != nil {
			var batch *sync.BatchErrors
			if errors.As(err, &batch) {
				_ = WriteJSON(w, http.StatusUnprocessableEntity, summary)
				return
			}
			h.logger.Error("Batch apply failed", zap.String("path", r.URL.Path), zap.Error(err))
			_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to apply batch")
			return
		}
		_ = WriteJSON(w, http.StatusOK, summary)
	}
}
