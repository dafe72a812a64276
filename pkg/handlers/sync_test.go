package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cliplabel/cliplabel-engine/pkg/sync"
)

// stubEngine answers every batch with a canned summary or error.
type stubEngine struct {
	summary *sync.Summary
	err     error
	videos  []sync.VideoRecord
}

func (s *stubEngine) SyncVideos(_ context.Context, records []sync.VideoRecord) (*sync.Summary, error) {
	s.videos = records
	return s.summary, s.err
}

func (s *stubEngine) SyncUsers(context.Context, []sync.UserRecord) (*sync.Summary, error) {
	return s.summary, s.err
}

func (s *stubEngine) SyncQuestionGroups(context.Context, []sync.QuestionGroupRecord) (*sync.Summary, error) {
	return s.summary, s.err
}

func (s *stubEngine) SyncSchemas(context.Context, []sync.SchemaRecord) (*sync.Summary, error) {
	return s.summary, s.err
}

func (s *stubEngine) SyncProjects(context.Context, []sync.ProjectRecord) (*sync.Summary, error) {
	return s.summary, s.err
}

func (s *stubEngine) SyncProjectGroups(context.Context, []sync.ProjectGroupRecord) (*sync.Summary, error) {
	return s.summary, s.err
}

func (s *stubEngine) SyncAssignments(context.Context, []sync.AssignmentRecord) (*sync.Summary, error) {
	return s.summary, s.err
}

func (s *stubEngine) SyncAnnotations(context.Context, []sync.AnswerRecord) (*sync.Summary, error) {
	return s.summary, s.err
}

func (s *stubEngine) SyncGroundTruths(context.Context, []sync.AnswerRecord) (*sync.Summary, error) {
	return s.summary, s.err
}

func newSyncServer(engine *stubEngine) *httptest.Server {
	mux := http.NewServeMux()
	NewSyncHandler(engine, zap.NewNop()).RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

func TestSyncHandlerAppliesBatch(t *testing.T) {
	engine := &stubEngine{summary: &sync.Summary{Kind: sync.KindVideos, Total: 1, Created: 1}}
	srv := newSyncServer(engine)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sync/videos", "application/json",
		strings.NewReader(`[{"video_uid": "a.mp4", "url": "https://x/a.mp4"}]`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, engine.videos, 1)
	assert.Equal(t, "a.mp4", engine.videos[0].VideoUID)
}

func TestSyncHandlerRejectedBatch(t *testing.T) {
	batch := &sync.BatchErrors{}
	summary := &sync.Summary{Kind: sync.KindVideos, Total: 1}
	engine := &stubEngine{summary: summary, err: batch}
	srv := newSyncServer(engine)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sync/videos", "application/json", strings.NewReader(`[]`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSyncHandlerBadJSON(t *testing.T) {
	engine := &stubEngine{}
	srv := newSyncServer(engine)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sync/videos", "application/json", strings.NewReader(`{not json`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSyncHandlerInternalError(t *testing.T) {
	engine := &stubEngine{err: errors.New("connection refused")}
	srv := newSyncServer(engine)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sync/videos", "application/json", strings.NewReader(`[]`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSyncHandlerMethodNotAllowed(t *testing.T) {
	engine := &stubEngine{summary: &sync.Summary{}}
	srv := newSyncServer(engine)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sync/videos")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
