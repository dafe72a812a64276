package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/cliplabel/cliplabel-engine/pkg/config"
)

// StatusResponse describes the running service.
type StatusResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname,omitempty"`
}

// HealthHandler serves the liveness probe and the status endpoint.
type HealthHandler struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers the probe endpoints on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
}

// Health answers liveness probes with a bare 200.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping reports version and environment details. Hostname is best effort;
// a lookup failure leaves the field empty rather than failing the request.
func (h *HealthHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	hostname, _ := os.Hostname()
	resp := StatusResponse{
		Status:      "ok",
		Service:     "cliplabel-engine",
		Version:     h.cfg.Version,
		Environment: h.cfg.Env,
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write status response", zap.Error(err))
	}
}
