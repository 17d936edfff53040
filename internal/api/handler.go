// Package api exposes project analysis over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/notify"
	"github.com/nidhogg/pulse/internal/orchestrator"
	"github.com/nidhogg/pulse/internal/project"
	"github.com/nidhogg/pulse/internal/store"
)

// DefaultTimeout bounds one orchestration when Deps.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// ProjectSource loads the data for a project id. Unknown ids are reported
// with project.ErrNotFound.
type ProjectSource interface {
	LoadProject(ctx context.Context, id string) (*project.Data, error)
}

// RunRecorder keeps orchestration history.
type RunRecorder interface {
	SaveRun(ctx context.Context, projectID string, res *orchestrator.Result) (string, error)
	ListRuns(ctx context.Context, projectID string, limit int) ([]*store.Run, error)
}

// ResultCache holds the latest result per project.
type ResultCache interface {
	Get(ctx context.Context, projectID string) (*orchestrator.Result, error)
	Put(ctx context.Context, projectID string, res *orchestrator.Result) error
	Invalidate(ctx context.Context, projectID string) error
}

// GraphMirror keeps a queryable copy of each project's task graph.
type GraphMirror interface {
	SyncProject(ctx context.Context, d *project.Data) error
	Downstream(ctx context.Context, projectID, taskID string) ([]string, error)
}

// MessageJournal records routed messages and reads them back per recipient.
type MessageJournal interface {
	orchestrator.Journal
	Recent(ctx context.Context, agentID string, n int64) ([]*agent.Message, error)
}

// Deps are the handler's collaborators. Only Logger is required; every other
// nil field switches its feature off.
type Deps struct {
	Source   ProjectSource
	Runs     RunRecorder
	Cache    ResultCache
	Graph    GraphMirror
	Notifier notify.Notifier
	Journal  MessageJournal
	Timeout  time.Duration

	// Orchestration is appended to the options of every per-request
	// orchestrator.
	Orchestration []orchestrator.Option
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	deps   Deps
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Source == nil {
		deps.Source = project.SampleSource{}
	}
	if deps.Timeout <= 0 {
		deps.Timeout = DefaultTimeout
	}
	return &Handler{deps: deps, logger: logger}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/agents/{agentID}/messages", h.agentMessages)

		r.Route("/projects/{id}", func(r chi.Router) {
			r.Get("/analysis", h.getAnalysis)
			r.Post("/analysis", h.postAnalysis)
			r.Get("/agents", h.getAgents)
			r.Get("/runs", h.listRuns)
			r.Get("/tasks/{taskID}/downstream", h.downstream)
		})
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "pulse"})
}

func (h *Handler) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp, err := h.analyzeProject(r.Context(), id, r.URL.Query().Get("refresh") == "true")
	if err != nil {
		h.writeLoadError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) postAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var data project.Data
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	data.Project.ID = id
	writeJSON(w, http.StatusOK, h.analyzeData(r.Context(), &data))
}

func (h *Handler) getAgents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp, err := h.analyzeProject(r.Context(), id, r.URL.Query().Get("refresh") == "true")
	if errors.Is(err, project.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		h.logger.Error("agent cards unavailable", zap.String("project", id), zap.Error(err))
		writeJSON(w, http.StatusOK, FallbackCards())
		return
	}
	writeJSON(w, http.StatusOK, Insights(resp.Result))
}

func (h *Handler) agentMessages(w http.ResponseWriter, r *http.Request) {
	if h.deps.Journal == nil {
		writeError(w, http.StatusServiceUnavailable, "message journal not configured")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	msgs, err := h.deps.Journal.Recent(r.Context(), chi.URLParam(r, "agentID"), int64(limit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	runs, err := h.deps.Runs.ListRuns(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) downstream(w http.ResponseWriter, r *http.Request) {
	if h.deps.Graph == nil {
		writeError(w, http.StatusServiceUnavailable, "graph mirror not configured")
		return
	}
	ids, err := h.deps.Graph.Downstream(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task_id": chi.URLParam(r, "taskID"), "downstream": ids})
}

// parseLimit reads ?limit=, zero when absent. It writes a 400 and reports
// false when the value is malformed.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

func (h *Handler) writeLoadError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, project.ErrNotFound) {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	h.logger.Error("load project failed", zap.String("project", id), zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
