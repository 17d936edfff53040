package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/cache"
	"github.com/nidhogg/pulse/internal/notify"
	"github.com/nidhogg/pulse/internal/orchestrator"
	"github.com/nidhogg/pulse/internal/project"
)

// Where an analysis response came from.
const (
	SourceLive     = "live"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// AnalysisResponse wraps a result with its provenance.
type AnalysisResponse struct {
	ProjectID string               `json:"project_id"`
	Source    string               `json:"source"`
	RunID     string               `json:"run_id,omitempty"`
	Result    *orchestrator.Result `json:"result"`
}

// analyzeProject serves a cached result when allowed, otherwise loads the
// project and runs a fresh orchestration. The only errors are load errors.
func (h *Handler) analyzeProject(ctx context.Context, id string, refresh bool) (*AnalysisResponse, error) {
	if c := h.deps.Cache; c != nil && !refresh {
		res, err := c.Get(ctx, id)
		switch {
		case err == nil:
			return &AnalysisResponse{ProjectID: id, Source: SourceCache, Result: res}, nil
		case !errors.Is(err, cache.ErrMiss):
			h.logger.Warn("cache read failed", zap.String("project", id), zap.Error(err))
		}
	}

	data, err := h.deps.Source.LoadProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", id, err)
	}
	if data.Project.ID == "" {
		data.Project.ID = id
	}

	if g := h.deps.Graph; g != nil {
		if err := g.SyncProject(ctx, data); err != nil {
			h.logger.Warn("graph sync failed", zap.String("project", id), zap.Error(err))
		}
	}
	return h.analyzeData(ctx, data), nil
}

// analyzeData runs one orchestration and, when it produced a live result,
// records and caches it.
func (h *Handler) analyzeData(ctx context.Context, data *project.Data) *AnalysisResponse {
	id := data.Project.ID
	res, live := h.orchestrate(ctx, data)
	resp := &AnalysisResponse{ProjectID: id, Source: SourceFallback, Result: res}
	if !live {
		return resp
	}
	resp.Source = SourceLive

	if runs := h.deps.Runs; runs != nil {
		runID, err := runs.SaveRun(ctx, id, res)
		if err != nil {
			h.logger.Warn("record run failed", zap.String("project", id), zap.Error(err))
		}
		resp.RunID = runID
	}
	if c := h.deps.Cache; c != nil {
		if err := c.Put(ctx, id, res); err != nil {
			h.logger.Warn("cache write failed", zap.String("project", id), zap.Error(err))
		}
	}
	return resp
}

// orchestrate runs a fresh directory and orchestrator for one request and
// races it against the configured timeout. The orchestrator is always shut
// down. live is false when the caller-side fallback was used.
func (h *Handler) orchestrate(ctx context.Context, data *project.Data) (res *orchestrator.Result, live bool) {
	log := h.logger.With(
		zap.String("project", data.Project.ID),
		zap.String("request", uuid.NewString()))

	dir := agent.NewDirectory(log)
	opts := []orchestrator.Option{}
	if h.deps.Notifier != nil {
		dir.Register(notify.NewRelayAgent(h.deps.Notifier, agent.PriorityHigh, dir, log))
		opts = append(opts, orchestrator.WithRules(orchestrator.EscalationRule{To: notify.RelayAgentID}))
	}
	if h.deps.Journal != nil {
		opts = append(opts, orchestrator.WithJournal(h.deps.Journal))
	}
	opts = append(opts, h.deps.Orchestration...)

	o := orchestrator.New(dir, log, opts...)
	defer o.Shutdown()

	ctx, cancel := context.WithTimeout(ctx, h.deps.Timeout)
	defer cancel()

	type outcome struct {
		res *orchestrator.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := o.OrchestrateProject(ctx, data)
		done <- outcome{r, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			log.Error("orchestration failed, using fallback analysis", zap.Error(out.err))
			return FallbackAnalysis(), false
		}
		if out.res.Fallback {
			log.Warn("every analysis failed, reporting the fallback result")
			return out.res, false
		}
		return out.res, true
	case <-ctx.Done():
		log.Error("orchestration timed out, using fallback analysis",
			zap.Duration("timeout", h.deps.Timeout),
			zap.Error(ctx.Err()))
		return FallbackAnalysis(), false
	}
}

// Refresh re-analyses a project, bypassing the cache. It reports an error
// when the project could not be loaded or only the fallback was produced.
func (h *Handler) Refresh(ctx context.Context, projectID string) error {
	resp, err := h.analyzeProject(ctx, projectID, true)
	if err != nil {
		return err
	}
	if resp.Source != SourceLive {
		return fmt.Errorf("project %s: %s result", projectID, resp.Source)
	}
	return nil
}
