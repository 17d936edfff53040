package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/orchestrator"
)

const defaultRunLimit = 20

// Run is one recorded orchestration.
type Run struct {
	ID        string                   `json:"id"`
	ProjectID string                   `json:"project_id"`
	Score     int                      `json:"score"`
	Level     orchestrator.HealthLevel `json:"level"`
	Result    *orchestrator.Result     `json:"result"`
	CreatedAt time.Time                `json:"created_at"`
}

// SaveRun records res under a fresh run id.
func (s *Store) SaveRun(ctx context.Context, projectID string, res *orchestrator.Result) (string, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("marshal run: %w", err)
	}
	id := uuid.New().String()
	_, err = s.db.Exec(ctx, `
		INSERT INTO analysis_runs (id, project_id, score, level, result)
		VALUES ($1, $2, $3, $4, $5)`,
		id, projectID, res.OverallHealth.Score, string(res.OverallHealth.Level), payload,
	)
	if err != nil {
		return "", fmt.Errorf("save run for %s: %w", projectID, err)
	}
	s.logger.Debug("run recorded",
		zap.String("run", id),
		zap.String("project", projectID),
		zap.Int("score", res.OverallHealth.Score))
	return id, nil
}

// ListRuns returns the latest runs for projectID, newest first.
func (s *Store) ListRuns(ctx context.Context, projectID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, project_id, score, level, result, created_at
		FROM analysis_runs
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		var (
			r       Run
			level   string
			payload []byte
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Score, &level, &payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Level = orchestrator.HealthLevel(level)
		r.Result = &orchestrator.Result{}
		if err := json.Unmarshal(payload, r.Result); err != nil {
			s.logger.Warn("run payload unreadable", zap.String("run", r.ID), zap.Error(err))
			r.Result = nil
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
