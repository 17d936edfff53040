//go:build integration

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/orchestrator"
	"github.com/nidhogg/pulse/internal/project"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("pulse_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate(ctx, "../../migrations"))
	return s
}

func TestProjectRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := project.Sample("proj-1")
	require.NoError(t, s.SaveProject(ctx, in))
	// saving twice replaces the child rows
	require.NoError(t, s.SaveProject(ctx, in))

	out, err := s.LoadProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, in.Project.ID, out.Project.ID)
	assert.True(t, in.Project.EndDate.Equal(out.Project.EndDate.Time))
	require.Len(t, out.Tasks, len(in.Tasks))
	for i := range in.Tasks {
		assert.Equal(t, in.Tasks[i].ID, out.Tasks[i].ID)
		assert.Equal(t, in.Tasks[i].Status, out.Tasks[i].Status)
		assert.Equal(t, in.Tasks[i].EstimatedHours, out.Tasks[i].EstimatedHours)
		assert.True(t, in.Tasks[i].StartDate.Equal(out.Tasks[i].StartDate.Time))
	}
	assert.Len(t, out.Teams, len(in.Teams))
	assert.Len(t, out.Resources, len(in.Resources))
	assert.Equal(t, in.Dependencies, out.Dependencies)
	assert.Equal(t, in.SkillRequirements, out.SkillRequirements)
	assert.Equal(t, in.Resources[2].Skills, out.Resources[2].Skills)
}

func TestLoadProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadProject(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrProjectNotFound))
}

func TestRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := orchestrator.FallbackResult()
	second := orchestrator.FallbackResult()
	second.OverallHealth.Score = 42
	second.OverallHealth.Level = orchestrator.HealthPoor

	_, err := s.SaveRun(ctx, "proj-1", first)
	require.NoError(t, err)
	id, err := s.SaveRun(ctx, "proj-1", second)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, "proj-2", first)
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, "proj-1", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, 42, runs[0].Score)
	assert.Equal(t, orchestrator.HealthPoor, runs[0].Level)
	require.NotNil(t, runs[0].Result)
	assert.Equal(t, 42, runs[0].Result.OverallHealth.Score)

	runs, err = s.ListRuns(ctx, "proj-1", 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
