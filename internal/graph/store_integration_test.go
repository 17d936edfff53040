//go:build integration

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/project"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	container, err := tcneo4j.Run(ctx, "neo4j:5-community",
		tcneo4j.WithoutAuthentication(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.BoltUrl(ctx)
	require.NoError(t, err)

	s, err := NewStore(uri, "", "", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(ctx) })
	require.NoError(t, s.Ping(ctx))
	return s
}

func TestSyncAndDownstream(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SyncProject(ctx, project.Sample("p1")))

	down, err := s.Downstream(ctx, "p1", "task-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"task-2", "task-3", "task-4"}, down)

	down, err = s.Downstream(ctx, "p1", "task-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"task-4"}, down)

	down, err = s.Downstream(ctx, "p1", "task-4")
	require.NoError(t, err)
	assert.Empty(t, down)
}

func TestSyncReplacesPreviousGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := project.Sample("p1")
	require.NoError(t, s.SyncProject(ctx, d))

	d.Tasks[3].Dependencies = nil
	d.Dependencies = d.Dependencies[:3]
	require.NoError(t, s.SyncProject(ctx, d))

	down, err := s.Downstream(ctx, "p1", "task-3")
	require.NoError(t, err)
	assert.Empty(t, down)

	// other projects are untouched
	require.NoError(t, s.SyncProject(ctx, project.Sample("p2")))
	down, err = s.Downstream(ctx, "p2", "task-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"task-4"}, down)
}
