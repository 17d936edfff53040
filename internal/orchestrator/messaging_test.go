//go:build integration

package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/analysis"
	"github.com/nidhogg/pulse/internal/project"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestStreamJournalCapsEachStream(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	j := NewStreamJournal(rdb, 3, zap.NewNop())

	var sent []*agent.Message
	for i := 0; i < 5; i++ {
		msg := agent.NewMessage("sender", "a", agent.MessageStatusUpdate, fmt.Sprintf("update %d", i), agent.PriorityLow)
		require.NoError(t, j.Record(ctx, msg))
		sent = append(sent, msg)
	}

	n, err := rdb.XLen(ctx, StreamKey("a")).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := j.Recent(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, sent[4].ID, got[0].ID)
	assert.Equal(t, sent[3].ID, got[1].ID)
	assert.Equal(t, sent[2].ID, got[2].ID)
}

func TestStreamJournalKeysByRecipient(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	j := NewStreamJournal(rdb, 0, zap.NewNop())

	require.NoError(t, j.Record(ctx, agent.NewMessage("x", "a", agent.MessageStatusUpdate, "one", "")))
	require.NoError(t, j.Record(ctx, agent.NewMessage("x", "b", agent.MessageStatusUpdate, "two", "")))
	require.NoError(t, j.Record(ctx, agent.NewMessage("x", "b", agent.MessageStatusUpdate, "three", "")))

	keys, err := rdb.Keys(ctx, "pulse:messages:*").Result()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pulse:messages:a", "pulse:messages:b"}, keys)

	got, err := j.Recent(ctx, "b", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		assert.Equal(t, "b", m.To)
	}

	none, err := j.Recent(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStreamJournalRecordsRoutedRiskAlert(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	j := NewStreamJournal(rdb, 10, zap.NewNop())
	o, _ := newOrchestrator(t,
		WithCapability(analysis.RiskDetectorID, severeRiskAgent()),
		WithJournal(j))

	_, err := o.OrchestrateProject(ctx, &project.Data{})
	require.NoError(t, err)

	delivered := timelineAgent(t, o).Alerts()
	require.Len(t, delivered, 1)

	got, err := j.Recent(ctx, analysis.TimelineAdjusterID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	msg := got[0]
	assert.Equal(t, delivered[0].ID, msg.ID)
	assert.Equal(t, agent.MessageRiskAlert, msg.Type)
	assert.Equal(t, analysis.RiskDetectorID, msg.From)
	assert.Equal(t, agent.PriorityHigh, msg.Priority)

	payload, ok := msg.Data.(map[string]any)
	require.True(t, ok, "payload decodes as a JSON object")
	risks, ok := payload["risks"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, risks)
}
