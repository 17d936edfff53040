package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
)

// Journal keeps a record of routed messages for inspection. It is never
// read back for delivery.
type Journal interface {
	Record(ctx context.Context, msg *agent.Message) error
}

const streamPrefix = "pulse:messages:"

// defaultStreamLen caps each recipient's stream.
const defaultStreamLen = 1000

// defaultRecent is how many messages Recent returns when n is not positive.
const defaultRecent = 20

// StreamJournal appends messages to a Redis stream per recipient.
type StreamJournal struct {
	rdb    redis.UniversalClient
	maxLen int64
	logger *zap.Logger
}

// NewStreamJournal wraps an existing Redis client. maxLen <= 0 uses the
// default cap.
func NewStreamJournal(rdb redis.UniversalClient, maxLen int64, logger *zap.Logger) *StreamJournal {
	if maxLen <= 0 {
		maxLen = defaultStreamLen
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamJournal{rdb: rdb, maxLen: maxLen, logger: logger}
}

// StreamKey is the Redis stream holding messages sent to agentID.
func StreamKey(agentID string) string { return streamPrefix + agentID }

// Record appends msg to the recipient's stream, trimming it to the cap.
func (j *StreamJournal) Record(ctx context.Context, msg *agent.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message %s: %w", msg.ID, err)
	}

	stream := StreamKey(msg.To)
	_, err = j.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: j.maxLen,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("journal to %s: %w", stream, err)
	}

	j.logger.Debug("journaled message",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("type", string(msg.Type)))
	return nil
}

// Recent returns up to n of the latest messages sent to agentID, newest
// first. Unreadable entries are skipped.
func (j *StreamJournal) Recent(ctx context.Context, agentID string, n int64) ([]*agent.Message, error) {
	if n <= 0 {
		n = defaultRecent
	}
	entries, err := j.rdb.XRevRangeN(ctx, StreamKey(agentID), "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("read journal for %s: %w", agentID, err)
	}
	out := make([]*agent.Message, 0, len(entries))
	for _, e := range entries {
		data, ok := e.Values["data"].(string)
		if !ok {
			continue
		}
		var msg agent.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			j.logger.Warn("skipping unreadable journal entry",
				zap.String("stream", StreamKey(agentID)),
				zap.String("entry", e.ID),
				zap.Error(err))
			continue
		}
		out = append(out, &msg)
	}
	return out, nil
}
