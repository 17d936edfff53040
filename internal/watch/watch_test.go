package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type beats struct {
	mu  sync.Mutex
	ids []string
}

func (b *beats) fn(fail string) BeatFunc {
	return func(_ context.Context, id string) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.ids = append(b.ids, id)
		if id == fail {
			return errors.New("boom")
		}
		return nil
	}
}

func (b *beats) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ids)
}

func TestFireNowCountsSuccesses(t *testing.T) {
	b := &beats{}
	w := New(time.Hour, time.Second, []string{"a", "b", "c"}, b.fn("b"), zap.NewNop())

	assert.Equal(t, 2, w.FireNow(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, b.ids)

	w.SetProjects([]string{"z"})
	assert.Equal(t, 1, w.FireNow(context.Background()))
}

func TestFireNowAppliesTimeout(t *testing.T) {
	var deadline bool
	w := New(time.Hour, 50*time.Millisecond, []string{"a"}, func(ctx context.Context, _ string) error {
		_, deadline = ctx.Deadline()
		return nil
	}, nil)
	w.FireNow(context.Background())
	assert.True(t, deadline)
}

func TestFireNowStopsOnCancelledContext(t *testing.T) {
	b := &beats{}
	w := New(time.Hour, 0, []string{"a", "b"}, b.fn(""), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Zero(t, w.FireNow(ctx))
	assert.Zero(t, b.count())
}

func TestStartStop(t *testing.T) {
	b := &beats{}
	w := New(10*time.Millisecond, time.Second, []string{"a"}, b.fn(""), zap.NewNop())

	w.Start(context.Background())
	w.Start(context.Background())
	assert.Eventually(t, func() bool { return b.count() >= 2 }, time.Second, 5*time.Millisecond)

	w.Stop()
	n := b.count()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, n, b.count())

	w.Stop()
}

func TestStartWithoutIntervalIsInert(t *testing.T) {
	b := &beats{}
	w := New(0, 0, []string{"a"}, b.fn(""), zap.NewNop())
	w.Start(context.Background())
	w.Stop()
	assert.Zero(t, b.count())
}

func TestContextEndsLoop(t *testing.T) {
	b := &beats{}
	w := New(5*time.Millisecond, time.Second, []string{"a"}, b.fn(""), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()
	// Stop still returns once the loop has exited on its own.
	w.Stop()
}
