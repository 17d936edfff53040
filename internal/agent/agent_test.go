package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// echoAgent is a minimal agent for exercising Base and Directory.
type echoAgent struct {
	*Base
	handle func(msg *Message) error
}

func newEcho(id string, dir *Directory) *echoAgent {
	return &echoAgent{Base: NewBase(id, "echo "+id, dir, zap.NewNop())}
}

func (e *echoAgent) Process(_ context.Context, input any) (any, error) { return input, nil }

func (e *echoAgent) HandleMessage(_ context.Context, msg *Message) error {
	if e.handle != nil {
		return e.handle(msg)
	}
	return nil
}

func TestDirectoryRegisterLookupRemove(t *testing.T) {
	dir := NewDirectory(zap.NewNop())
	a := newEcho("a", dir)
	dir.Register(a)

	got, ok := dir.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID())

	dir.Remove("a")
	dir.Remove("a")
	_, ok = dir.Lookup("a")
	assert.False(t, ok)
	assert.Equal(t, 0, dir.Len())
}

func TestDirectoryRegisterOverwritesAndIgnoresInvalid(t *testing.T) {
	dir := NewDirectory(zap.NewNop())
	first := newEcho("a", dir)
	second := newEcho("a", dir)
	dir.Register(first)
	dir.Register(second)
	dir.Register(nil)
	dir.Register(newEcho("", dir))

	require.Equal(t, 1, dir.Len())
	got, _ := dir.Lookup("a")
	assert.Same(t, second, got)
}

func TestDirectoryRegisterIgnoresTypedNil(t *testing.T) {
	dir := NewDirectory(zap.NewNop())
	var typed *echoAgent

	assert.NotPanics(t, func() {
		assert.False(t, dir.Register(typed))
	})
	assert.True(t, dir.Register(newEcho("a", dir)))
	assert.Equal(t, 1, dir.Len())
}

func TestDirectoryListSorted(t *testing.T) {
	dir := NewDirectory(zap.NewNop())
	for _, id := range []string{"c", "a", "b"} {
		dir.Register(newEcho(id, dir))
	}
	var ids []string
	for _, a := range dir.List() {
		ids = append(ids, a.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestSendDeliversToInbox(t *testing.T) {
	dir := NewDirectory(zap.NewNop())
	sender := newEcho("sender", dir)
	recv := newEcho("recv", dir)
	dir.Register(sender)
	dir.Register(recv)

	msg, err := sender.Send(context.Background(), "recv", MessageTimelineUpdate, map[string]int{"days": 2}, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.ID, "sender-"))
	assert.Equal(t, PriorityMedium, msg.Priority)

	inbox := recv.Inbox()
	require.Len(t, inbox, 1)
	assert.Equal(t, msg.ID, inbox[0].ID)
	assert.Empty(t, sender.Inbox())
}

func TestSendToMissingRecipientIsNotFatal(t *testing.T) {
	dir := NewDirectory(zap.NewNop())
	sender := newEcho("sender", dir)

	msg, err := sender.Send(context.Background(), "ghost", MessageStatusUpdate, nil, PriorityLow)
	require.NotNil(t, msg)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestHandlerErrorsAndPanicsAreContained(t *testing.T) {
	dir := NewDirectory(zap.NewNop())
	sender := newEcho("sender", dir)
	failing := newEcho("failing", dir)
	failing.handle = func(*Message) error { return errors.New("boom") }
	panicking := newEcho("panicking", dir)
	panicking.handle = func(*Message) error { panic("kaboom") }
	dir.Register(failing)
	dir.Register(panicking)

	_, err := sender.Send(context.Background(), "failing", MessageRiskAlert, nil, PriorityHigh)
	assert.Error(t, err)
	_, err = sender.Send(context.Background(), "panicking", MessageRiskAlert, nil, PriorityHigh)
	assert.ErrorContains(t, err, "panicked")

	// The message is retained even when handling fails.
	assert.Len(t, failing.Inbox(), 1)
	assert.Len(t, panicking.Inbox(), 1)
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	dir := NewDirectory(zap.NewNop())
	hub := newEcho("hub", dir)
	ok1 := newEcho("ok1", dir)
	ok2 := newEcho("ok2", dir)
	bad := newEcho("bad", dir)
	bad.handle = func(*Message) error { panic("bad subscriber") }
	for _, a := range []*echoAgent{hub, ok1, ok2, bad} {
		dir.Register(a)
	}
	hub.Subscribe("ok1")
	hub.Subscribe("bad")
	hub.Subscribe("ok2")
	hub.Subscribe("missing")
	hub.Subscribe("ok1")

	err := hub.Broadcast(context.Background(), MessageDependencyChange, "x", PriorityLow)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
	assert.Len(t, ok1.Inbox(), 1)
	assert.Len(t, ok2.Inbox(), 1)
	assert.Len(t, bad.Inbox(), 1)

	hub.Unsubscribe("bad")
	hub.Unsubscribe("missing")
	hub.Unsubscribe("missing")
	assert.Equal(t, []string{"ok1", "ok2"}, hub.Subscribers())
	assert.NoError(t, hub.Broadcast(context.Background(), MessageDependencyChange, "y", PriorityLow))
}

func TestStateIsACopy(t *testing.T) {
	a := newEcho("a", nil)
	s := a.State()
	assert.Equal(t, StatusIdle, s.Status)
	assert.Equal(t, 100, s.Confidence)

	s.Status = StatusError
	s.Confidence = 0
	assert.Equal(t, StatusIdle, a.State().Status)

	a.Begin("analysis")
	assert.Equal(t, StatusProcessing, a.State().Status)
	assert.Equal(t, "analysis", a.State().CurrentTask)

	a.Finish(140, nil)
	assert.Equal(t, StatusActive, a.State().Status)
	assert.Equal(t, 100, a.State().Confidence)
	assert.Empty(t, a.State().CurrentTask)

	a.Finish(10, errors.New("x"))
	assert.Equal(t, StatusError, a.State().Status)
}

func TestMessageIDsAreUnique(t *testing.T) {
	const n = 200
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- NewMessage("s", "r", MessageStatusUpdate, nil, PriorityLow).ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestConcurrentRegisterAndLookup(t *testing.T) {
	dir := NewDirectory(zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := string(rune('a' + i%26))
		go func() {
			defer wg.Done()
			dir.Register(newEcho(id, dir))
		}()
		go func() {
			defer wg.Done()
			dir.Lookup(id)
			dir.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 26, dir.Len())
}
