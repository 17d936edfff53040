package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Base carries what every agent shares: identity, state, inbox, subscribers
// and a handle on the directory for messaging.
type Base struct {
	id          string
	name        string
	state       State
	inbox       []*Message
	subscribers map[string]struct{}
	dir         *Directory
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewBase creates an idle agent base with full confidence.
func NewBase(id, name string, dir *Directory, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{
		id:   id,
		name: name,
		state: State{
			ID:         id,
			Name:       name,
			Status:     StatusIdle,
			LastUpdate: time.Now(),
			Confidence: 100,
		},
		subscribers: make(map[string]struct{}),
		dir:         dir,
		logger:      logger.With(zap.String("agent", id)),
	}
}

func (b *Base) ID() string   { return b.id }
func (b *Base) Name() string { return b.name }

// Logger returns the agent-scoped logger.
func (b *Base) Logger() *zap.Logger { return b.logger }

// State returns a copy of the agent's state.
func (b *Base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// UpdateState applies fn to the state and stamps LastUpdate.
func (b *Base) UpdateState(fn func(s *State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.state)
	b.state.ID = b.id
	b.state.Name = b.name
	b.state.Confidence = clampConfidence(b.state.Confidence)
	b.state.LastUpdate = time.Now()
}

// Begin marks the agent as processing task.
func (b *Base) Begin(task string) {
	b.UpdateState(func(s *State) {
		s.Status = StatusProcessing
		s.CurrentTask = task
	})
}

// Finish records the end of a Process call. A nil err leaves the agent
// active with the given confidence.
func (b *Base) Finish(confidence int, err error) {
	b.UpdateState(func(s *State) {
		s.CurrentTask = ""
		if err != nil {
			s.Status = StatusError
			return
		}
		s.Status = StatusActive
		s.Confidence = confidence
	})
}

// Enqueue retains a received message for inspection.
func (b *Base) Enqueue(msg *Message) {
	b.mu.Lock()
	b.inbox = append(b.inbox, msg)
	b.mu.Unlock()
}

// Inbox returns the received messages in arrival order.
func (b *Base) Inbox() []*Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Message, len(b.inbox))
	copy(out, b.inbox)
	return out
}

// Subscribe adds id to the broadcast set.
func (b *Base) Subscribe(id string) {
	b.mu.Lock()
	b.subscribers[id] = struct{}{}
	b.mu.Unlock()
}

// Unsubscribe removes id from the broadcast set.
func (b *Base) Unsubscribe(id string) {
	b.mu.Lock()
	delete(b.subscribers, id)
	b.mu.Unlock()
}

// Subscribers returns the broadcast set ordered by id.
func (b *Base) Subscribers() []string {
	b.mu.RLock()
	out := make([]string, 0, len(b.subscribers))
	for id := range b.subscribers {
		out = append(out, id)
	}
	b.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Send builds a message and delivers it through the directory. Sending is
// fire-and-forget: a delivery failure is logged and returned for the
// caller's information, never raised.
func (b *Base) Send(ctx context.Context, to string, typ MessageType, data any, priority Priority) (*Message, error) {
	msg := NewMessage(b.id, to, typ, data, priority)
	if b.dir == nil {
		err := fmt.Errorf("send %s: no directory", msg.ID)
		b.logger.Warn("send failed", zap.String("to", to), zap.Error(err))
		return msg, err
	}
	if err := b.deliver(ctx, msg); err != nil {
		b.logger.Warn("send failed",
			zap.String("to", to),
			zap.String("type", string(typ)),
			zap.Error(err))
		return msg, err
	}
	return msg, nil
}

func (b *Base) deliver(ctx context.Context, msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("deliver %s panicked: %v", msg.ID, r)
		}
	}()
	return b.dir.Deliver(ctx, msg)
}

// Broadcast sends the same message to every subscriber independently. The
// deliveries run concurrently; failures are collected and returned joined.
func (b *Base) Broadcast(ctx context.Context, typ MessageType, data any, priority Priority) error {
	subs := b.Subscribers()
	errs := make([]error, len(subs))

	var wg sync.WaitGroup
	for i, id := range subs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = b.Send(ctx, id, typ, data, priority)
		}(i, id)
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err != nil {
		b.logger.Warn("broadcast partially failed",
			zap.Int("subscribers", len(subs)),
			zap.Error(err))
	}
	return err
}
