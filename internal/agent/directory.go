package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrRecipientNotFound is returned when a message targets an unknown agent.
var ErrRecipientNotFound = errors.New("recipient not found")

// Directory maps agent ids to live agents. It is the only structure shared
// between agents and the orchestrator; every write is a single insert or
// delete under the lock.
type Directory struct {
	agents map[string]Agent
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewDirectory creates an empty directory.
func NewDirectory(logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		agents: make(map[string]Agent),
		logger: logger,
	}
}

// Register stores a, replacing any agent with the same id. Invalid agents are
// logged and ignored; the result reports whether a was stored.
func (d *Directory) Register(a Agent) bool {
	if a == nil {
		d.logger.Error("register agent: nil agent")
		return false
	}
	id, name, err := identify(a)
	if err != nil {
		d.logger.Error("register agent", zap.Error(err))
		return false
	}
	if id == "" {
		d.logger.Error("register agent: empty id", zap.String("name", name))
		return false
	}
	d.mu.Lock()
	d.agents[id] = a
	d.mu.Unlock()
	d.logger.Debug("registered agent",
		zap.String("id", id),
		zap.String("name", name))
	return true
}

// identify reads a's id and name. A typed nil agent panics on the first
// call; that is reported as an error.
func identify(a Agent) (id, name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %T unusable: %v", a, r)
		}
	}()
	return a.ID(), a.Name(), nil
}

// Lookup returns an agent by id.
func (d *Directory) Lookup(id string) (Agent, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.agents[id]
	return a, ok
}

// Remove unregisters an agent. Removing an unknown id is a no-op.
func (d *Directory) Remove(id string) {
	d.mu.Lock()
	delete(d.agents, id)
	d.mu.Unlock()
}

// List returns all registered agents ordered by id.
func (d *Directory) List() []Agent {
	d.mu.RLock()
	result := make([]Agent, 0, len(d.agents))
	for _, a := range d.agents {
		result = append(result, a)
	}
	d.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// Len returns the number of registered agents.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.agents)
}

// Deliver hands msg to its recipient's receive path. The returned error is
// informational: callers log it and carry on.
func (d *Directory) Deliver(ctx context.Context, msg *Message) error {
	target, ok := d.Lookup(msg.To)
	if !ok {
		return fmt.Errorf("deliver %s to %s: %w", msg.ID, msg.To, ErrRecipientNotFound)
	}
	if err := Receive(ctx, target, msg); err != nil {
		d.logger.Warn("message handling failed",
			zap.String("id", msg.ID),
			zap.String("to", msg.To),
			zap.Error(err))
		return err
	}
	d.logger.Debug("delivered message",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("type", string(msg.Type)))
	return nil
}
