package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
)

// RelayAgentID is the directory id of the alert relay.
const RelayAgentID = "alert-relay"

var priorityRank = map[agent.Priority]int{
	agent.PriorityLow:      0,
	agent.PriorityMedium:   1,
	agent.PriorityHigh:     2,
	agent.PriorityCritical: 3,
}

// RelayAgent forwards messages it receives to a notifier. Messages below the
// minimum priority are kept in the inbox and not forwarded.
type RelayAgent struct {
	*agent.Base
	notifier Notifier
	floor    agent.Priority
}

// NewRelayAgent creates the relay. An empty floor forwards everything.
func NewRelayAgent(n Notifier, floor agent.Priority, dir *agent.Directory, logger *zap.Logger) *RelayAgent {
	if floor == "" {
		floor = agent.PriorityLow
	}
	return &RelayAgent{
		Base:     agent.NewBase(RelayAgentID, "Alert Relay", dir, logger),
		notifier: n,
		floor:    floor,
	}
}

// Process sends an *Alert directly.
func (r *RelayAgent) Process(ctx context.Context, input any) (any, error) {
	alert, ok := input.(*Alert)
	if !ok || alert == nil {
		return nil, fmt.Errorf("relay: unexpected input %T", input)
	}
	r.Begin("notify")
	err := r.notify(ctx, alert)
	r.Finish(100, err)
	if err != nil {
		return nil, err
	}
	return alert, nil
}

func (r *RelayAgent) HandleMessage(ctx context.Context, msg *agent.Message) error {
	if priorityRank[msg.Priority] < priorityRank[r.floor] {
		r.Logger().Debug("relay skipped low priority message",
			zap.String("id", msg.ID),
			zap.String("priority", string(msg.Priority)))
		return nil
	}
	return r.notify(ctx, AlertFromMessage(msg))
}

func (r *RelayAgent) notify(ctx context.Context, alert *Alert) error {
	if r.notifier == nil {
		return fmt.Errorf("relay: no notifier configured")
	}
	if err := r.notifier.Notify(ctx, alert); err != nil {
		return fmt.Errorf("relay to %s: %w", r.notifier.Platform(), err)
	}
	r.Logger().Info("alert relayed",
		zap.String("platform", r.notifier.Platform()),
		zap.String("title", alert.Title))
	return nil
}
