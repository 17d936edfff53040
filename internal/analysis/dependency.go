package analysis

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/project"
)

// DependencyTracker builds the task dependency graph, finds cycles and the
// critical path, and scores the graph's health.
type DependencyTracker struct {
	*agent.Base
}

func NewDependencyTracker(dir *agent.Directory, logger *zap.Logger) *DependencyTracker {
	return &DependencyTracker{Base: agent.NewBase(DependencyTrackerID, "Dependency Tracker", dir, logger)}
}

// Process accepts a DependencyInput or *DependencyInput and returns a
// *DependencyAnalysis.
func (d *DependencyTracker) Process(ctx context.Context, input any) (any, error) {
	var in DependencyInput
	switch v := input.(type) {
	case *DependencyInput:
		if v == nil {
			return nil, inputError(d.ID(), input)
		}
		in = *v
	case DependencyInput:
		in = v
	default:
		return nil, inputError(d.ID(), input)
	}

	d.Begin("dependency analysis")
	if err := ctx.Err(); err != nil {
		d.Finish(0, err)
		return nil, err
	}
	res, confidence := analyzeDependencies(in)
	d.Finish(confidence, nil)
	d.Logger().Debug("dependency analysis done",
		zap.Int("nodes", len(res.Nodes)),
		zap.Int("cycles", len(res.CircularDependencies)),
		zap.Float64("health", res.HealthScore))
	return res, nil
}

func analyzeDependencies(in DependencyInput) (*DependencyAnalysis, int) {
	g := buildGraph(in.Tasks, in.Dependencies)
	res := &DependencyAnalysis{
		Nodes:                make([]GraphNode, 0, len(g.order)),
		Edges:                append([]GraphEdge{}, g.edges...),
		CriticalPath:         []string{},
		CircularDependencies: g.cycles(),
	}

	var sched *schedule
	critical := map[string]bool{}
	if order, ok := g.topoOrder(); ok && len(order) > 0 {
		sched = g.criticalPathSchedule(order)
		res.CriticalPath = g.criticalPath(sched, order)
		for _, id := range res.CriticalPath {
			critical[id] = true
		}
	}

	blockedCritical := 0
	for _, id := range g.order {
		t := g.tasks[id]
		n := GraphNode{
			ID:       id,
			Title:    t.Title,
			Status:   t.Status,
			Duration: t.DurationDays(),
			Critical: critical[id],
		}
		if sched != nil {
			n.Slack = sched.slack[id]
		}
		if n.Critical && t.Status == project.TaskBlocked {
			blockedCritical++
		}
		res.Nodes = append(res.Nodes, n)
	}

	score := 100.0 -
		20*float64(len(res.CircularDependencies)) -
		5*float64(blockedCritical) -
		2*float64(g.dangling)
	res.HealthScore = math.Max(0, math.Min(100, score))

	confidence := 90
	if len(res.CircularDependencies) > 0 {
		confidence = 70
	}
	if len(g.order) == 0 {
		confidence = 50
	}
	return res, confidence
}

// HandleMessage records dependency changes reported by other agents.
func (d *DependencyTracker) HandleMessage(_ context.Context, msg *agent.Message) error {
	if msg.Type == agent.MessageDependencyChange {
		d.Logger().Info("dependency change reported", zap.String("from", msg.From))
	}
	return nil
}
