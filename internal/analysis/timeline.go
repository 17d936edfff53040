package analysis

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/project"
)

// ConstraintFixedEndDate keeps the project end date fixed when re-planning.
const ConstraintFixedEndDate = "fixed-end-date"

const (
	timelineConfidence = 80
	alertPenalty       = 10
	minConfidence      = 50
)

// TimelineAdjuster re-plans unstarted tasks against their prerequisites and
// looks for work that can run in parallel. It listens for risk alerts and
// lowers its confidence for each one received.
type TimelineAdjuster struct {
	*agent.Base

	mu     sync.Mutex
	alerts []*agent.Message
}

func NewTimelineAdjuster(dir *agent.Directory, logger *zap.Logger) *TimelineAdjuster {
	return &TimelineAdjuster{Base: agent.NewBase(TimelineAdjusterID, "Timeline Adjuster", dir, logger)}
}

// Process accepts a TimelineInput or *TimelineInput and returns a
// *TimelineOptimization.
func (t *TimelineAdjuster) Process(ctx context.Context, input any) (any, error) {
	var in TimelineInput
	switch v := input.(type) {
	case *TimelineInput:
		if v == nil {
			return nil, inputError(t.ID(), input)
		}
		in = *v
	case TimelineInput:
		in = v
	default:
		return nil, inputError(t.ID(), input)
	}

	t.Begin("timeline optimization")
	if err := ctx.Err(); err != nil {
		t.Finish(0, err)
		return nil, err
	}
	res := optimizeTimeline(in)
	t.Finish(t.confidence(), nil)
	t.Logger().Debug("timeline optimization done",
		zap.Int("savings_days", res.TimelineSavings),
		zap.Int("adjustments", len(res.Adjustments)))
	return res, nil
}

func (t *TimelineAdjuster) confidence() int {
	t.mu.Lock()
	n := len(t.alerts)
	t.mu.Unlock()
	c := timelineConfidence - alertPenalty*n
	if c < minConfidence {
		c = minConfidence
	}
	return c
}

// HandleMessage records risk alerts. Other message types are ignored.
func (t *TimelineAdjuster) HandleMessage(_ context.Context, msg *agent.Message) error {
	if msg.Type != agent.MessageRiskAlert {
		return nil
	}
	t.mu.Lock()
	t.alerts = append(t.alerts, msg)
	t.mu.Unlock()

	confidence := t.confidence()
	t.UpdateState(func(s *agent.State) {
		if s.Confidence > confidence {
			s.Confidence = confidence
		}
	})
	fields := []zap.Field{zap.String("from", msg.From), zap.String("priority", string(msg.Priority))}
	if alert, ok := msg.Data.(RiskAlert); ok {
		fields = append(fields,
			zap.Int("risks", len(alert.Risks)),
			zap.Int("predicted_delays", len(alert.PredictedDelays)))
	}
	t.Logger().Info("risk alert received", fields...)
	return nil
}

// Alerts returns the risk alerts received so far.
func (t *TimelineAdjuster) Alerts() []*agent.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*agent.Message, len(t.alerts))
	copy(out, t.alerts)
	return out
}

type window struct {
	start, end time.Time
}

func optimizeTimeline(in TimelineInput) *TimelineOptimization {
	res := &TimelineOptimization{
		Adjustments:                  []Adjustment{},
		ResourceOptimizations:        []string{},
		ParallelizationOpportunities: []Parallelization{},
		Recommendations:              []string{},
	}

	g := buildGraph(in.Tasks, in.Dependencies)
	var plannedEnd time.Time
	for _, task := range in.Tasks {
		if task.EndDate.After(plannedEnd) {
			plannedEnd = task.EndDate.Time
		}
	}
	if plannedEnd.IsZero() {
		plannedEnd = in.Project.EndDate.Time
	}

	order, acyclic := g.topoOrder()
	if !acyclic {
		res.NewProjectEndDate = plannedEnd
		res.Recommendations = append(res.Recommendations,
			"Resolve circular dependencies before re-planning the timeline")
		return res
	}

	planned := make(map[string]window, len(order))
	pushed, pulled := 0, 0
	for _, id := range order {
		task := g.tasks[id]
		w := window{start: task.StartDate.Time, end: task.EndDate.Time}
		if w.start.IsZero() {
			w.start = in.Project.StartDate.Time
		}

		movable := task.Status == project.TaskPending || task.Status == project.TaskBlocked
		var earliest time.Time
		for _, e := range g.pred[id] {
			if ready := planned[e.From].end.AddDate(0, 0, e.Lag); ready.After(earliest) {
				earliest = ready
			}
		}

		if movable && !earliest.IsZero() && !earliest.Equal(w.start) {
			reason := "starts before its prerequisites finish"
			if earliest.Before(w.start) {
				reason = "can start as soon as its prerequisites finish"
				pulled++
			} else {
				pushed++
			}
			origEnd := w.end
			if origEnd.IsZero() {
				origEnd = w.start.AddDate(0, 0, task.DurationDays())
			}
			w.start = earliest
			next := earliest.AddDate(0, 0, task.DurationDays())
			res.Adjustments = append(res.Adjustments, Adjustment{
				TaskID:      id,
				OriginalEnd: project.Date{Time: origEnd},
				ProposedEnd: project.Date{Time: next},
				Reason:      reason,
				DaysShifted: daysBetween(origEnd, next),
			})
			w.end = next
		} else if w.end.IsZero() {
			w.end = w.start.AddDate(0, 0, task.DurationDays())
		}
		planned[id] = w
	}

	var newEnd time.Time
	for _, w := range planned {
		if w.end.After(newEnd) {
			newEnd = w.end
		}
	}
	if newEnd.IsZero() {
		newEnd = plannedEnd
	}
	if newEnd.IsZero() {
		newEnd = time.Now()
	}
	res.NewProjectEndDate = newEnd
	if !plannedEnd.IsZero() {
		res.TimelineSavings = daysBetween(newEnd, plannedEnd)
	}

	res.ParallelizationOpportunities = parallelizable(g, order, planned)

	for _, r := range in.Resources {
		if _, pct := utilization(r, in.Tasks); pct > 100 {
			res.ResourceOptimizations = append(res.ResourceOptimizations,
				fmt.Sprintf("Reduce load on %s (%.1f%% of capacity)", r.Name, pct))
		}
	}

	if pushed > 0 {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("Re-baseline %d tasks that start before their prerequisites finish", pushed))
	}
	if pulled > 0 {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("Start %d tasks earlier as soon as prerequisites complete", pulled))
	}
	if len(res.ParallelizationOpportunities) > 0 {
		res.Recommendations = append(res.Recommendations,
			"Run independent tasks in parallel to recover schedule")
	}
	if res.TimelineSavings < 0 {
		res.Recommendations = append(res.Recommendations,
			fmt.Sprintf("Timeline may extend by %d days; add capacity on the critical path", -res.TimelineSavings))
	}
	if hasConstraint(in.Constraints, ConstraintFixedEndDate) &&
		!in.Project.EndDate.IsZero() && newEnd.After(in.Project.EndDate.Time) {
		res.Recommendations = append(res.Recommendations,
			"Fixed end date cannot be met without reducing scope")
	}
	if len(res.Recommendations) == 0 {
		res.Recommendations = append(res.Recommendations, "Timeline appears optimal")
	}
	return res
}

// parallelizable returns pairs of unfinished, independent tasks with different
// owners whose planned windows do not overlap.
func parallelizable(g *taskGraph, order []string, planned map[string]window) []Parallelization {
	out := []Parallelization{}
	for i, a := range order {
		ta := g.tasks[a]
		if ta.Status == project.TaskCompleted {
			continue
		}
		for _, b := range order[i+1:] {
			tb := g.tasks[b]
			if tb.Status == project.TaskCompleted || ta.Assignee == tb.Assignee {
				continue
			}
			if g.reachable(a, b) || g.reachable(b, a) {
				continue
			}
			wa, wb := planned[a], planned[b]
			if wa.start.Before(wb.end) && wb.start.Before(wa.end) {
				continue
			}
			savings := ta.DurationDays()
			if d := tb.DurationDays(); d < savings {
				savings = d
			}
			out = append(out, Parallelization{
				TaskIDs:     []string{a, b},
				SavingsDays: savings,
				Description: fmt.Sprintf("%q and %q do not depend on each other and can run in parallel", ta.Title, tb.Title),
			})
		}
	}
	return out
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func hasConstraint(constraints []string, want string) bool {
	for _, c := range constraints {
		if c == want {
			return true
		}
	}
	return false
}
