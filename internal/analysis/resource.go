package analysis

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/project"
)

const (
	overallocated   = 100.0
	underutilized   = 50.0
	reassignCeiling = 80.0
	urgentThreshold = 120.0
)

// ResourceAllocator measures each person's load and proposes moving work
// from overloaded people to skilled teammates with room.
type ResourceAllocator struct {
	*agent.Base
}

func NewResourceAllocator(dir *agent.Directory, logger *zap.Logger) *ResourceAllocator {
	return &ResourceAllocator{Base: agent.NewBase(ResourceAllocatorID, "Resource Allocator", dir, logger)}
}

// Process accepts a ResourceInput or *ResourceInput and returns a
// *ResourceOptimization.
func (a *ResourceAllocator) Process(ctx context.Context, input any) (any, error) {
	var in ResourceInput
	switch v := input.(type) {
	case *ResourceInput:
		if v == nil {
			return nil, inputError(a.ID(), input)
		}
		in = *v
	case ResourceInput:
		in = v
	default:
		return nil, inputError(a.ID(), input)
	}

	a.Begin("resource optimization")
	if err := ctx.Err(); err != nil {
		a.Finish(0, err)
		return nil, err
	}
	res := optimizeResources(in)
	confidence := 85
	if len(in.Resources) == 0 {
		confidence = 50
	}
	a.Finish(confidence, nil)
	a.Logger().Debug("resource optimization done",
		zap.Int("people", len(res.WorkloadBalancing)),
		zap.Int("reallocations", len(res.ReallocationSuggestions)))
	return res, nil
}

func optimizeResources(in ResourceInput) *ResourceOptimization {
	res := &ResourceOptimization{
		Allocations:             []Allocation{},
		ReallocationSuggestions: []Reallocation{},
		WorkloadBalancing:       []WorkloadEntry{},
		SkillGapAnalysis:        skillGaps(in.SkillRequirements, in.Resources),
		UrgentRequests:          []string{},
	}
	if res.SkillGapAnalysis == nil {
		res.SkillGapAnalysis = []SkillGap{}
	}

	extra := make(map[string]float64)
	for _, al := range in.CurrentAllocations {
		extra[al.ResourceID] += al.Hours
	}

	load := make(map[string]float64, len(in.Resources))
	for _, r := range in.Resources {
		for _, t := range in.Tasks {
			if assignedTo(t, r) && remainingHours(t) > 0 {
				res.Allocations = append(res.Allocations, Allocation{
					ResourceID: r.ID,
					TaskID:     t.ID,
					Hours:      round1(remainingHours(t)),
				})
			}
		}
		hours, _ := utilization(r, in.Tasks)
		load[r.ID] = hours + extra[r.ID]
	}
	res.Allocations = append(res.Allocations, in.CurrentAllocations...)

	required := make(map[string][]string)
	for _, req := range in.SkillRequirements {
		required[req.TaskID] = append(required[req.TaskID], req.Skill)
	}
	pct := func(r project.Resource) float64 {
		return round1(load[r.ID] / capacityOf(r) * 100)
	}

	for _, from := range in.Resources {
		if pct(from) <= overallocated {
			continue
		}
		for _, t := range in.Tasks {
			if !assignedTo(t, from) || t.Status != project.TaskPending {
				continue
			}
			for _, to := range in.Resources {
				if to.ID == from.ID || pct(to) >= reassignCeiling || !hasSkills(to, required[t.ID]) {
					continue
				}
				before := pct(from)
				w := weeklyLoad(t)
				if pct(to)+w/capacityOf(to)*100 > overallocated {
					continue
				}
				load[from.ID] -= w
				load[to.ID] += w
				res.ReallocationSuggestions = append(res.ReallocationSuggestions, Reallocation{
					TaskID: t.ID,
					From:   from.ID,
					To:     to.ID,
					Reason: fmt.Sprintf("%s is at %.1f%% of capacity", from.Name, before),
				})
				break
			}
			if pct(from) <= overallocated {
				break
			}
		}
	}

	for _, r := range in.Resources {
		hours, _ := utilization(r, in.Tasks)
		hours += extra[r.ID]
		current := round1(hours / capacityOf(r) * 100)
		entry := WorkloadEntry{
			ResourceID:         r.ID,
			Name:               r.Name,
			AssignedHours:      round1(hours),
			Capacity:           capacityOf(r),
			CurrentUtilization: current,
		}
		switch {
		case current > overallocated:
			entry.Recommendation = "Overallocated: move work to teammates"
		case current < underutilized:
			entry.Recommendation = "Underutilized: can take on more work"
		}
		res.WorkloadBalancing = append(res.WorkloadBalancing, entry)
		if current > urgentThreshold {
			res.UrgentRequests = append(res.UrgentRequests,
				fmt.Sprintf("Additional capacity needed for %s (%.1f%% utilized)", r.Name, current))
		}
	}
	for _, team := range in.Teams {
		if team.WorkloadUtilization > overallocated {
			res.UrgentRequests = append(res.UrgentRequests,
				fmt.Sprintf("%s is over capacity (%.0f%%)", team.Name, team.WorkloadUtilization))
		}
	}
	return res
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// HandleMessage logs resource requests from other agents.
func (a *ResourceAllocator) HandleMessage(_ context.Context, msg *agent.Message) error {
	if msg.Type == agent.MessageResourceRequest {
		a.Logger().Info("resource request received", zap.String("from", msg.From))
	}
	return nil
}
