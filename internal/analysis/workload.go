package analysis

import (
	"fmt"
	"math"

	"github.com/nidhogg/pulse/internal/project"
)

// defaultCapacity is weekly hours assumed for a person without one.
const defaultCapacity = 40

// remainingHours is the unfinished part of a task's estimate.
func remainingHours(t project.Task) float64 {
	if t.Status == project.TaskCompleted {
		return 0
	}
	p := math.Min(math.Max(float64(t.Progress), 0), 100)
	return t.EstimatedHours * (1 - p/100)
}

// weeklyLoad spreads a task's remaining hours over its planned weeks.
func weeklyLoad(t project.Task) float64 {
	weeks := math.Max(1, float64(t.DurationDays())/7)
	return remainingHours(t) / weeks
}

func capacityOf(r project.Resource) float64 {
	if r.Capacity <= 0 {
		return defaultCapacity
	}
	return r.Capacity
}

// assignedTo reports whether t is assigned to r, by id or by name.
func assignedTo(t project.Task, r project.Resource) bool {
	if t.AssigneeID != "" {
		return t.AssigneeID == r.ID
	}
	return t.Assignee != "" && t.Assignee == r.Name
}

// utilization returns r's weekly load as a percentage of capacity, rounded
// to one decimal.
func utilization(r project.Resource, tasks []project.Task) (hours, pct float64) {
	for _, t := range tasks {
		if assignedTo(t, r) {
			hours += weeklyLoad(t)
		}
	}
	pct = math.Round(hours/capacityOf(r)*1000) / 10
	return hours, pct
}

// skillGaps lists required skills that no resource has, in requirement order.
func skillGaps(reqs []project.SkillRequirement, people []project.Resource) []SkillGap {
	have := make(map[string]bool)
	for _, p := range people {
		for _, s := range p.Skills {
			have[s] = true
		}
	}
	index := make(map[string]int)
	var gaps []SkillGap
	for _, req := range reqs {
		if have[req.Skill] {
			continue
		}
		i, ok := index[req.Skill]
		if !ok {
			i = len(gaps)
			index[req.Skill] = i
			gaps = append(gaps, SkillGap{Skill: req.Skill})
		}
		gaps[i].TaskIDs = append(gaps[i].TaskIDs, req.TaskID)
	}
	return gaps
}

func hasSkills(r project.Resource, skills []string) bool {
	for _, want := range skills {
		found := false
		for _, s := range r.Skills {
			if s == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func inputError(agentID string, got any) error {
	return fmt.Errorf("%s: unexpected input type %T", agentID, got)
}
