package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/analysis"
	"github.com/nidhogg/pulse/internal/project"
)

// TeamFactory builds the agent for one team.
type TeamFactory func(team project.Team, dir *agent.Directory, logger *zap.Logger) (agent.Agent, error)

// DefaultTeamFactory builds an analysis.TeamAgent.
func DefaultTeamFactory(team project.Team, dir *agent.Directory, logger *zap.Logger) (agent.Agent, error) {
	return analysis.NewTeamAgent(team, dir, logger)
}

// materializeTeams makes sure every team has a registered agent and returns
// the ids of the teams that do, in input order.
func (o *Orchestrator) materializeTeams(teams []project.Team) []string {
	o.teamsMu.Lock()
	defer o.teamsMu.Unlock()

	ids := make([]string, 0, len(teams))
	seen := make(map[string]bool, len(teams))
	for _, team := range teams {
		if seen[team.ID] {
			continue
		}
		seen[team.ID] = true

		if _, ok := o.dir.Lookup(analysis.TeamAgentID(team.ID)); ok && team.ID != "" {
			ids = append(ids, team.ID)
			continue
		}
		a, err := o.buildTeam(team)
		if err != nil {
			o.logger.Warn("team agent not created",
				zap.String("team", team.ID),
				zap.Error(err))
			continue
		}
		if !o.dir.Register(a) {
			o.logger.Warn("team agent rejected by directory", zap.String("team", team.ID))
			continue
		}
		o.mu.Lock()
		o.agents[a.ID()] = a
		o.mu.Unlock()
		ids = append(ids, team.ID)
	}
	return ids
}

func (o *Orchestrator) buildTeam(team project.Team) (a agent.Agent, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, err = nil, fmt.Errorf("team factory panicked: %v", r)
		}
	}()
	a, err = o.newTeam(team, o.dir, o.logger)
	if err == nil && a == nil {
		err = fmt.Errorf("team factory returned no agent")
	}
	return a, err
}

// teamInsights asks each team agent in turn. A failing team gets the fallback
// insight; live counts the insights that came from an agent.
func (o *Orchestrator) teamInsights(ctx context.Context, teamIDs []string, data *project.Data) (insights []analysis.TeamInsight, live int) {
	insights = make([]analysis.TeamInsight, 0, len(teamIDs))
	for _, id := range teamIDs {
		ins, err := o.teamInsight(ctx, id, data)
		if err != nil {
			o.logger.Warn("team analysis failed",
				zap.String("team", id),
				zap.Error(err))
			insights = append(insights, fallbackTeamInsight(id))
			continue
		}
		live++
		insights = append(insights, *ins)
	}
	return insights, live
}

func (o *Orchestrator) teamInsight(ctx context.Context, teamID string, data *project.Data) (ins *analysis.TeamInsight, err error) {
	defer func() {
		if r := recover(); r != nil {
			ins, err = nil, fmt.Errorf("team %s panicked: %v", teamID, r)
		}
	}()
	id := analysis.TeamAgentID(teamID)
	a, ok := o.dir.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, ErrAgentNotFound)
	}
	out, err := a.Process(ctx, teamInput(teamID, data))
	ins, err = resultAs[analysis.TeamInsight](outcome{name: id, value: out, err: err})
	if err != nil {
		return nil, err
	}
	insight := *ins
	insight.TeamID = teamID
	return &insight, nil
}

// teamInput is the team's slice of the project: its tasks and its people,
// each person's workload being the estimate of their unfinished tasks.
func teamInput(teamID string, data *project.Data) analysis.TeamInput {
	in := analysis.TeamInput{
		Tasks:   []analysis.TeamTask{},
		Members: []analysis.TeamMember{},
	}
	tasks := data.TasksForTeam(teamID)
	for _, t := range tasks {
		due := t.EndDate.Time
		if due.IsZero() {
			due = time.Now()
		}
		deps := t.Dependencies
		if deps == nil {
			deps = []string{}
		}
		in.Tasks = append(in.Tasks, analysis.TeamTask{
			ID:             t.ID,
			Title:          t.Title,
			Status:         t.Status,
			Assignee:       t.Assignee,
			Priority:       t.Priority,
			EstimatedHours: t.EstimatedHours,
			ActualHours:    t.ActualHours,
			Dependencies:   deps,
			Blockers:       []string{},
			DueDate:        due,
			Progress:       t.Progress,
		})
	}

	for _, r := range data.ResourcesForTeam(teamID) {
		capacity := r.Capacity
		if capacity <= 0 {
			capacity = 40
		}
		availability := r.Availability
		if availability == "" {
			availability = "available"
		}
		skills := r.Skills
		if skills == nil {
			skills = []string{}
		}
		var workload float64
		for _, t := range tasks {
			if t.Status == project.TaskCompleted {
				continue
			}
			if t.AssigneeID == r.ID || (t.AssigneeID == "" && t.Assignee == r.Name) {
				workload += t.EstimatedHours
			}
		}
		in.Members = append(in.Members, analysis.TeamMember{
			ID:              r.ID,
			Name:            r.Name,
			Skills:          skills,
			CurrentWorkload: workload,
			MaxCapacity:     capacity,
			Availability:    availability,
		})
	}
	return in
}
