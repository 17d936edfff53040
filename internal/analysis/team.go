package analysis

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/project"
)

// bottleneckRatio is the workload to capacity ratio above which a member
// is a bottleneck.
const bottleneckRatio = 1.5

// TeamAgentID returns the directory id of teamID's agent.
func TeamAgentID(teamID string) string {
	return "team-" + teamID
}

// TeamAgent reports on one team's productivity and bottlenecks.
type TeamAgent struct {
	*agent.Base
	teamID string
}

// NewTeamAgent creates the agent for team. It fails when the team has no id.
func NewTeamAgent(team project.Team, dir *agent.Directory, logger *zap.Logger) (*TeamAgent, error) {
	if team.ID == "" {
		return nil, fmt.Errorf("team agent: team %q has no id", team.Name)
	}
	name := team.Name
	if name == "" {
		name = team.ID
	}
	return &TeamAgent{
		Base:   agent.NewBase(TeamAgentID(team.ID), name, dir, logger),
		teamID: team.ID,
	}, nil
}

// TeamID returns the id of the team this agent reports on.
func (t *TeamAgent) TeamID() string { return t.teamID }

// Process accepts a TeamInput or *TeamInput and returns a *TeamInsight.
func (t *TeamAgent) Process(ctx context.Context, input any) (any, error) {
	var in TeamInput
	switch v := input.(type) {
	case *TeamInput:
		if v == nil {
			return nil, inputError(t.ID(), input)
		}
		in = *v
	case TeamInput:
		in = v
	default:
		return nil, inputError(t.ID(), input)
	}

	t.Begin("team insight")
	if err := ctx.Err(); err != nil {
		t.Finish(0, err)
		return nil, err
	}
	res := assessTeam(t.teamID, in)
	t.Finish(res.Status.Confidence, nil)
	t.Logger().Debug("team insight done",
		zap.String("risk", string(res.RiskLevel)),
		zap.Int("productivity", res.Status.Productivity))
	return res, nil
}

func assessTeam(teamID string, in TeamInput) *TeamInsight {
	status := TeamStatus{
		Confidence:      80,
		Productivity:    75,
		Bottlenecks:     []string{},
		Recommendations: []string{},
	}
	if len(in.Tasks) == 0 {
		status.Confidence = 60
	}

	var earned, actual float64
	for _, task := range in.Tasks {
		if task.ActualHours > 0 {
			earned += task.EstimatedHours * float64(task.Progress) / 100
			actual += task.ActualHours
		}
	}
	if actual > 0 {
		status.Productivity = int(math.Round(math.Min(100, earned/actual*100)))
	}

	blockers := []string{}
	overloaded, blocked := 0, 0
	dist := make([]MemberLoad, 0, len(in.Members))
	for _, m := range in.Members {
		capacity := m.MaxCapacity
		if capacity <= 0 {
			capacity = defaultCapacity
		}
		ratio := m.CurrentWorkload / capacity
		dist = append(dist, MemberLoad{
			MemberID:    m.ID,
			Name:        m.Name,
			Hours:       round1(m.CurrentWorkload),
			Utilization: round1(ratio * 100),
		})
		if ratio > bottleneckRatio {
			overloaded++
			status.Bottlenecks = append(status.Bottlenecks,
				fmt.Sprintf("%s is at %.0f%% of capacity", m.Name, ratio*100))
		}
	}
	for _, task := range in.Tasks {
		if task.Status == project.TaskBlocked {
			blocked++
			status.Bottlenecks = append(status.Bottlenecks, fmt.Sprintf("Task %q is blocked", task.Title))
			blockers = append(blockers, task.Title)
		}
		for _, b := range task.Blockers {
			blockers = append(blockers, fmt.Sprintf("%s: %s", task.Title, b))
		}
	}

	switch n := len(status.Bottlenecks); {
	case n >= 2 || status.Productivity < 50:
		status.RiskLevel = LevelHigh
	case n == 1:
		status.RiskLevel = LevelMedium
	default:
		status.RiskLevel = LevelLow
	}

	if overloaded > 0 {
		status.Recommendations = append(status.Recommendations, "Spread work away from overloaded members")
	}
	if blocked > 0 {
		status.Recommendations = append(status.Recommendations, "Clear blocked tasks before starting new work")
	}
	if status.Productivity < 50 {
		status.Recommendations = append(status.Recommendations, "Review estimates against actual effort")
	}
	if len(status.Recommendations) == 0 {
		status.Recommendations = append(status.Recommendations, "Team is operating within capacity")
	}

	return &TeamInsight{
		TeamID:               teamID,
		Status:               status,
		RiskLevel:            status.RiskLevel,
		Bottlenecks:          status.Bottlenecks,
		Recommendations:      status.Recommendations,
		Blockers:             blockers,
		WorkloadDistribution: dist,
	}
}

// HandleMessage logs status updates addressed to the team.
func (t *TeamAgent) HandleMessage(_ context.Context, msg *agent.Message) error {
	if msg.Type == agent.MessageStatusUpdate {
		t.Logger().Info("status update received", zap.String("from", msg.From))
	}
	return nil
}
