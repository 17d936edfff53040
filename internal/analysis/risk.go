package analysis

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/project"
)

var severityWeight = map[Level]int{
	LevelLow:      5,
	LevelMedium:   15,
	LevelHigh:     25,
	LevelCritical: 40,
}

// RiskDetector looks for budget, schedule, blocking, capacity and skill
// risks across the whole project.
type RiskDetector struct {
	*agent.Base
}

func NewRiskDetector(dir *agent.Directory, logger *zap.Logger) *RiskDetector {
	return &RiskDetector{Base: agent.NewBase(RiskDetectorID, "Risk Detector", dir, logger)}
}

// Process accepts a *project.Data or project.Data and returns a
// *RiskAssessment.
func (r *RiskDetector) Process(ctx context.Context, input any) (any, error) {
	var data *project.Data
	switch v := input.(type) {
	case *project.Data:
		data = v
	case project.Data:
		data = &v
	}
	if data == nil {
		return nil, inputError(r.ID(), input)
	}

	r.Begin("risk assessment")
	if err := ctx.Err(); err != nil {
		r.Finish(0, err)
		return nil, err
	}
	res := assessRisks(data)
	confidence := 85
	if len(data.Tasks) == 0 {
		confidence = 50
	}
	r.Finish(confidence, nil)
	r.Logger().Debug("risk assessment done",
		zap.String("level", string(res.RiskLevel)),
		zap.Int("score", res.OverallRiskScore),
		zap.Int("risks", len(res.ActiveRisks)))
	return res, nil
}

func assessRisks(data *project.Data) *RiskAssessment {
	res := &RiskAssessment{
		ActiveRisks:     []Risk{},
		PredictedDelays: []PredictedDelay{},
		Recommendations: []string{},
	}
	add := func(risk Risk) {
		risk.ID = fmt.Sprintf("risk-%d", len(res.ActiveRisks)+1)
		res.ActiveRisks = append(res.ActiveRisks, risk)
	}

	for _, t := range data.Tasks {
		if t.Status == project.TaskCompleted {
			continue
		}
		if t.Status == project.TaskBlocked {
			add(Risk{
				Type:        "dependency",
				Severity:    LevelHigh,
				Description: fmt.Sprintf("Task %q is blocked", t.Title),
				TaskIDs:     []string{t.ID},
				Mitigation:  []string{"Escalate blocked tasks to unblock the critical path"},
			})
		}

		if t.EstimatedHours > 0 && t.ActualHours > t.EstimatedHours {
			over := t.ActualHours/t.EstimatedHours - 1
			sev := LevelMedium
			if over > 0.5 {
				sev = LevelHigh
			}
			if over > 0.1 {
				add(Risk{
					Type:        "budget",
					Severity:    sev,
					Description: fmt.Sprintf("Task %q is %.0f%% over its estimate", t.Title, over*100),
					TaskIDs:     []string{t.ID},
					Mitigation:  []string{"Re-estimate remaining work on over-budget tasks"},
				})
				res.PredictedDelays = append(res.PredictedDelays, PredictedDelay{
					TaskID:     t.ID,
					Days:       int(math.Ceil(float64(t.DurationDays()) * over)),
					Confidence: 60,
					Reason:     "effort exceeds estimate",
				})
			}
		}

		if t.Status == project.TaskInProgress && t.EstimatedHours > 0 {
			burn := t.ActualHours / t.EstimatedHours
			done := float64(t.Progress) / 100
			if burn > done+0.2 && burn <= 1.1 {
				add(Risk{
					Type:        "schedule",
					Severity:    LevelMedium,
					Description: fmt.Sprintf("Task %q has used %.0f%% of its effort at %d%% progress", t.Title, burn*100, t.Progress),
					TaskIDs:     []string{t.ID},
					Mitigation:  []string{"Review scope of tasks progressing slower than effort spent"},
				})
				res.PredictedDelays = append(res.PredictedDelays, PredictedDelay{
					TaskID:     t.ID,
					Days:       int(math.Ceil(float64(t.DurationDays()) * (burn - done))),
					Confidence: 50,
					Reason:     "progress lags effort",
				})
			}
		}

		if !data.Project.EndDate.IsZero() && t.EndDate.After(data.Project.EndDate.Time) {
			add(Risk{
				Type:        "schedule",
				Severity:    LevelMedium,
				Description: fmt.Sprintf("Task %q ends after the project end date", t.Title),
				TaskIDs:     []string{t.ID},
				Mitigation:  []string{"Pull late tasks inside the project window"},
			})
		}
	}

	for _, p := range data.Resources {
		var taskIDs []string
		for _, t := range data.Tasks {
			if assignedTo(t, p) && remainingHours(t) > 0 {
				taskIDs = append(taskIDs, t.ID)
			}
		}
		if _, pct := utilization(p, data.Tasks); pct > 100 {
			add(Risk{
				Type:        "resource",
				Severity:    LevelHigh,
				Description: fmt.Sprintf("%s is at %.1f%% of capacity", p.Name, pct),
				TaskIDs:     taskIDs,
				Mitigation:  []string{"Redistribute work from overallocated team members"},
			})
		}
	}

	for _, gap := range skillGaps(data.SkillRequirements, data.Resources) {
		add(Risk{
			Type:        "skill",
			Severity:    LevelMedium,
			Description: fmt.Sprintf("No team member has skill %q", gap.Skill),
			TaskIDs:     gap.TaskIDs,
			Mitigation:  []string{"Close skill gaps through hiring or training"},
		})
	}

	seen := map[string]bool{}
	for _, risk := range res.ActiveRisks {
		res.OverallRiskScore += severityWeight[risk.Severity]
		for _, m := range risk.Mitigation {
			if !seen[m] {
				seen[m] = true
				res.Recommendations = append(res.Recommendations, m)
			}
		}
	}
	if res.OverallRiskScore > 100 {
		res.OverallRiskScore = 100
	}
	res.RiskLevel = riskLevelFor(res.OverallRiskScore)
	if len(res.Recommendations) == 0 {
		res.Recommendations = append(res.Recommendations, "Continue monitoring project health")
	}
	return res
}

func riskLevelFor(score int) Level {
	switch {
	case score >= 70:
		return LevelCritical
	case score >= 45:
		return LevelHigh
	case score >= 20:
		return LevelMedium
	default:
		return LevelLow
	}
}

// HandleMessage logs requests for fresh risk input.
func (r *RiskDetector) HandleMessage(_ context.Context, msg *agent.Message) error {
	switch msg.Type {
	case agent.MessageResourceRequest, agent.MessageTimelineUpdate:
		r.Logger().Info("risk input changed",
			zap.String("from", msg.From),
			zap.String("type", string(msg.Type)))
	}
	return nil
}
