package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/analysis"
)

// SendFunc delivers a message to its recipient.
type SendFunc func(ctx context.Context, msg *agent.Message) error

// Rule is a cross-agent notification applied after fan-in. Rules are
// best-effort: a failing rule is logged and never changes the result.
type Rule interface {
	Name() string
	Apply(ctx context.Context, send SendFunc, res *Result) error
}

// RiskAlertRule tells the timeline adjuster about high and critical risks.
type RiskAlertRule struct{}

func (RiskAlertRule) Name() string { return "risk-alert" }

func (RiskAlertRule) Apply(ctx context.Context, send SendFunc, res *Result) error {
	risk := res.RiskAssessment
	if risk == nil || !risk.RiskLevel.Severe() {
		return nil
	}
	delays := risk.PredictedDelays
	if delays == nil {
		delays = []analysis.PredictedDelay{}
	}
	msg := agent.NewMessage(analysis.RiskDetectorID, analysis.TimelineAdjusterID, agent.MessageRiskAlert,
		analysis.RiskAlert{Risks: risk.SevereRisks(), PredictedDelays: delays},
		agent.PriorityHigh)
	return send(ctx, msg)
}

// Escalation is the payload of an escalation status update.
type Escalation struct {
	Reasons   []string       `json:"reasons"`
	RiskLevel analysis.Level `json:"risk_level"`
	Cycles    [][]string     `json:"cycles,omitempty"`
}

// Summary lists the reasons one per line.
func (e Escalation) Summary() string {
	return strings.Join(e.Reasons, "\n")
}

// EscalationRule sends a critical status update to To when risk is critical
// or the dependency graph has cycles.
type EscalationRule struct {
	To string
}

func (EscalationRule) Name() string { return "escalation" }

func (e EscalationRule) Apply(ctx context.Context, send SendFunc, res *Result) error {
	if e.To == "" {
		return fmt.Errorf("escalation rule: no recipient")
	}
	var esc Escalation
	if r := res.RiskAssessment; r != nil {
		esc.RiskLevel = r.RiskLevel
		if r.RiskLevel == analysis.LevelCritical {
			esc.Reasons = append(esc.Reasons, "Project risk level is critical")
		}
	}
	if d := res.DependencyAnalysis; d != nil && len(d.CircularDependencies) > 0 {
		esc.Cycles = d.CircularDependencies
		esc.Reasons = append(esc.Reasons,
			fmt.Sprintf("%d circular dependencies detected", len(d.CircularDependencies)))
	}
	if len(esc.Reasons) == 0 {
		return nil
	}
	msg := agent.NewMessage(SenderID, e.To, agent.MessageStatusUpdate, esc, agent.PriorityCritical)
	return send(ctx, msg)
}
