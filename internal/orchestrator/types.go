package orchestrator

import (
	"github.com/nidhogg/pulse/internal/agent"
	"github.com/nidhogg/pulse/internal/analysis"
)

// HealthLevel grades the overall project health.
type HealthLevel string

const (
	HealthExcellent HealthLevel = "excellent"
	HealthGood      HealthLevel = "good"
	HealthFair      HealthLevel = "fair"
	HealthPoor      HealthLevel = "poor"
	HealthCritical  HealthLevel = "critical"
)

// Health is the weighted project-health verdict.
type Health struct {
	Score           int         `json:"score"`
	Level           HealthLevel `json:"level"`
	Summary         string      `json:"summary"`
	Recommendations []string    `json:"recommendations"`
	Issues          []string    `json:"issues,omitempty"`
}

// AgentSnapshot is one agent's state at the end of an orchestration.
type AgentSnapshot struct {
	AgentID string `json:"agent_id"`
	agent.State
}

// Result is everything one orchestration produces. Every analysis field is
// populated, with a fallback value where the agent failed.
type Result struct {
	TeamInsights         []analysis.TeamInsight         `json:"team_insights"`
	DependencyAnalysis   *analysis.DependencyAnalysis   `json:"dependency_analysis"`
	RiskAssessment       *analysis.RiskAssessment       `json:"risk_assessment"`
	TimelineOptimization *analysis.TimelineOptimization `json:"timeline_optimization"`
	ResourceOptimization *analysis.ResourceOptimization `json:"resource_optimization"`
	OverallHealth        Health                         `json:"overall_health"`
	AgentStates          []AgentSnapshot                `json:"agent_states"`

	// Fallback marks the fixed result used when nothing could be analysed.
	Fallback bool `json:"fallback,omitempty"`
}
