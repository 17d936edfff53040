// Package analysis contains the capability agents the orchestrator fans out
// to, together with their input and result types.
package analysis

import (
	"time"

	"github.com/nidhogg/pulse/internal/project"
)

// Capability agent ids.
const (
	DependencyTrackerID = "dependency-tracker"
	RiskDetectorID      = "risk-detector"
	TimelineAdjusterID  = "timeline-adjuster"
	ResourceAllocatorID = "resource-allocator"
)

// Level grades a risk.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Severe reports whether l is high or critical.
func (l Level) Severe() bool {
	return l == LevelHigh || l == LevelCritical
}

// DependencyInput is what the dependency tracker analyses.
type DependencyInput struct {
	Tasks        []project.Task       `json:"tasks"`
	Dependencies []project.Dependency `json:"dependencies"`
}

// GraphNode is one task in the dependency graph.
type GraphNode struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Duration int    `json:"duration"`
	Slack    int    `json:"slack"`
	Critical bool   `json:"critical"`
}

// GraphEdge is one dependency between tasks.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Lag  int    `json:"lag"`
}

// DependencyAnalysis is the dependency tracker's result.
type DependencyAnalysis struct {
	Nodes                []GraphNode `json:"nodes"`
	Edges                []GraphEdge `json:"edges"`
	CriticalPath         []string    `json:"critical_path"`
	CircularDependencies [][]string  `json:"circular_dependencies"`
	HealthScore          float64     `json:"health_score"`
}

// Risk is one detected project risk.
type Risk struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Severity    Level    `json:"severity"`
	Description string   `json:"description"`
	TaskIDs     []string `json:"task_ids,omitempty"`
	Mitigation  []string `json:"mitigation,omitempty"`
}

// PredictedDelay estimates how late a task will finish.
type PredictedDelay struct {
	TaskID     string `json:"task_id"`
	Days       int    `json:"days"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// RiskAssessment is the risk detector's result.
type RiskAssessment struct {
	OverallRiskScore int              `json:"overall_risk_score"`
	RiskLevel        Level            `json:"risk_level"`
	ActiveRisks      []Risk           `json:"active_risks"`
	PredictedDelays  []PredictedDelay `json:"predicted_delays"`
	Recommendations  []string         `json:"recommendations"`
}

// SevereRisks returns the high and critical risks.
func (r *RiskAssessment) SevereRisks() []Risk {
	out := []Risk{}
	for _, risk := range r.ActiveRisks {
		if risk.Severity.Severe() {
			out = append(out, risk)
		}
	}
	return out
}

// RiskAlert is the payload of a risk_alert message: the severe risks and
// the delays they are expected to cause.
type RiskAlert struct {
	Risks           []Risk           `json:"risks"`
	PredictedDelays []PredictedDelay `json:"predicted_delays"`
}

// TimelineInput is what the timeline adjuster analyses.
type TimelineInput struct {
	Project      project.Project      `json:"project"`
	Tasks        []project.Task       `json:"tasks"`
	Dependencies []project.Dependency `json:"dependencies"`
	Resources    []project.Resource   `json:"resources"`
	Constraints  []string             `json:"constraints"`
}

// Adjustment proposes moving a task.
type Adjustment struct {
	TaskID      string       `json:"task_id"`
	OriginalEnd project.Date `json:"original_end"`
	ProposedEnd project.Date `json:"proposed_end"`
	Reason      string       `json:"reason"`
	DaysShifted int          `json:"days_shifted"`
}

// Parallelization names tasks that can run side by side.
type Parallelization struct {
	TaskIDs     []string `json:"task_ids"`
	SavingsDays int      `json:"savings_days"`
	Description string   `json:"description"`
}

// TimelineOptimization is the timeline adjuster's result. TimelineSavings is
// signed: negative means the timeline is extended.
type TimelineOptimization struct {
	Adjustments                  []Adjustment      `json:"adjustments"`
	NewProjectEndDate            time.Time         `json:"new_project_end_date"`
	TimelineSavings              int               `json:"timeline_savings"`
	ResourceOptimizations        []string          `json:"resource_optimizations"`
	ParallelizationOpportunities []Parallelization `json:"parallelization_opportunities"`
	Recommendations              []string          `json:"recommendations"`
}

// Allocation assigns hours of a resource to a task.
type Allocation struct {
	ResourceID string  `json:"resource_id"`
	TaskID     string  `json:"task_id"`
	Hours      float64 `json:"hours"`
}

// ResourceInput is what the resource allocator analyses.
type ResourceInput struct {
	Resources          []project.Resource         `json:"resources"`
	Tasks              []project.Task             `json:"tasks"`
	Teams              []project.Team             `json:"teams"`
	CurrentAllocations []Allocation               `json:"current_allocations"`
	SkillRequirements  []project.SkillRequirement `json:"skill_requirements"`
}

// WorkloadEntry is one person's utilization.
type WorkloadEntry struct {
	ResourceID         string  `json:"resource_id"`
	Name               string  `json:"name"`
	AssignedHours      float64 `json:"assigned_hours"`
	Capacity           float64 `json:"capacity"`
	CurrentUtilization float64 `json:"current_utilization"`
	Recommendation     string  `json:"recommendation,omitempty"`
}

// Reallocation proposes moving a task between people.
type Reallocation struct {
	TaskID string `json:"task_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// SkillGap is a required skill nobody on the project has.
type SkillGap struct {
	Skill   string   `json:"skill"`
	TaskIDs []string `json:"task_ids"`
}

// ResourceOptimization is the resource allocator's result.
type ResourceOptimization struct {
	Allocations             []Allocation    `json:"allocations"`
	ReallocationSuggestions []Reallocation  `json:"reallocation_suggestions"`
	WorkloadBalancing       []WorkloadEntry `json:"workload_balancing"`
	SkillGapAnalysis        []SkillGap      `json:"skill_gap_analysis"`
	UrgentRequests          []string        `json:"urgent_requests"`
}

// TeamTask is a task as seen by its team agent.
type TeamTask struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Status         string    `json:"status"`
	Assignee       string    `json:"assignee"`
	Priority       string    `json:"priority"`
	EstimatedHours float64   `json:"estimated_hours"`
	ActualHours    float64   `json:"actual_hours"`
	Dependencies   []string  `json:"dependencies"`
	Blockers       []string  `json:"blockers"`
	DueDate        time.Time `json:"due_date"`
	Progress       int       `json:"progress"`
}

// TeamMember is a person as seen by their team agent.
type TeamMember struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Skills          []string `json:"skills"`
	CurrentWorkload float64  `json:"current_workload"`
	MaxCapacity     float64  `json:"max_capacity"`
	Availability    string   `json:"availability"`
}

// TeamInput is what a team agent analyses.
type TeamInput struct {
	Tasks   []TeamTask   `json:"tasks"`
	Members []TeamMember `json:"members"`
}

// TeamStatus is a team agent's self-assessment.
type TeamStatus struct {
	Confidence      int      `json:"confidence"`
	Productivity    int      `json:"productivity"`
	Bottlenecks     []string `json:"bottlenecks"`
	Recommendations []string `json:"recommendations"`
	RiskLevel       Level    `json:"risk_level"`
}

// MemberLoad is one member's share of the team workload.
type MemberLoad struct {
	MemberID    string  `json:"member_id"`
	Name        string  `json:"name"`
	Hours       float64 `json:"hours"`
	Utilization float64 `json:"utilization"`
}

// TeamInsight is a team agent's result.
type TeamInsight struct {
	TeamID               string       `json:"team_id"`
	Status               TeamStatus   `json:"status"`
	RiskLevel            Level        `json:"risk_level"`
	Bottlenecks          []string     `json:"bottlenecks"`
	Recommendations      []string     `json:"recommendations"`
	Blockers             []string     `json:"blockers"`
	WorkloadDistribution []MemberLoad `json:"workload_distribution"`
}
