package api

import (
	"fmt"

	"github.com/nidhogg/pulse/internal/analysis"
	"github.com/nidhogg/pulse/internal/orchestrator"
)

// Insight is one finding shown on an agent card.
type Insight struct {
	Type           string `json:"type"` // success, info, warning, error
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
	Impact         string `json:"impact"`
}

// Card summarizes one agent's view of a project for dashboards.
type Card struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Icon       string    `json:"icon"`
	Status     string    `json:"status"`
	Confidence int       `json:"confidence"`
	LastUpdate string    `json:"last_update"`
	Insights   []Insight `json:"insights"`
}

// Insights turns an orchestration result into the four dashboard cards.
func Insights(res *orchestrator.Result) []Card {
	return []Card{
		alignCard(res),
		depGraphCard(res.DependencyAnalysis),
		riskCard(res.RiskAssessment),
		timeShiftCard(res.TimelineOptimization),
	}
}

func alignCard(res *orchestrator.Result) Card {
	confidence := 75
	if res.OverallHealth.Score > 80 {
		confidence = 92
	}
	var insights []Insight
	for i, ins := range res.TeamInsights {
		if i == 2 {
			break
		}
		typ := "success"
		if ins.RiskLevel == analysis.LevelHigh {
			typ = "warning"
		}
		msg := "Goals well-aligned"
		if len(ins.Bottlenecks) > 0 {
			msg = ins.Bottlenecks[0]
		}
		rec := "Continue current approach"
		if len(ins.Recommendations) > 0 {
			rec = ins.Recommendations[0]
		}
		impact := string(ins.RiskLevel)
		if impact == "" {
			impact = "medium"
		}
		insights = append(insights, Insight{
			Type:           typ,
			Message:        fmt.Sprintf("Team %s: %s", ins.TeamID, msg),
			Recommendation: rec,
			Impact:         impact,
		})
	}
	if len(insights) == 0 {
		insights = []Insight{{
			Type:           "success",
			Message:        "Team goals are well-aligned",
			Recommendation: "Continue current approach",
			Impact:         "medium",
		}}
	}
	return Card{ID: "alignbot", Name: "AlignBot", Icon: "target", Status: "active",
		Confidence: confidence, LastUpdate: "Just now", Insights: insights}
}

func depGraphCard(d *analysis.DependencyAnalysis) Card {
	var cycles, path int
	if d != nil {
		cycles, path = len(d.CircularDependencies), len(d.CriticalPath)
	}
	first := Insight{
		Type:           "success",
		Message:        "Dependency structure is optimal",
		Recommendation: "Maintain current dependency structure",
		Impact:         "low",
	}
	if cycles > 0 {
		first = Insight{
			Type:           "error",
			Message:        fmt.Sprintf("%d circular dependencies detected", cycles),
			Recommendation: "Resolve circular dependencies immediately",
			Impact:         "critical",
		}
	}
	return Card{ID: "depgraph", Name: "DepGraph AI", Icon: "git-branch", Status: "active",
		Confidence: 95, LastUpdate: "1 minute ago", Insights: []Insight{first, {
			Type:           "info",
			Message:        fmt.Sprintf("Critical path contains %d tasks", path),
			Recommendation: "Monitor critical path tasks closely",
			Impact:         "medium",
		}}}
}

func riskCard(r *analysis.RiskAssessment) Card {
	var insights []Insight
	if r != nil {
		for i, risk := range r.ActiveRisks {
			if i == 2 {
				break
			}
			typ := "info"
			switch risk.Severity {
			case analysis.LevelCritical:
				typ = "error"
			case analysis.LevelHigh:
				typ = "warning"
			}
			rec := "Monitor situation closely"
			if len(risk.Mitigation) > 0 {
				rec = risk.Mitigation[0]
			}
			insights = append(insights, Insight{
				Type:           typ,
				Message:        risk.Description,
				Recommendation: rec,
				Impact:         string(risk.Severity),
			})
		}
	}
	if len(insights) == 0 {
		insights = []Insight{{
			Type:           "info",
			Message:        "No critical risks detected",
			Recommendation: "Continue monitoring",
			Impact:         "low",
		}}
	}
	return Card{ID: "riskseeker", Name: "RiskSeeker AI", Icon: "alert-triangle", Status: "active",
		Confidence: 85, LastUpdate: "2 minutes ago", Insights: insights}
}

func timeShiftCard(t *analysis.TimelineOptimization) Card {
	var savings, parallel int
	rec := "Review timeline adjustments"
	if t != nil {
		savings, parallel = t.TimelineSavings, len(t.ParallelizationOpportunities)
		if len(t.Recommendations) > 0 {
			rec = t.Recommendations[0]
		}
	}
	first := Insight{
		Type:           "info",
		Message:        "Timeline optimization opportunities identified",
		Recommendation: rec,
		Impact:         "medium",
	}
	if savings > 0 {
		first.Type = "success"
		first.Message = fmt.Sprintf("Timeline can be optimized to save %d days", savings)
	}
	return Card{ID: "timeshift", Name: "TimeShift AI", Icon: "clock", Status: "active",
		Confidence: 88, LastUpdate: "3 minutes ago", Insights: []Insight{first, {
			Type:           "info",
			Message:        fmt.Sprintf("%d parallelization opportunities found", parallel),
			Recommendation: "Consider parallel task execution",
			Impact:         "medium",
		}}}
}

// FallbackCards are served when no result could be produced at all.
func FallbackCards() []Card {
	return []Card{
		{ID: "alignbot", Name: "AlignBot", Icon: "target", Status: "active", Confidence: 85, LastUpdate: "Just now",
			Insights: []Insight{{Type: "success", Message: "Team goals are well-aligned with project objectives",
				Recommendation: "Continue current approach", Impact: "medium"}}},
		{ID: "depgraph", Name: "DepGraph AI", Icon: "git-branch", Status: "active", Confidence: 90, LastUpdate: "1 minute ago",
			Insights: []Insight{{Type: "success", Message: "Dependency structure is well-organized",
				Recommendation: "Monitor for any new dependencies", Impact: "low"}}},
		{ID: "riskseeker", Name: "RiskSeeker AI", Icon: "alert-triangle", Status: "active", Confidence: 88, LastUpdate: "2 minutes ago",
			Insights: []Insight{{Type: "info", Message: "Project timeline appears manageable with current resources",
				Recommendation: "Continue monitoring progress", Impact: "medium"}}},
		{ID: "timeshift", Name: "TimeShift AI", Icon: "clock", Status: "active", Confidence: 85, LastUpdate: "3 minutes ago",
			Insights: []Insight{{Type: "info", Message: "Schedule optimization opportunities identified",
				Recommendation: "Consider parallel task execution for faster completion", Impact: "medium"}}},
	}
}

// FallbackAnalysis stands in for a run that timed out or could not start.
func FallbackAnalysis() *orchestrator.Result {
	return &orchestrator.Result{
		TeamInsights: []analysis.TeamInsight{{
			TeamID:          "design",
			RiskLevel:       analysis.LevelLow,
			Bottlenecks:     []string{},
			Recommendations: []string{"Team performing well"},
		}},
		DependencyAnalysis: &analysis.DependencyAnalysis{
			CircularDependencies: [][]string{},
			CriticalPath:         []string{"task-1", "task-2", "task-3", "task-4"},
			HealthScore:          85,
		},
		RiskAssessment: &analysis.RiskAssessment{
			RiskLevel: analysis.LevelMedium,
			ActiveRisks: []analysis.Risk{{
				ID:          "risk-1",
				Type:        "monitoring",
				Severity:    analysis.LevelMedium,
				Description: "Standard project monitoring required",
				Mitigation:  []string{"Continue regular monitoring"},
			}},
		},
		TimelineOptimization: &analysis.TimelineOptimization{
			ParallelizationOpportunities: []analysis.Parallelization{},
			Recommendations:              []string{"Timeline appears optimal"},
		},
		OverallHealth: orchestrator.Health{
			Score:           85,
			Level:           orchestrator.HealthGood,
			Summary:         "Project analysis timed out, showing a standard assessment",
			Recommendations: []string{"Retry analysis later"},
		},
		AgentStates: []orchestrator.AgentSnapshot{},
		Fallback:    true,
	}
}
