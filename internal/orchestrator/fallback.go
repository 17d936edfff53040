package orchestrator

import (
	"time"

	"github.com/nidhogg/pulse/internal/analysis"
)

// Fallback values substituted for a failed capability. Each call returns a
// fresh value so callers may modify it.

func fallbackDependencyAnalysis() *analysis.DependencyAnalysis {
	return &analysis.DependencyAnalysis{
		Nodes:                []analysis.GraphNode{},
		Edges:                []analysis.GraphEdge{},
		CriticalPath:         []string{},
		CircularDependencies: [][]string{},
		HealthScore:          75,
	}
}

func fallbackRiskAssessment() *analysis.RiskAssessment {
	return &analysis.RiskAssessment{
		OverallRiskScore: 30,
		RiskLevel:        analysis.LevelMedium,
		ActiveRisks:      []analysis.Risk{},
		PredictedDelays:  []analysis.PredictedDelay{},
		Recommendations:  []string{"Monitor project progress closely"},
	}
}

func fallbackTimelineOptimization() *analysis.TimelineOptimization {
	return &analysis.TimelineOptimization{
		Adjustments:                  []analysis.Adjustment{},
		NewProjectEndDate:            time.Now(),
		ResourceOptimizations:        []string{},
		ParallelizationOpportunities: []analysis.Parallelization{},
		Recommendations:              []string{"Timeline appears optimal"},
	}
}

func fallbackResourceOptimization() *analysis.ResourceOptimization {
	return &analysis.ResourceOptimization{
		Allocations:             []analysis.Allocation{},
		ReallocationSuggestions: []analysis.Reallocation{},
		WorkloadBalancing:       []analysis.WorkloadEntry{},
		SkillGapAnalysis:        []analysis.SkillGap{},
		UrgentRequests:          []string{},
	}
}

const teamUnavailable = "Team analysis temporarily unavailable"

// fallbackTeamInsight stands in for a team whose agent failed.
func fallbackTeamInsight(teamID string) analysis.TeamInsight {
	return analysis.TeamInsight{
		TeamID: teamID,
		Status: analysis.TeamStatus{
			Confidence:      50,
			Productivity:    75,
			Bottlenecks:     []string{},
			Recommendations: []string{teamUnavailable},
			RiskLevel:       analysis.LevelMedium,
		},
		RiskLevel:            analysis.LevelMedium,
		Bottlenecks:          []string{},
		Recommendations:      []string{teamUnavailable},
		Blockers:             []string{},
		WorkloadDistribution: []analysis.MemberLoad{},
	}
}

// FallbackResult is returned when orchestration as a whole could not produce
// anything better.
func FallbackResult() *Result {
	return &Result{
		TeamInsights:         []analysis.TeamInsight{},
		DependencyAnalysis:   fallbackDependencyAnalysis(),
		RiskAssessment:       fallbackRiskAssessment(),
		TimelineOptimization: fallbackTimelineOptimization(),
		ResourceOptimization: fallbackResourceOptimization(),
		OverallHealth: Health{
			Score:           75,
			Level:           HealthGood,
			Summary:         "Project analysis temporarily unavailable, using fallback assessment",
			Recommendations: []string{"Check system status", "Retry analysis later"},
		},
		AgentStates: []AgentSnapshot{},
		Fallback:    true,
	}
}
