package orchestrator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/analysis"
)

func TestScoreCircularHighRiskScenario(t *testing.T) {
	res := &Result{
		DependencyAnalysis: &analysis.DependencyAnalysis{
			HealthScore:          80,
			CircularDependencies: [][]string{{"a", "b"}, {"c", "d", "e"}},
		},
		RiskAssessment: &analysis.RiskAssessment{
			RiskLevel:       analysis.LevelHigh,
			Recommendations: []string{"Escalate", "Re-plan", "Hire"},
		},
		TimelineOptimization: &analysis.TimelineOptimization{TimelineSavings: 0},
		ResourceOptimization: &analysis.ResourceOptimization{
			WorkloadBalancing: []analysis.WorkloadEntry{
				{ResourceID: "r1", CurrentUtilization: 120},
				{ResourceID: "r2", CurrentUtilization: 100},
			},
		},
	}

	h := Score(res)
	// 100 - (100-80)*0.25 - 30*0.3 - 5
	assert.Equal(t, 81, h.Score)
	assert.Equal(t, HealthGood, h.Level)
	assert.Equal(t, summaries[HealthGood], h.Summary)
	assert.Equal(t, []string{
		"Resolve circular dependencies immediately",
		"Escalate",
		"Re-plan",
		"Rebalance resource allocation",
	}, h.Recommendations)
	assert.Equal(t, []string{
		"2 circular dependencies detected",
		"Project risk level: high",
		"1 resource is overallocated",
	}, h.Issues)
}

// The timeline rule is asymmetric: savings earn at most 15 points, while an
// extension beyond five days costs two points per day with no cap.
func TestScoreTimelineAsymmetry(t *testing.T) {
	base := func(savings int) *Result {
		return &Result{
			DependencyAnalysis:   &analysis.DependencyAnalysis{HealthScore: 100},
			RiskAssessment:       &analysis.RiskAssessment{RiskLevel: analysis.LevelCritical},
			TimelineOptimization: &analysis.TimelineOptimization{TimelineSavings: savings},
		}
	}
	cases := []struct {
		savings int
		score   int
		issue   bool
	}{
		{savings: 0, score: 85},
		{savings: 3, score: 91},
		{savings: 7, score: 99},
		{savings: 8, score: 100},
		{savings: 40, score: 100},
		{savings: -1, score: 85},
		{savings: -5, score: 85},
		{savings: -6, score: 73, issue: true},
		{savings: -20, score: 45, issue: true},
		{savings: -60, score: 0, issue: true},
	}
	for _, tc := range cases {
		h := Score(base(tc.savings))
		assert.Equal(t, tc.score, h.Score, "savings %d", tc.savings)
		assert.Equal(t, levelFor(h.Score), h.Level, "savings %d", tc.savings)
		if tc.issue {
			assert.Contains(t, h.Issues, fmt.Sprintf("Project timeline extended by %d days", -tc.savings))
		} else {
			assert.NotContains(t, h.Issues, fmt.Sprintf("Project timeline extended by %d days", -tc.savings))
		}
	}
}

func TestScoreMissingAnalysesUseFallbackWeights(t *testing.T) {
	// dependency 75 -> -6.25, medium risk -> -4.5
	h := Score(&Result{})
	assert.Equal(t, 89, h.Score)
	assert.Equal(t, HealthGood, h.Level)
	assert.Empty(t, h.Recommendations)
	assert.NotNil(t, h.Recommendations)

	h = Score(&Result{RiskAssessment: &analysis.RiskAssessment{RiskLevel: "unheard-of"}})
	assert.Equal(t, 89, h.Score)
}

func TestScoreKeepsZeroDependencyHealth(t *testing.T) {
	h := Score(&Result{
		DependencyAnalysis: &analysis.DependencyAnalysis{HealthScore: 0},
		RiskAssessment:     &analysis.RiskAssessment{RiskLevel: analysis.LevelLow},
	})
	assert.Equal(t, 75, h.Score)
}

func TestScoreTeamPenalty(t *testing.T) {
	h := Score(&Result{
		DependencyAnalysis: &analysis.DependencyAnalysis{HealthScore: 100},
		RiskAssessment:     &analysis.RiskAssessment{RiskLevel: analysis.LevelLow},
		TeamInsights: []analysis.TeamInsight{
			{TeamID: "a", RiskLevel: analysis.LevelHigh},
			{TeamID: "b", RiskLevel: analysis.LevelCritical},
			{TeamID: "c", RiskLevel: analysis.LevelMedium},
		},
	})
	assert.Equal(t, 84, h.Score)
}

func TestScoreResourcePenaltyClamps(t *testing.T) {
	var entries []analysis.WorkloadEntry
	for i := 0; i < 30; i++ {
		entries = append(entries, analysis.WorkloadEntry{CurrentUtilization: 150})
	}
	h := Score(&Result{ResourceOptimization: &analysis.ResourceOptimization{WorkloadBalancing: entries}})
	assert.Equal(t, 0, h.Score)
	assert.Equal(t, HealthCritical, h.Level)
	assert.Equal(t, summaries[HealthCritical], h.Summary)
}

func TestScoreRecommendationsCapped(t *testing.T) {
	risk := &analysis.RiskAssessment{RiskLevel: analysis.LevelCritical, Recommendations: []string{"1", "2", "3", "4", "5", "6"}}
	h := Score(&Result{
		DependencyAnalysis:   &analysis.DependencyAnalysis{HealthScore: 50, CircularDependencies: [][]string{{"a", "b"}}},
		RiskAssessment:       risk,
		ResourceOptimization: &analysis.ResourceOptimization{WorkloadBalancing: []analysis.WorkloadEntry{{CurrentUtilization: 101}}},
	})
	require.LessOrEqual(t, len(h.Recommendations), maxRecommendations)
	assert.Equal(t, []string{"Resolve circular dependencies immediately", "1", "2", "Rebalance resource allocation"}, h.Recommendations)
}

func TestOverallocationIssueWording(t *testing.T) {
	assert.Equal(t, "1 resource is overallocated", overallocationIssue(1))
	assert.Equal(t, "3 resources are overallocated", overallocationIssue(3))
}

func TestLevelThresholds(t *testing.T) {
	cases := map[int]HealthLevel{
		100: HealthExcellent, 90: HealthExcellent,
		89: HealthGood, 75: HealthGood,
		74: HealthFair, 60: HealthFair,
		59: HealthPoor, 40: HealthPoor,
		39: HealthCritical, 0: HealthCritical,
	}
	for score, want := range cases {
		assert.Equal(t, want, levelFor(score), "score %d", score)
	}
}

func TestScoreAlwaysInRangeAndConsistent(t *testing.T) {
	levels := []analysis.Level{analysis.LevelLow, analysis.LevelMedium, analysis.LevelHigh, analysis.LevelCritical}
	for dep := 0.0; dep <= 100; dep += 12.5 {
		for _, lvl := range levels {
			for savings := -30; savings <= 30; savings += 7 {
				for over := 0; over < 4; over++ {
					entries := make([]analysis.WorkloadEntry, over)
					for i := range entries {
						entries[i].CurrentUtilization = 130
					}
					h := Score(&Result{
						DependencyAnalysis:   &analysis.DependencyAnalysis{HealthScore: dep},
						RiskAssessment:       &analysis.RiskAssessment{RiskLevel: lvl},
						TimelineOptimization: &analysis.TimelineOptimization{TimelineSavings: savings},
						ResourceOptimization: &analysis.ResourceOptimization{WorkloadBalancing: entries},
					})
					require.GreaterOrEqual(t, h.Score, 0)
					require.LessOrEqual(t, h.Score, 100)
					require.Equal(t, levelFor(h.Score), h.Level)
					require.Equal(t, summaries[h.Level], h.Summary)
				}
			}
		}
	}
}

func TestScoreSafelyRecovers(t *testing.T) {
	h := scoreSafely(nil, zap.NewNop())
	assert.Equal(t, 75, h.Score)
	assert.Equal(t, HealthGood, h.Level)
	assert.Equal(t, "Health calculation temporarily unavailable", h.Summary)
}
