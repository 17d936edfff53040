package orchestrator

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/nidhogg/pulse/internal/analysis"
)

const maxRecommendations = 5

var riskImpact = map[analysis.Level]float64{
	analysis.LevelLow:      0,
	analysis.LevelMedium:   15,
	analysis.LevelHigh:     30,
	analysis.LevelCritical: 50,
}

var summaries = map[HealthLevel]string{
	HealthExcellent: "Project is performing exceptionally well with minimal risks and optimal resource utilization.",
	HealthGood:      "Project is on track with minor issues that can be easily addressed.",
	HealthFair:      "Project has some challenges that require attention to prevent delays.",
	HealthPoor:      "Project faces significant challenges that need immediate intervention.",
	HealthCritical:  "Project is in critical condition and requires urgent action to prevent failure.",
}

// Score folds the partial results of r into one health verdict. It is pure:
// the same inputs always give the same output. Missing analyses are scored
// as their fallbacks would be.
//
// Timeline savings earn a bonus of at most 15 points while an extension of
// more than five days costs two points per day without a cap.
func Score(r *Result) Health {
	score := 100.0
	issues := []string{}
	recs := []string{}

	depHealth := 75.0
	if d := r.DependencyAnalysis; d != nil {
		depHealth = d.HealthScore
		if n := len(d.CircularDependencies); n > 0 {
			issues = append(issues, fmt.Sprintf("%d circular dependencies detected", n))
			recs = append(recs, "Resolve circular dependencies immediately")
		}
	}
	score -= (100 - depHealth) * 0.25

	level := analysis.LevelMedium
	if r.RiskAssessment != nil {
		level = r.RiskAssessment.RiskLevel
	}
	impact, ok := riskImpact[level]
	if !ok {
		impact = 15
	}
	score -= impact * 0.3
	if level.Severe() {
		issues = append(issues, fmt.Sprintf("Project risk level: %s", level))
		own := r.RiskAssessment.Recommendations
		if len(own) > 2 {
			own = own[:2]
		}
		recs = append(recs, own...)
	}

	if t := r.TimelineOptimization; t != nil {
		switch s := t.TimelineSavings; {
		case s > 0:
			score += math.Min(15, float64(s)*2)
		case s < -5:
			score -= float64(-s) * 2
			issues = append(issues, fmt.Sprintf("Project timeline extended by %d days", -s))
		}
	}

	if res := r.ResourceOptimization; res != nil {
		over := 0
		for _, w := range res.WorkloadBalancing {
			if w.CurrentUtilization > 100 {
				over++
			}
		}
		score -= float64(over) * 5
		if over > 0 {
			issues = append(issues, overallocationIssue(over))
			recs = append(recs, "Rebalance resource allocation")
		}
	}

	for _, ins := range r.TeamInsights {
		if ins.RiskLevel.Severe() {
			score -= 8
		}
	}

	final := int(math.Round(math.Max(0, math.Min(100, score))))
	lvl := levelFor(final)
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return Health{
		Score:           final,
		Level:           lvl,
		Summary:         summaries[lvl],
		Recommendations: recs,
		Issues:          issues,
	}
}

func levelFor(score int) HealthLevel {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 75:
		return HealthGood
	case score >= 60:
		return HealthFair
	case score >= 40:
		return HealthPoor
	default:
		return HealthCritical
	}
}

// scoreSafely runs Score, answering a neutral verdict if it panics.
func scoreSafely(r *Result, logger *zap.Logger) (h Health) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("health scoring panicked", zap.Any("panic", p))
			h = Health{
				Score:           75,
				Level:           HealthGood,
				Summary:         "Health calculation temporarily unavailable",
				Recommendations: []string{"Check system status"},
			}
		}
	}()
	return Score(r)
}

func overallocationIssue(n int) string {
	if n == 1 {
		return "1 resource is overallocated"
	}
	return fmt.Sprintf("%d resources are overallocated", n)
}
