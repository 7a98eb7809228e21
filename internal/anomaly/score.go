package anomaly

import (
	"math"

	"github.com/finsenselabs/finsense/internal/budget"
)

// Grade is the letter summary of a health score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// FactorScore is one weighted component of the health score.
type FactorScore struct {
	Score   float64 `json:"score"`
	Max     float64 `json:"max"`
	Verdict string  `json:"verdict"`
}

// Health is the overall financial health assessment.
type Health struct {
	Score     float64                `json:"score"`
	Grade     Grade                  `json:"grade"`
	Summary   string                 `json:"summary"`
	Breakdown map[string]FactorScore `json:"breakdown"`
}

// Score computes the 0-100 financial health score from five weighted
// factors: savings rate (30), investment rate (25), anomaly penalty
// (20), essential-vs-discretionary ratio (15) and income coverage (10).
func Score(spending budget.Spending, monthlyIncome float64, results []Result, region budget.Region) Health {
	breakdown := make(map[string]FactorScore, 5)
	var total float64

	// Savings rate. India's ideal is 20%, the US's 15%.
	idealSavings := 15.0
	if region == budget.RegionIndia {
		idealSavings = 20.0
	}
	savingsRate := spending[budget.CategorySavings] / monthlyIncome * 100
	savingsScore := math.Min(30, savingsRate/idealSavings*30)
	total += savingsScore
	breakdown["savings_rate"] = FactorScore{
		Score:   round1(savingsScore),
		Max:     30,
		Verdict: goodIf(savingsRate >= idealSavings),
	}

	// Investment rate. 10% ideal in both regions.
	investmentRate := spending[budget.CategoryInvestments] / monthlyIncome * 100
	investmentScore := math.Min(25, investmentRate/10*25)
	total += investmentScore
	breakdown["investment_rate"] = FactorScore{
		Score:   round1(investmentScore),
		Max:     25,
		Verdict: goodIf(investmentRate >= 10),
	}

	// Anomaly penalty: 4 points per critical verdict, 2 per warning.
	var criticalCount, warningCount int
	for _, r := range results {
		switch r.Verdict {
		case VerdictCritical:
			criticalCount++
		case VerdictWarning:
			warningCount++
		}
	}
	anomalyScore := math.Max(0, 20-float64(criticalCount*4+warningCount*2))
	total += anomalyScore
	breakdown["spending_health"] = FactorScore{
		Score:   round1(anomalyScore),
		Max:     20,
		Verdict: goodIf(criticalCount == 0),
	}

	// Essential vs discretionary split.
	essential := spending[budget.CategoryRent] + spending[budget.CategoryFood] +
		spending[budget.CategoryTransport] + spending[budget.CategoryHealth]
	discretionary := spending[budget.CategoryDiningOut] + spending[budget.CategoryEntertainment] +
		spending[budget.CategorySubscriptions] + spending[budget.CategoryShopping]

	ratioScore := 15.0
	if discretionary > 0 {
		ratioScore = math.Min(15, essential/(essential+discretionary)*15)
	}
	total += ratioScore
	breakdown["spending_ratio"] = FactorScore{
		Score:   round1(ratioScore),
		Max:     15,
		Verdict: goodIf(ratioScore >= 10),
	}

	// Income coverage: how much of income the total spend consumes.
	coverageRate := spending.Total() / monthlyIncome * 100
	var coverageScore float64
	switch {
	case coverageRate <= 70:
		coverageScore = 10
	case coverageRate <= 85:
		coverageScore = 6
	case coverageRate <= 95:
		coverageScore = 3
	}
	total += coverageScore
	breakdown["income_coverage"] = FactorScore{
		Score:   round1(coverageScore),
		Max:     10,
		Verdict: goodIf(coverageRate <= 70),
	}

	final := round1(math.Min(100, total))
	grade, summary := gradeFor(final)

	return Health{
		Score:     final,
		Grade:     grade,
		Summary:   summary,
		Breakdown: breakdown,
	}
}

func gradeFor(score float64) (Grade, string) {
	switch {
	case score >= 80:
		return GradeA, "Excellent financial health — keep it up!"
	case score >= 65:
		return GradeB, "Good financial health with room to improve"
	case score >= 50:
		return GradeC, "Average financial health — some areas need attention"
	case score >= 35:
		return GradeD, "Poor financial health — significant changes needed"
	default:
		return GradeF, "Critical financial health — urgent action required"
	}
}

func goodIf(ok bool) string {
	if ok {
		return "good"
	}
	return "needs improvement"
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
