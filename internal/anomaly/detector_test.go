package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsenselabs/finsense/internal/budget"
)

// indiaScenario is the reference submission: ₹50,000 income with heavy
// discretionary spending and almost nothing saved or invested.
func indiaScenario() (budget.Spending, float64) {
	return budget.Spending{
		budget.CategoryRent:          15000,
		budget.CategoryFood:          5000,
		budget.CategoryDiningOut:     8000,
		budget.CategoryTransport:     3000,
		budget.CategoryEntertainment: 4000,
		budget.CategorySubscriptions: 3000,
		budget.CategoryShopping:      6000,
		budget.CategoryHealth:        1000,
		budget.CategoryEducation:     1000,
		budget.CategorySavings:       2000,
		budget.CategoryInvestments:   0,
		budget.CategoryOther:         2000,
	}, 50000
}

func resultFor(t *testing.T, results []Result, category string) Result {
	t.Helper()
	for _, r := range results {
		if r.Category == category {
			return r
		}
	}
	t.Fatalf("no result for category %s", category)
	return Result{}
}

func TestDetect_IndiaScenario(t *testing.T) {
	spending, income := indiaScenario()
	results := Detect(spending, income, budget.RegionIndia)
	require.Len(t, results, 12)

	investments := resultFor(t, results, budget.CategoryInvestments)
	assert.Equal(t, VerdictCritical, investments.Verdict)
	assert.Equal(t, 0.0, investments.PercentageOfIncome)
	assert.Equal(t, 10.0, investments.BenchmarkPercentage)

	savings := resultFor(t, results, budget.CategorySavings)
	assert.Equal(t, VerdictCritical, savings.Verdict)
	assert.True(t, savings.IsAnomalous, "4%% savings against a 20%% ideal must be flagged")

	diningOut := resultFor(t, results, budget.CategoryDiningOut)
	assert.Equal(t, VerdictCritical, diningOut.Verdict)
	assert.True(t, diningOut.IsAnomalous)
	assert.Equal(t, 16.0, diningOut.PercentageOfIncome)

	food := resultFor(t, results, budget.CategoryFood)
	assert.Equal(t, VerdictHealthy, food.Verdict)
	assert.False(t, food.IsAnomalous)

	// Critical verdicts sort ahead of everything else.
	assert.Equal(t, VerdictCritical, results[0].Verdict)
}

func TestDetect_VerdictLadderInvertsForSavings(t *testing.T) {
	spending := budget.Spending{
		budget.CategorySavings:     2500, // 25% — above the 20% ideal
		budget.CategoryInvestments: 600,  // 6% — between warning (5) and ideal (10)
		budget.CategoryRent:        3600, // 36% — above warning (35)
	}
	results := Detect(spending, 10000, budget.RegionIndia)

	assert.Equal(t, VerdictHealthy, resultFor(t, results, budget.CategorySavings).Verdict)
	assert.Equal(t, VerdictWarning, resultFor(t, results, budget.CategoryInvestments).Verdict)
	assert.Equal(t, VerdictCritical, resultFor(t, results, budget.CategoryRent).Verdict)
}

func TestDetect_UnknownCategoriesIgnored(t *testing.T) {
	spending := budget.Spending{
		"crypto_lottery":    5000,
		budget.CategoryRent: 2000,
	}
	results := Detect(spending, 10000, budget.RegionUS)
	require.Len(t, results, 1)
	assert.Equal(t, budget.CategoryRent, results[0].Category)
}

func TestDetect_EmptySpending(t *testing.T) {
	assert.Empty(t, Detect(budget.Spending{}, 10000, budget.RegionIndia))
}

func TestDetect_UniformSpendingNotAnomalous(t *testing.T) {
	// Identical deviations give MAD 0: nothing can be singled out.
	spending := budget.Spending{
		budget.CategoryEntertainment: 300,
		budget.CategoryHealth:        300,
	}
	for _, r := range Detect(spending, 10000, budget.RegionIndia) {
		assert.False(t, r.IsAnomalous)
		assert.Equal(t, 0.0, r.AnomalyScore)
	}
}

func TestScore_IndiaScenarioGradesPoor(t *testing.T) {
	spending, income := indiaScenario()
	results := Detect(spending, income, budget.RegionIndia)
	health := Score(spending, income, results, budget.RegionIndia)

	assert.Contains(t, []Grade{GradeD, GradeF}, health.Grade)
	assert.Less(t, health.Score, 50.0)
	require.Contains(t, health.Breakdown, "savings_rate")
	assert.Equal(t, "needs improvement", health.Breakdown["savings_rate"].Verdict)
	// Every rupee is spent: no income coverage points.
	assert.Equal(t, 0.0, health.Breakdown["income_coverage"].Score)
}

func TestScore_HealthyBudgetGradesWell(t *testing.T) {
	spending := budget.Spending{
		budget.CategoryRent:        1200,
		budget.CategoryFood:        350,
		budget.CategoryTransport:   300,
		budget.CategoryHealth:      150,
		budget.CategoryDiningOut:   150,
		budget.CategorySavings:     900,
		budget.CategoryInvestments: 600,
	}
	income := 5000.0
	results := Detect(spending, income, budget.RegionUS)
	health := Score(spending, income, results, budget.RegionUS)

	assert.GreaterOrEqual(t, health.Score, 80.0)
	assert.Equal(t, GradeA, health.Grade)
}

func TestScore_NoDiscretionarySpendGetsFullRatioPoints(t *testing.T) {
	spending := budget.Spending{budget.CategoryRent: 2000}
	health := Score(spending, 10000, nil, budget.RegionUS)
	assert.Equal(t, 15.0, health.Breakdown["spending_ratio"].Score)
}
