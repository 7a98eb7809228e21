// Package anomaly scores spending patterns against region benchmarks.
//
// It provides the two operations the analysis stage depends on: Detect,
// which flags categories whose share of income deviates unusually far
// from the healthy benchmark, and Score, which condenses the full
// spending picture into a 0-100 health score with a letter grade.
package anomaly

import (
	"math"
	"sort"

	"github.com/finsenselabs/finsense/internal/budget"
)

// Verdict classifies a category against its benchmark thresholds.
type Verdict string

const (
	VerdictHealthy  Verdict = "healthy"
	VerdictWarning  Verdict = "warning"
	VerdictCritical Verdict = "critical"
)

// benchmark holds the healthy/warning/critical percent-of-income
// thresholds for one category.
type benchmark struct {
	Ideal    float64
	Warning  float64
	Critical float64
}

// Region benchmark tables. For savings and investments the ladder is
// inverted: falling below the threshold is the problem.
var indiaBenchmarks = map[string]benchmark{
	budget.CategoryRent:          {Ideal: 25, Warning: 35, Critical: 45},
	budget.CategoryFood:          {Ideal: 10, Warning: 15, Critical: 20},
	budget.CategoryDiningOut:     {Ideal: 5, Warning: 10, Critical: 15},
	budget.CategoryTransport:     {Ideal: 8, Warning: 12, Critical: 18},
	budget.CategoryEntertainment: {Ideal: 3, Warning: 6, Critical: 10},
	budget.CategorySubscriptions: {Ideal: 2, Warning: 5, Critical: 8},
	budget.CategoryShopping:      {Ideal: 5, Warning: 10, Critical: 15},
	budget.CategoryHealth:        {Ideal: 3, Warning: 6, Critical: 10},
	budget.CategoryEducation:     {Ideal: 5, Warning: 10, Critical: 15},
	budget.CategorySavings:       {Ideal: 20, Warning: 10, Critical: 5},
	budget.CategoryInvestments:   {Ideal: 10, Warning: 5, Critical: 0},
	budget.CategoryOther:         {Ideal: 5, Warning: 8, Critical: 12},
}

var usBenchmarks = map[string]benchmark{
	budget.CategoryRent:          {Ideal: 28, Warning: 35, Critical: 45},
	budget.CategoryFood:          {Ideal: 8, Warning: 12, Critical: 18},
	budget.CategoryDiningOut:     {Ideal: 5, Warning: 8, Critical: 12},
	budget.CategoryTransport:     {Ideal: 10, Warning: 15, Critical: 20},
	budget.CategoryEntertainment: {Ideal: 3, Warning: 6, Critical: 10},
	budget.CategorySubscriptions: {Ideal: 3, Warning: 6, Critical: 10},
	budget.CategoryShopping:      {Ideal: 5, Warning: 8, Critical: 12},
	budget.CategoryHealth:        {Ideal: 5, Warning: 8, Critical: 12},
	budget.CategoryEducation:     {Ideal: 3, Warning: 6, Critical: 10},
	budget.CategorySavings:       {Ideal: 15, Warning: 8, Critical: 3},
	budget.CategoryInvestments:   {Ideal: 10, Warning: 5, Critical: 0},
	budget.CategoryOther:         {Ideal: 5, Warning: 8, Critical: 12},
}

func benchmarksFor(region budget.Region) map[string]benchmark {
	if region == budget.RegionIndia {
		return indiaBenchmarks
	}
	return usBenchmarks
}

// savingsLike reports whether a category is one where more is better.
func savingsLike(category string) bool {
	return category == budget.CategorySavings || category == budget.CategoryInvestments
}

// Result is the verdict for one spending category.
type Result struct {
	Category            string  `json:"category"`
	Amount              float64 `json:"amount"`
	PercentageOfIncome  float64 `json:"percentage_of_income"`
	BenchmarkPercentage float64 `json:"benchmark_percentage"`
	IsAnomalous         bool    `json:"is_anomalous"`
	AnomalyScore        float64 `json:"anomaly_score"`
	Verdict             Verdict `json:"verdict"`
}

// Detect compares each known category's share of income against the
// region benchmarks and flags the unusually bad ones.
//
// The anomaly score is a robust z-score of the category's benchmark
// deviation against the deviation distribution of the whole submission
// (median/MAD based, so a single wild category cannot hide the rest).
// Higher means worse; a category is flagged when its deviation sits
// more than one MAD above the median. Categories without a benchmark
// are ignored.
func Detect(spending budget.Spending, monthlyIncome float64, region budget.Region) []Result {
	benchmarks := benchmarksFor(region)

	type entry struct {
		category  string
		pct       float64
		deviation float64
	}
	var entries []entry
	for category, amount := range spending {
		bm, ok := benchmarks[category]
		if !ok {
			continue
		}
		pct := round2(amount / monthlyIncome * 100)
		deviation := pct - bm.Ideal
		if savingsLike(category) {
			deviation = bm.Ideal - pct
		}
		entries = append(entries, entry{category: category, pct: pct, deviation: deviation})
	}
	if len(entries) == 0 {
		return []Result{}
	}

	deviations := make([]float64, len(entries))
	for i, e := range entries {
		deviations[i] = e.deviation
	}
	med := median(deviations)
	mad := medianAbsDeviation(deviations, med)

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		bm := benchmarks[e.category]

		var z float64
		if mad > 0 {
			// 1.4826 scales MAD to the standard deviation of a normal
			// distribution.
			z = (e.deviation - med) / (1.4826 * mad)
		}

		results = append(results, Result{
			Category:            e.category,
			Amount:              spending[e.category],
			PercentageOfIncome:  e.pct,
			BenchmarkPercentage: bm.Ideal,
			IsAnomalous:         mad > 0 && e.deviation > med+mad,
			AnomalyScore:        round4(z),
			Verdict:             verdictFor(e.category, e.pct, bm),
		})
	}

	// Critical first, then anomalous, as the original surfaces them.
	sort.SliceStable(results, func(i, j int) bool {
		ci, cj := results[i].Verdict == VerdictCritical, results[j].Verdict == VerdictCritical
		if ci != cj {
			return ci
		}
		if results[i].IsAnomalous != results[j].IsAnomalous {
			return results[i].IsAnomalous
		}
		return false
	})
	return results
}

// verdictFor walks the threshold ladder. Savings-like categories invert
// the comparison: being at or above the ideal is healthy.
func verdictFor(category string, pct float64, bm benchmark) Verdict {
	if savingsLike(category) {
		switch {
		case pct >= bm.Ideal:
			return VerdictHealthy
		case pct >= bm.Warning:
			return VerdictWarning
		default:
			return VerdictCritical
		}
	}
	switch {
	case pct <= bm.Ideal:
		return VerdictHealthy
	case pct <= bm.Warning:
		return VerdictWarning
	default:
		return VerdictCritical
	}
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func medianAbsDeviation(values []float64, med float64) float64 {
	abs := make([]float64, len(values))
	for i, v := range values {
		abs[i] = math.Abs(v - med)
	}
	return median(abs)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
