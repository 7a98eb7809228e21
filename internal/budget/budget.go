// Package budget defines the domain types for a budget analysis run:
// regions, spending maps, budgeting frameworks and the rebuilt budget.
package budget

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sentinel errors for input validation.
var (
	// ErrNonPositiveIncome is returned when monthly income is zero or negative.
	ErrNonPositiveIncome = errors.New("monthly income must be positive")

	// ErrNegativeAmount is returned when a spending category holds a negative amount.
	ErrNegativeAmount = errors.New("spending amount cannot be negative")
)

// Region identifies one of the supported geographic/economic contexts.
// Each region carries its own benchmarks, tax rules and budgeting framework.
type Region string

const (
	RegionIndia Region = "india"
	RegionUS    Region = "us"
)

// ParseRegion normalizes a user-supplied region string.
// Unknown values default to india, matching the original product behavior.
func ParseRegion(s string) Region {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RegionUS):
		return RegionUS
	default:
		return RegionIndia
	}
}

// Language selects the instruction variant used in generated output.
type Language string

const (
	LanguageEnglish  Language = "english"
	LanguageHinglish Language = "hinglish"
)

// ParseLanguage normalizes a user-supplied language preference.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageHinglish)) {
		return LanguageHinglish
	}
	return LanguageEnglish
}

// Canonical spending categories. Free-form categories are accepted by the
// pipeline; these are the ones the benchmarks and health score know about.
const (
	CategoryRent          = "rent"
	CategoryFood          = "food"
	CategoryDiningOut     = "dining_out"
	CategoryTransport     = "transport"
	CategoryEntertainment = "entertainment"
	CategorySubscriptions = "subscriptions"
	CategoryShopping      = "shopping"
	CategoryHealth        = "health"
	CategoryEducation     = "education"
	CategorySavings       = "savings"
	CategoryInvestments   = "investments"
	CategoryOther         = "other"
)

// Spending maps category names to monthly amounts in the user's currency.
type Spending map[string]float64

// Total returns the sum of all category amounts.
func (s Spending) Total() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

// TotalExcluding returns the sum of all category amounts except the given ones.
func (s Spending) TotalExcluding(categories ...string) float64 {
	excluded := make(map[string]bool, len(categories))
	for _, c := range categories {
		excluded[c] = true
	}
	var total float64
	for k, v := range s {
		if !excluded[k] {
			total += v
		}
	}
	return total
}

// Input is the validated user submission a pipeline run starts from.
type Input struct {
	Region        Region   `json:"region"`
	MonthlyIncome float64  `json:"monthly_income"`
	Spending      Spending `json:"spending"`
	Language      Language `json:"language"`
}

// Validate enforces the run preconditions: positive income and
// non-negative spending amounts. Callers must validate before starting
// a pipeline run; the pipeline itself does not re-check.
func (in Input) Validate() error {
	if in.MonthlyIncome <= 0 {
		return ErrNonPositiveIncome
	}
	for category, amount := range in.Spending {
		if amount < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeAmount, category)
		}
	}
	return nil
}

// CurrencySymbol returns the display currency for a region.
func CurrencySymbol(region Region) string {
	if region == RegionIndia {
		return "₹"
	}
	return "$"
}

// Framework is a three-way income split used to rebuild a budget.
type Framework struct {
	Label   string
	Needs   float64
	Wants   float64
	Savings float64
}

// FrameworkFor returns the region's budgeting framework:
// 40/30/30 for india, 50/30/20 otherwise.
func FrameworkFor(region Region) Framework {
	if region == RegionIndia {
		return Framework{Label: "40/30/30", Needs: 0.40, Wants: 0.30, Savings: 0.30}
	}
	return Framework{Label: "50/30/20", Needs: 0.50, Wants: 0.30, Savings: 0.20}
}

// RebuiltBudget is the framework-aligned reallocation of monthly income.
type RebuiltBudget struct {
	Needs              float64 `json:"needs"`
	Wants              float64 `json:"wants"`
	SavingsInvestments float64 `json:"savings_and_investments"`
	Framework          string  `json:"framework"`
}

// Rebuild splits monthly income by the region's framework ratios.
// Each component is rounded to two decimals independently, so the sum
// may differ from income by a few cents.
func Rebuild(monthlyIncome float64, region Region) RebuiltBudget {
	fw := FrameworkFor(region)
	return RebuiltBudget{
		Needs:              round2(monthlyIncome * fw.Needs),
		Wants:              round2(monthlyIncome * fw.Wants),
		SavingsInvestments: round2(monthlyIncome * fw.Savings),
		Framework:          fw.Label,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
