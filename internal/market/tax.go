package market

import (
	"fmt"

	"github.com/finsenselabs/finsense/internal/budget"
)

// taxSlab is one marginal bracket: the rate applies to income between
// the previous slab's limit and this one's.
type taxSlab struct {
	Limit float64
	Rate  float64
}

const noLimit = 1e18

// India slabs, new regime (default from FY 2024-25 onwards).
var indiaNewSlabs = []taxSlab{
	{300000, 0},
	{600000, 0.05},
	{900000, 0.10},
	{1200000, 0.15},
	{1500000, 0.20},
	{noLimit, 0.30},
}

// India slabs, old regime.
var indiaOldSlabs = []taxSlab{
	{250000, 0},
	{500000, 0.05},
	{1000000, 0.20},
	{noLimit, 0.30},
}

// US federal brackets, 2026 single filer.
var usBrackets = []taxSlab{
	{11925, 0.10},
	{48475, 0.12},
	{103350, 0.22},
	{197300, 0.24},
	{250525, 0.32},
	{626350, 0.35},
	{noLimit, 0.37},
}

const (
	indiaCess           = 1.04 // 4% health and education cess
	indiaMax80C         = 150000
	usStandardDeduction = 14600
	usMax401KContrib    = 23000
)

// TaxEstimate is the region-specific tax picture for an annual income.
// Region-specific fields are zero for the other region.
type TaxEstimate struct {
	Region       budget.Region `json:"region"`
	AnnualIncome float64       `json:"annual_income"`

	// India: both regimes plus the 80C comparison.
	NewRegimeTax      float64 `json:"new_regime_tax,omitempty"`
	OldRegimeTax      float64 `json:"old_regime_tax,omitempty"`
	OldRegimeWith80C  float64 `json:"old_regime_with_80c_tax,omitempty"`
	TaxSavingsWith80C float64 `json:"tax_savings_with_80c,omitempty"`
	RecommendedRegime string  `json:"recommended_regime,omitempty"`

	// US: federal tax and the 401k comparison.
	TaxableIncome  float64 `json:"taxable_income,omitempty"`
	FederalTax     float64 `json:"federal_tax,omitempty"`
	TaxWithMax401K float64 `json:"tax_with_max_401k,omitempty"`
	TaxSavings401K float64 `json:"tax_savings_401k,omitempty"`

	EffectiveRate float64 `json:"effective_rate"`
	Tip           string  `json:"tip"`
	Status        string  `json:"status"`
}

// EstimateTax computes the region's income tax estimate. Pure function.
func EstimateTax(region budget.Region, annualIncome float64) TaxEstimate {
	if region == budget.RegionIndia {
		return estimateIndiaTax(annualIncome)
	}
	return estimateUSTax(annualIncome)
}

// marginalTax walks the slab ladder.
func marginalTax(income float64, slabs []taxSlab) float64 {
	var tax, prevLimit float64
	for _, slab := range slabs {
		if income <= prevLimit {
			break
		}
		taxable := min(income, slab.Limit) - prevLimit
		tax += taxable * slab.Rate
		prevLimit = slab.Limit
	}
	return tax
}

func estimateIndiaTax(annualIncome float64) TaxEstimate {
	newRegime := marginalTax(annualIncome, indiaNewSlabs) * indiaCess
	oldRegime := marginalTax(annualIncome, indiaOldSlabs) * indiaCess
	oldWith80C := marginalTax(max(0, annualIncome-indiaMax80C), indiaOldSlabs) * indiaCess

	recommended := "old"
	if newRegime <= oldWith80C {
		recommended = "new"
	}
	savings80C := oldRegime - oldWith80C

	var effectiveRate float64
	if annualIncome > 0 {
		effectiveRate = round2(newRegime / annualIncome * 100)
	}

	return TaxEstimate{
		Region:            budget.RegionIndia,
		AnnualIncome:      round2(annualIncome),
		NewRegimeTax:      round2(newRegime),
		OldRegimeTax:      round2(oldRegime),
		OldRegimeWith80C:  round2(oldWith80C),
		TaxSavingsWith80C: round2(savings80C),
		RecommendedRegime: recommended,
		EffectiveRate:     effectiveRate,
		Tip: fmt.Sprintf("Invest ₹1,50,000 in ELSS/PPF/NPS to save ₹%.0f in tax under old regime",
			savings80C),
		Status: StatusSuccess,
	}
}

func estimateUSTax(annualIncome float64) TaxEstimate {
	taxableIncome := max(0, annualIncome-usStandardDeduction)
	baseTax := marginalTax(taxableIncome, usBrackets)

	incomeWith401K := max(0, taxableIncome-usMax401KContrib)
	taxWith401K := marginalTax(incomeWith401K, usBrackets)
	savings401K := baseTax - taxWith401K

	var effectiveRate float64
	if annualIncome > 0 {
		effectiveRate = round2(baseTax / annualIncome * 100)
	}

	return TaxEstimate{
		Region:         budget.RegionUS,
		AnnualIncome:   round2(annualIncome),
		TaxableIncome:  round2(taxableIncome),
		FederalTax:     round2(baseTax),
		TaxWithMax401K: round2(taxWith401K),
		TaxSavings401K: round2(savings401K),
		EffectiveRate:  effectiveRate,
		Tip: fmt.Sprintf("Contributing $%d to 401k saves you $%.0f in federal taxes",
			usMax401KContrib, savings401K),
		Status: StatusSuccess,
	}
}
