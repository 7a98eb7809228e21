package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finsenselabs/finsense/internal/budget"
)

func TestEstimateTax_India(t *testing.T) {
	est := EstimateTax(budget.RegionIndia, 800000)

	assert.Equal(t, budget.RegionIndia, est.Region)
	assert.Equal(t, 36400.00, est.NewRegimeTax)
	assert.Equal(t, 75400.00, est.OldRegimeTax)
	assert.Equal(t, 44200.00, est.OldRegimeWith80C)
	assert.Equal(t, 31200.00, est.TaxSavingsWith80C)
	assert.Equal(t, "new", est.RecommendedRegime)
	assert.Equal(t, 4.55, est.EffectiveRate)
	assert.Contains(t, est.Tip, "ELSS/PPF/NPS")
	assert.Equal(t, StatusSuccess, est.Status)
}

func TestEstimateTax_IndiaBelowExemption(t *testing.T) {
	est := EstimateTax(budget.RegionIndia, 250000)
	assert.Equal(t, 0.00, est.NewRegimeTax)
	assert.Equal(t, 0.00, est.OldRegimeTax)
	assert.Equal(t, "new", est.RecommendedRegime)
}

func TestEstimateTax_US(t *testing.T) {
	est := EstimateTax(budget.RegionUS, 75000)

	assert.Equal(t, budget.RegionUS, est.Region)
	assert.Equal(t, 60400.00, est.TaxableIncome)
	assert.Equal(t, 8202.00, est.FederalTax)
	assert.Equal(t, 4249.50, est.TaxWithMax401K)
	assert.Equal(t, 3952.50, est.TaxSavings401K)
	assert.Equal(t, 10.94, est.EffectiveRate)
	assert.Contains(t, est.Tip, "401k")
}

func TestEstimateTax_USBelowStandardDeduction(t *testing.T) {
	est := EstimateTax(budget.RegionUS, 10000)
	assert.Equal(t, 0.00, est.TaxableIncome)
	assert.Equal(t, 0.00, est.FederalTax)
	assert.Equal(t, 0.00, est.TaxSavings401K)
}
