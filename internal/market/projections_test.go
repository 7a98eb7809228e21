package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsenselabs/finsense/internal/budget"
)

func TestProjections_India(t *testing.T) {
	set := Projections(5000, budget.RegionIndia)

	assert.Equal(t, 12.0, set.AssumedReturn)
	assert.Equal(t, "Nifty 50 historical CAGR", set.Benchmark)
	require.Len(t, set.Horizons, 3)

	tenYear := set.Horizons[10]
	assert.Equal(t, "SIP", tenYear.Type)
	assert.Equal(t, "INR", tenYear.Currency)
	assert.Equal(t, 600000.00, tenYear.TotalInvested)
	// FV = 5000 × ((1.01^120 − 1) / 0.01) × 1.01
	assert.InDelta(t, 1161696, tenYear.FutureValue, 5.0)
	assert.InDelta(t, tenYear.FutureValue-tenYear.TotalInvested, tenYear.TotalReturns, 0.01)

	// Longer horizons compound further.
	assert.Greater(t, set.Horizons[20].FutureValue, set.Horizons[10].FutureValue)
	assert.Greater(t, set.Horizons[10].FutureValue, set.Horizons[5].FutureValue)
}

func TestProjections_US(t *testing.T) {
	set := Projections(500, budget.RegionUS)

	assert.Equal(t, 10.0, set.AssumedReturn)
	tenYear := set.Horizons[10]
	assert.Equal(t, "Compound Interest", tenYear.Type)
	assert.Equal(t, "USD", tenYear.Currency)
	assert.Equal(t, 60000.00, tenYear.TotalInvested)
	// Ordinary annuity form, no extra (1+r) factor.
	assert.InDelta(t, 102422, tenYear.FutureValue, 5.0)
}

func TestProjections_ZeroSurplus(t *testing.T) {
	set := Projections(0, budget.RegionIndia)
	for _, years := range []int{5, 10, 20} {
		p := set.Horizons[years]
		assert.Equal(t, 0.00, p.FutureValue)
		assert.Equal(t, 0.00, p.TotalInvested)
		assert.Equal(t, 0.00, p.ReturnPercentage)
	}
}

func TestPPFReturns(t *testing.T) {
	p := PPFReturns(150000, 15)
	assert.Equal(t, "PPF", p.Type)
	assert.Equal(t, 7.1, p.AnnualReturnRate)
	assert.Equal(t, 2250000.00, p.TotalInvested)
	assert.Greater(t, p.FutureValue, p.TotalInvested)
	assert.Equal(t, "INR", p.Currency)
}

func TestHYSAReturns(t *testing.T) {
	p := HYSAReturns(500, 5)
	assert.Equal(t, "HYSA", p.Type)
	assert.Equal(t, 30000.00, p.TotalInvested)
	assert.Greater(t, p.FutureValue, p.TotalInvested)
	assert.Equal(t, "USD", p.Currency)
}
