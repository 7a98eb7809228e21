package market

import (
	"math"

	"github.com/finsenselabs/finsense/internal/budget"
)

// Assumed long-run annual returns per region benchmark:
// Nifty 50 (India) ~12% CAGR, S&P 500 (US) ~10% CAGR.
const (
	indiaAnnualReturn = 12.0
	usAnnualReturn    = 10.0

	ppfAnnualRate  = 7.1 // Public Provident Fund, India
	hysaAnnualRate = 4.5 // High-yield savings account, US
)

// Projection is the outcome of investing a fixed monthly amount for a
// number of years at an assumed annual return.
type Projection struct {
	Type             string  `json:"type"`
	MonthlyAmount    float64 `json:"monthly_amount"`
	Years            int     `json:"years"`
	AnnualReturnRate float64 `json:"annual_return_rate"`
	FutureValue      float64 `json:"future_value"`
	TotalInvested    float64 `json:"total_invested"`
	TotalReturns     float64 `json:"total_returns"`
	ReturnPercentage float64 `json:"return_percentage"`
	Currency         string  `json:"currency"`
}

// ProjectionSet holds the 5/10/20 year outlook for a monthly surplus.
type ProjectionSet struct {
	Region            budget.Region      `json:"region"`
	MonthlyInvestable float64            `json:"monthly_investable_amount"`
	AssumedReturn     float64            `json:"assumed_annual_return"`
	Benchmark         string             `json:"benchmark"`
	Horizons          map[int]Projection `json:"projections"`
	Status            string             `json:"status"`
}

// Projections computes the 5, 10 and 20 year outlook for investing the
// monthly surplus, using the SIP formula for India (contribution at the
// start of each month) and plain compound interest for the US.
// Pure function; a zero or negative surplus yields zero-valued projections.
func Projections(monthlyInvestable float64, region budget.Region) ProjectionSet {
	annualRate := usAnnualReturn
	benchmark := "S&P 500 historical CAGR"
	calcType := "Compound Interest"
	if region == budget.RegionIndia {
		annualRate = indiaAnnualReturn
		benchmark = "Nifty 50 historical CAGR"
		calcType = "SIP"
	}

	horizons := make(map[int]Projection, 3)
	for _, years := range []int{5, 10, 20} {
		horizons[years] = project(monthlyInvestable, annualRate, years, region, calcType)
	}

	return ProjectionSet{
		Region:            region,
		MonthlyInvestable: monthlyInvestable,
		AssumedReturn:     annualRate,
		Benchmark:         benchmark,
		Horizons:          horizons,
		Status:            StatusSuccess,
	}
}

// project computes the future value of a monthly contribution stream.
// FV = P × ((1+r)^n − 1) / r, times (1+r) for the SIP (annuity-due) form.
func project(monthlyAmount, annualRate float64, years int, region budget.Region, calcType string) Projection {
	currency := "USD"
	if region == budget.RegionIndia {
		currency = "INR"
	}
	p := Projection{
		Type:             calcType,
		MonthlyAmount:    round2(monthlyAmount),
		Years:            years,
		AnnualReturnRate: annualRate,
		Currency:         currency,
	}
	if monthlyAmount <= 0 {
		return p
	}

	monthlyRate := annualRate / 100 / 12
	months := float64(years * 12)

	futureValue := monthlyAmount * (math.Pow(1+monthlyRate, months) - 1) / monthlyRate
	if calcType == "SIP" {
		futureValue *= 1 + monthlyRate
	}

	invested := monthlyAmount * months
	returns := futureValue - invested

	p.FutureValue = round2(futureValue)
	p.TotalInvested = round2(invested)
	p.TotalReturns = round2(returns)
	p.ReturnPercentage = round2(returns / invested * 100)
	return p
}

// PPFReturns computes Public Provident Fund maturity for annual
// contributions at the guaranteed 7.1% rate (India only; 15-year lock-in).
func PPFReturns(annualAmount float64, years int) Projection {
	var total float64
	for i := 0; i < years; i++ {
		total = (total + annualAmount) * (1 + ppfAnnualRate/100)
	}
	invested := annualAmount * float64(years)
	p := Projection{
		Type:             "PPF",
		MonthlyAmount:    round2(annualAmount / 12),
		Years:            years,
		AnnualReturnRate: ppfAnnualRate,
		FutureValue:      round2(total),
		TotalInvested:    round2(invested),
		TotalReturns:     round2(total - invested),
		Currency:         "INR",
	}
	if invested > 0 {
		p.ReturnPercentage = round2((total - invested) / invested * 100)
	}
	return p
}

// HYSAReturns computes high-yield savings growth for monthly deposits
// at the going 4.5% rate (US only; fully liquid).
func HYSAReturns(monthlyAmount float64, years int) Projection {
	return project(monthlyAmount, hysaAnnualRate, years, budget.RegionUS, "HYSA")
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
