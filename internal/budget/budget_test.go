package budget

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		input string
		want  Region
	}{
		{"india", RegionIndia},
		{"us", RegionUS},
		{"US", RegionUS},
		{"  us ", RegionUS},
		{"", RegionIndia},
		{"germany", RegionIndia},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRegion(tt.input), "input %q", tt.input)
	}
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, LanguageHinglish, ParseLanguage("Hinglish"))
	assert.Equal(t, LanguageEnglish, ParseLanguage("english"))
	assert.Equal(t, LanguageEnglish, ParseLanguage(""))
}

func TestSpending_Totals(t *testing.T) {
	s := Spending{
		CategoryRent:        15000,
		CategoryFood:        5000,
		CategorySavings:     2000,
		CategoryInvestments: 1000,
	}

	assert.InDelta(t, 23000, s.Total(), 1e-9)
	assert.InDelta(t, 20000, s.TotalExcluding(CategorySavings, CategoryInvestments), 1e-9)
}

func TestInput_Validate(t *testing.T) {
	valid := Input{
		Region:        RegionIndia,
		MonthlyIncome: 50000,
		Spending:      Spending{CategoryRent: 15000},
		Language:      LanguageEnglish,
	}
	require.NoError(t, valid.Validate())

	zeroIncome := valid
	zeroIncome.MonthlyIncome = 0
	assert.ErrorIs(t, zeroIncome.Validate(), ErrNonPositiveIncome)

	negative := valid
	negative.Spending = Spending{CategoryFood: -1}
	assert.ErrorIs(t, negative.Validate(), ErrNegativeAmount)
}

func TestFrameworkFor(t *testing.T) {
	india := FrameworkFor(RegionIndia)
	assert.Equal(t, "40/30/30", india.Label)
	assert.InDelta(t, 1.0, india.Needs+india.Wants+india.Savings, 1e-9)

	us := FrameworkFor(RegionUS)
	assert.Equal(t, "50/30/20", us.Label)
	assert.InDelta(t, 1.0, us.Needs+us.Wants+us.Savings, 1e-9)
}

func TestRebuild_ExactComponents(t *testing.T) {
	rb := Rebuild(50000, RegionIndia)
	assert.Equal(t, 20000.00, rb.Needs)
	assert.Equal(t, 15000.00, rb.Wants)
	assert.Equal(t, 15000.00, rb.SavingsInvestments)
	assert.Equal(t, "40/30/30", rb.Framework)

	rb = Rebuild(5000, RegionUS)
	assert.Equal(t, 2500.00, rb.Needs)
	assert.Equal(t, 1500.00, rb.Wants)
	assert.Equal(t, 1000.00, rb.SavingsInvestments)
	assert.Equal(t, "50/30/20", rb.Framework)
}

func TestRebuild_RoundingBound(t *testing.T) {
	// Components round independently; the reassembled sum must stay
	// within a few cents of the income for both regions.
	incomes := []float64{50000, 5000, 3333.33, 1234.567, 99999.99, 0.01}
	for _, income := range incomes {
		for _, region := range []Region{RegionIndia, RegionUS} {
			rb := Rebuild(income, region)
			sum := rb.Needs + rb.Wants + rb.SavingsInvestments
			assert.LessOrEqual(t, math.Abs(sum-income), 0.03,
				"income %.2f region %s: sum %.4f", income, region, sum)
		}
	}
}
