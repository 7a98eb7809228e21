package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finsenselabs/finsense/internal/anomaly"
	"github.com/finsenselabs/finsense/internal/budget"
)

// knowledgeSnippetLen caps each passage quoted into the coach prompt.
const knowledgeSnippetLen = 200

// roastPrompt builds the roast-generation prompt from the analyzed
// record. Pure function of the record.
func roastPrompt(rec Record) string {
	region := rec.Input.Region
	currency := budget.CurrencySymbol(region)

	anomalous := anomalousOnly(rec.Anomalies)
	anomalyText := "No major anomalies found"
	if len(anomalous) > 0 {
		lines := make([]string, len(anomalous))
		for i, a := range anomalous {
			lines[i] = fmt.Sprintf("- %s: %s%s/month (%v%% of income, benchmark is %v%%)",
				a.Category, currency, comma(a.Amount), a.PercentageOfIncome, a.BenchmarkPercentage)
		}
		anomalyText = strings.Join(lines, "\n")
	}

	languageInstruction := "Write in English"
	if rec.Input.Language == budget.LanguageHinglish {
		languageInstruction = "Write in Hinglish (mix of Hindi and English, casual tone)"
	}

	return fmt.Sprintf(`You are a brutally honest financial advisor who roasts people's budgets.
Be specific, funny, and harsh but not mean-spirited. Reference their actual numbers.

User's Financial Profile:
- Country: %s
- Monthly Income: %s%s
- Financial Health Score: %v/100
- Current Inflation Rate: %s%%

Problematic Spending:
%s

%s

Write a roast (150-200 words) that:
1. Opens with a punchy one-liner about their overall financial situation
2. Calls out their 2-3 worst spending habits with specific numbers
3. Makes a comparison (e.g. "your Swiggy spend could fund X months of SIP")
4. Ends with a one-liner that stings but motivates

Be specific to their numbers. Do not be generic.`,
		strings.ToUpper(string(region)),
		currency, comma(rec.Input.MonthlyIncome),
		rec.Health.Score,
		inflationRate(rec),
		anomalyText,
		languageInstruction,
	)
}

// coachPrompt builds the coach-plan prompt from the fully enriched
// record. Pure function of the record.
func coachPrompt(rec Record) string {
	region := rec.Input.Region
	currency := budget.CurrencySymbol(region)
	framework := budget.FrameworkFor(region).Label

	spendingLines := make([]string, 0, len(rec.Input.Spending))
	for _, category := range sortedKeys(rec.Input.Spending) {
		spendingLines = append(spendingLines,
			fmt.Sprintf("- %s: %s%s", category, currency, comma(rec.Input.Spending[category])))
	}

	projSummary := "Projections unavailable"
	if len(rec.Projections.Horizons) > 0 {
		years := make([]int, 0, len(rec.Projections.Horizons))
		for y := range rec.Projections.Horizons {
			years = append(years, y)
		}
		sort.Ints(years)
		lines := make([]string, len(years))
		for i, y := range years {
			lines[i] = fmt.Sprintf("- %d Years: %s%s",
				y, currency, comma(rec.Projections.Horizons[y].FutureValue))
		}
		projSummary = strings.Join(lines, "\n")
	}

	var knowledgeContext string
	for i, p := range rec.Knowledge {
		if i == 3 {
			break
		}
		knowledgeContext += "- " + truncate(p.Content, knowledgeSnippetLen) + "\n"
	}
	knowledgeContext = strings.TrimRight(knowledgeContext, "\n")

	return fmt.Sprintf(`You are a certified financial planner giving serious, actionable advice.

User Profile:
- Country: %s
- Monthly Income: %s%s
- Current Inflation: %s%%
- Budget Framework: %s rule

Current Spending:
%s

If they invest their surplus monthly:
%s

Tax Tip: %s

Financial Knowledge Context:
%s

Write a Coach Plan (250-300 words) with these sections:
1. **Budget Rebuild** — show the %s breakdown with their actual income
2. **Top 3 Actions** — specific, numbered steps to take this week
3. **Investing Starter Plan** — where to start, how much, why
4. **The 10-Year Picture** — what disciplined investing looks like for them

Be specific with numbers. Cite the framework. Make it feel achievable.`,
		strings.ToUpper(string(region)),
		currency, comma(rec.Input.MonthlyIncome),
		inflationRate(rec),
		framework,
		strings.Join(spendingLines, "\n"),
		projSummary,
		rec.Tax.Tip,
		knowledgeContext,
		framework,
	)
}

// anomalousOnly keeps the flagged results, preserving order (the
// detector already sorts worst-first).
func anomalousOnly(results []anomaly.Result) []anomaly.Result {
	var out []anomaly.Result
	for _, r := range results {
		if r.IsAnomalous {
			out = append(out, r)
		}
	}
	return out
}

// inflationRate renders the inflation figure for prompts, "N/A" when
// the provider degraded to a fallback estimate.
func inflationRate(rec Record) string {
	if !rec.Inflation.Available() {
		return "N/A"
	}
	return fmt.Sprintf("%v", rec.Inflation.Rate)
}

// comma renders an amount with thousands separators, dropping the
// fraction (prompt text reads better without cents).
func comma(v float64) string {
	neg := v < 0
	s := fmt.Sprintf("%.0f", v)
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, d := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sortedKeys(m budget.Spending) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
