package transcript

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bobmcallan/fihub/internal/models"
)

const (
	maxExecutiveStatements = 5
	maxStatementLength     = 500
)

// isExecutive matches CEO and CFO titles
func isExecutive(title string) bool {
	t := strings.ToLower(title)
	for _, k := range []string{"ceo", "chief executive", "cfo", "chief financial"} {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// buildEarningsPrompt creates the analysis prompt for one or more quarters,
// with financial context when available.
func buildEarningsPrompt(symbol string, a *models.EarningsAnalysis) string {
	var sb strings.Builder
	primary := a.Quarters[0]

	if len(a.Quarters) == 1 {
		sb.WriteString(fmt.Sprintf("You are an expert financial analyst. Analyze the %s earnings call for %s and provide an investment perspective.\n\n", primary.Quarter, symbol))
	} else {
		sb.WriteString(fmt.Sprintf("You are an expert financial analyst. Compare these %d earnings calls for %s and describe the company's trajectory.\n\n", len(a.Quarters), symbol))
	}

	sb.WriteString("### Sentiment by quarter (-1 to 1) ###\n")
	for _, q := range a.Quarters {
		sb.WriteString(fmt.Sprintf("- %s: %.2f over %d statements\n", q.Quarter, q.AverageSentiment, q.Entries))
	}

	sb.WriteString(fmt.Sprintf("\n### Key executive statements (%s) ###\n", primary.Quarter))
	n := 0
	for _, e := range primary.Transcript {
		if n == maxExecutiveStatements {
			break
		}
		if !isExecutive(e.Title) {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s (%s): %s\n", e.Speaker, e.Title, truncate(e.Content, maxStatementLength)))
		n++
	}
	if n == 0 {
		sb.WriteString("- none identified\n")
	}

	if a.Financials != nil {
		if summary := financialSummary(a.Financials); summary != "" {
			sb.WriteString("\n### Financial context ###\n")
			sb.WriteString(summary)
		}
	}

	sb.WriteString(`
### Instructions ###
1. Summarize financial performance, guidance, strategic initiatives and acknowledged risks.
2. Assess management's tone and whether statements align with the financial data provided.
3. Where several quarters are given, describe how tone and priorities changed over time.
4. Close with a 2-3 sentence assessment for investors.
Be objective and specific.`)

	return sb.String()
}

// financialSummary renders the headline metrics of the fundamentals, one
// per line, skipping anything upstream did not supply.
func financialSummary(f *models.FinancialData) string {
	var sb strings.Builder
	line := func(label, value string) {
		if value != "" && value != "None" {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", label, value))
		}
	}

	overview := decodeObject(f.CompanyOverview)
	line("Company", overview["Name"])
	line("Sector", overview["Sector"])
	line("Industry", overview["Industry"])
	line("Market cap", overview["MarketCapitalization"])
	line("P/E ratio", overview["PERatio"])
	line("EPS", overview["EPS"])
	line("Profit margin", overview["ProfitMargin"])
	line("Quarterly earnings growth YoY", overview["QuarterlyEarningsGrowthYOY"])
	line("Quarterly revenue growth YoY", overview["QuarterlyRevenueGrowthYOY"])

	income := latestAnnual(f.IncomeStatement)
	line("Total revenue", income["totalRevenue"])
	line("Gross profit", income["grossProfit"])
	line("Net income", income["netIncome"])
	line("EBITDA", income["ebitda"])

	balance := latestAnnual(f.BalanceSheet)
	line("Total assets", balance["totalAssets"])
	line("Total liabilities", balance["totalLiabilities"])
	line("Shareholder equity", balance["totalShareholderEquity"])
	line("Current ratio", ratio(balance["totalCurrentAssets"], balance["totalCurrentLiabilities"]))

	cash := latestAnnual(f.CashFlow)
	line("Operating cash flow", cash["operatingCashflow"])
	line("Capital expenditures", cash["capitalExpenditures"])

	if buys, sells := insiderActivity(f.InsiderTransactions); buys+sells > 0 {
		line("Insider transactions", fmt.Sprintf("%d acquisitions, %d disposals", buys, sells))
	}

	return sb.String()
}

// decodeObject flattens a JSON object's scalar string fields
func decodeObject(raw json.RawMessage) map[string]string {
	out := map[string]string{}
	var m map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return out
	}
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// latestAnnual returns the first annualReports entry of a statement
func latestAnnual(raw json.RawMessage) map[string]string {
	var doc struct {
		AnnualReports []map[string]string `json:"annualReports"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &doc) != nil || len(doc.AnnualReports) == 0 {
		return map[string]string{}
	}
	return doc.AnnualReports[0]
}

func ratio(num, den string) string {
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return ""
	}
	return strconv.FormatFloat(n/d, 'f', 2, 64)
}

// insiderActivity counts acquisitions (A) and disposals (D)
func insiderActivity(raw json.RawMessage) (buys, sells int) {
	var doc struct {
		Data []struct {
			AcquisitionOrDisposal string `json:"acquisition_or_disposal"`
		} `json:"data"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &doc) != nil {
		return 0, 0
	}
	for _, t := range doc.Data {
		switch strings.ToUpper(t.AcquisitionOrDisposal) {
		case "A":
			buys++
		case "D":
			sells++
		}
	}
	return buys, sells
}
