package renderer

import (
	"github.com/etnz/costbasis"
)

// Summary is the data of an account report.
type Summary struct {
	Account string
	costbasis.AccountSummary
	// Closed lists the instruments that are not held anymore, or never were
	// because every sell was rejected.
	Closed []costbasis.Position
	// Fallbacks lists the instruments valued at average cost.
	Fallbacks []string
	Warnings  []string
}

// NewSummary gathers an account report. Oversell warnings of positions are
// added to the report warnings.
func NewSummary(account string, positions []costbasis.Position, s costbasis.AccountSummary, fallbacks []string) *Summary {
	r := &Summary{Account: account, AccountSummary: s, Fallbacks: fallbacks}
	for _, pos := range positions {
		if !pos.Quantity.IsPositive() {
			r.Closed = append(r.Closed, pos)
		}
		for _, w := range pos.Warnings {
			r.Warnings = append(r.Warnings, pos.Instrument+": "+w.String())
		}
	}
	return r
}

// RenderSummary renders an account report: holdings with their valuation,
// closed positions, totals and notes.
func RenderSummary(s *Summary) string {
	partials := map[string]string{
		"summary_holdings": "summary_holdings.md",
		"summary_closed":   "summary_closed.md",
		"summary_totals":   "summary_totals.md",
		"summary_notes":    "summary_notes.md",
	}
	return renderTemplate("summary", "summary.md", partials, s)
}

// RenderReport renders a short report for chat messages.
func RenderReport(s *Summary) string {
	return renderTemplate("report", "report.md", nil, s)
}
