package calculator

import (
	"fmt"
	"strings"

	"github.com/username/cryptogains/src/models"
)

const reportRule = "================================================================================"

// DetailedReport renders a human-readable, line-per-gain report of a summary.
// It is a pure rendering of Summary.CapitalGains; nothing here feeds back
// into the calculation.
func DetailedReport(s models.TaxSummary) string {
	if len(s.CapitalGains) == 0 {
		return "No capital gains to report."
	}

	var b strings.Builder
	b.WriteString(reportRule + "\n")
	b.WriteString("DETAILED CAPITAL GAINS REPORT\n")
	b.WriteString(reportRule + "\n\n")

	for i, g := range s.CapitalGains {
		fmt.Fprintf(&b, "Transaction %d:\n", i+1)
		fmt.Fprintf(&b, "  Sale Date: %s\n", g.SaleDate.Format("2006-01-02"))
		fmt.Fprintf(&b, "  Purchase Date: %s\n", g.PurchaseDate.Format("2006-01-02"))
		fmt.Fprintf(&b, "  Holding Period: %d days (%s-TERM)\n", g.HoldingDays, strings.ToUpper(string(g.Term)))
		fmt.Fprintf(&b, "  Amount: %s %s\n", g.Amount.String(), g.Symbol)
		fmt.Fprintf(&b, "  Cost Basis: $%s\n", g.CostBasis.StringFixed(2))
		fmt.Fprintf(&b, "  Proceeds: $%s\n", g.Proceeds.StringFixed(2))
		fmt.Fprintf(&b, "  Gain/Loss: $%s\n\n", g.GainLoss.StringFixed(2))
	}

	return b.String()
}
