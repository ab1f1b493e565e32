package parsers

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/username/cryptogains/src/models"
)

// Parser turns an exchange export into the canonical transaction batch the
// calculator consumes. A structurally invalid file (bad dates, non-numeric
// amounts) rejects the whole batch; recoverable anomalies are the
// calculator's job, not the parser's.
type Parser interface {
	Parse(file io.Reader) ([]models.Transaction, error)
}

// BatchSummary carries quick statistics over a parsed batch, used for
// logging and upload responses.
type BatchSummary struct {
	TotalTransactions int             `json:"total_transactions"`
	TotalBuys         int             `json:"total_buys"`
	TotalSells        int             `json:"total_sells"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	TotalReceived     decimal.Decimal `json:"total_received"`
}

// Summarize computes buy/sell counts and gross USD flows for a batch.
func Summarize(txs []models.Transaction) BatchSummary {
	s := BatchSummary{
		TotalTransactions: len(txs),
		TotalSpent:        decimal.Zero,
		TotalReceived:     decimal.Zero,
	}
	for _, tx := range txs {
		switch tx.Kind {
		case models.KindBuy:
			s.TotalBuys++
			s.TotalSpent = s.TotalSpent.Add(tx.PriceUSD)
		case models.KindSell:
			s.TotalSells++
			s.TotalReceived = s.TotalReceived.Add(tx.PriceUSD)
		}
	}
	return s
}
