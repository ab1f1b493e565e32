package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TxKind classifies a transaction. Unrecognized type strings map to
// KindUnknown instead of falling through a string comparison, so bad input is
// a distinct state the calculator can report on.
type TxKind int

const (
	KindUnknown TxKind = iota
	KindBuy
	KindSell
)

// ParseTxKind maps a free-form type string (case-insensitive) to a TxKind.
func ParseTxKind(s string) TxKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return KindBuy
	case "sell":
		return KindSell
	default:
		return KindUnknown
	}
}

func (k TxKind) String() string {
	switch k {
	case KindBuy:
		return "buy"
	case KindSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Transaction is a single buy/sell event as produced by a parser or the
// exchange client. Amount is always non-negative; signs are normalized at
// the ingestion boundary.
type Transaction struct {
	Date         time.Time       `json:"date"`
	Kind         TxKind          `json:"-"`
	RawType      string          `json:"type"`
	Symbol       string          `json:"symbol"`
	Amount       decimal.Decimal `json:"amount"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	FeeUSD       decimal.Decimal `json:"fee_usd"`
}

// Term is the holding-period classification of a realized gain.
type Term string

const (
	TermShort Term = "short"
	TermLong  Term = "long"
)

// TaxLot is a single purchase tracked for cost basis. CostBasis is fixed at
// creation from the original amount and is never recomputed as the lot is
// consumed; partial-cost views must prorate it themselves.
type TaxLot struct {
	PurchaseDate    time.Time       `json:"date"`
	Symbol          string          `json:"symbol"`
	RemainingAmount decimal.Decimal `json:"amount"`
	OriginalAmount  decimal.Decimal `json:"-"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
}

// CapitalGain is one realized gain/loss: the portion of a sale matched
// against a single purchase lot. A sale spanning several lots produces
// several CapitalGain records.
type CapitalGain struct {
	SaleDate     time.Time       `json:"sale_date"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Symbol       string          `json:"symbol"`
	Amount       decimal.Decimal `json:"amount"`
	CostBasis    decimal.Decimal `json:"cost_basis"`
	Proceeds     decimal.Decimal `json:"proceeds"`
	GainLoss     decimal.Decimal `json:"gain_loss"`
	Term         Term            `json:"term"`
	HoldingDays  int             `json:"holding_days"`
}

// TaxSummary is the full result of one calculation run. NumTransactions
// counts CapitalGain records, not input sells.
type TaxSummary struct {
	TotalGainLoss     decimal.Decimal `json:"total_gain_loss"`
	ShortTermGainLoss decimal.Decimal `json:"short_term_gain_loss"`
	LongTermGainLoss  decimal.Decimal `json:"long_term_gain_loss"`
	NumTransactions   int             `json:"num_transactions"`
	NumShortTerm      int             `json:"num_short_term"`
	NumLongTerm       int             `json:"num_long_term"`
	CapitalGains      []CapitalGain   `json:"capital_gains"`
	RemainingLots     []TaxLot        `json:"remaining_lots"`
	Errors            []string        `json:"errors"`
}
