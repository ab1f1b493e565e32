package calculator

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptogains/src/models"
)

// ConsumedTolerance is the threshold below which a lot or a sale remainder
// counts as fully consumed. It absorbs accumulation error across many
// partial fills and is the single epsilon used everywhere in the engine.
var ConsumedTolerance = decimal.New(1, -8) // 1e-8

// engine holds the working state of a single calculation run. It is created
// fresh inside Calculate and never outlives it, so independent runs cannot
// leak lots or anomalies into each other.
type engine struct {
	lots         []*models.TaxLot
	capitalGains []models.CapitalGain
	errors       []string
}

// Calculate computes realized capital gains from a batch of transactions
// using FIFO lot matching. The batch may arrive in any order; it is sorted
// by date before processing. Anomalies (unknown kinds, oversells, symbol
// mismatches) never abort the run - they are collected in Summary.Errors.
func Calculate(txs []models.Transaction) models.TaxSummary {
	e := &engine{}

	sorted := make([]models.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	for _, tx := range sorted {
		e.process(tx)
	}
	return e.summary()
}

func (e *engine) process(tx models.Transaction) {
	switch tx.Kind {
	case models.KindBuy:
		e.processBuy(tx)
	case models.KindSell:
		e.processSell(tx)
	default:
		kind := tx.RawType
		if kind == "" {
			kind = tx.Kind.String()
		}
		e.errors = append(e.errors, fmt.Sprintf("Unknown transaction type: %s", kind))
	}
}

func (e *engine) processBuy(tx models.Transaction) {
	e.lots = append(e.lots, &models.TaxLot{
		PurchaseDate:    tx.Date,
		Symbol:          tx.Symbol,
		RemainingAmount: tx.Amount,
		OriginalAmount:  tx.Amount,
		PricePerUnit:    tx.PricePerUnit,
		CostBasis:       tx.Amount.Mul(tx.PricePerUnit),
	})
}

// processSell consumes lots from the front of the queue until the sold
// amount is satisfied or the queue runs dry. Each lot touched yields one
// CapitalGain record. The queue is shared across symbols: a front lot whose
// symbol disagrees with the sale is evicted without crediting a gain.
func (e *engine) processSell(tx models.Transaction) {
	remaining := tx.Amount

	for remaining.GreaterThan(ConsumedTolerance) {
		if len(e.lots) == 0 {
			e.errors = append(e.errors, fmt.Sprintf(
				"Trying to sell %s %s but no lots available on %s",
				remaining.String(), tx.Symbol, tx.Date.Format("2006-01-02")))
			break
		}

		oldest := e.lots[0]

		if oldest.Symbol != tx.Symbol {
			e.errors = append(e.errors, fmt.Sprintf(
				"Symbol mismatch - trying to sell %s but oldest lot is %s",
				tx.Symbol, oldest.Symbol))
			e.lots = e.lots[1:]
			continue
		}

		matched := decimal.Min(remaining, oldest.RemainingAmount)
		costBasis := matched.Mul(oldest.PricePerUnit)
		proceeds := matched.Mul(tx.PricePerUnit)
		days := holdingDays(oldest.PurchaseDate, tx.Date)

		term := models.TermShort
		if days > 365 {
			term = models.TermLong
		}

		e.capitalGains = append(e.capitalGains, models.CapitalGain{
			SaleDate:     tx.Date,
			PurchaseDate: oldest.PurchaseDate,
			Symbol:       tx.Symbol,
			Amount:       matched,
			CostBasis:    costBasis,
			Proceeds:     proceeds,
			GainLoss:     proceeds.Sub(costBasis),
			Term:         term,
			HoldingDays:  days,
		})

		oldest.RemainingAmount = oldest.RemainingAmount.Sub(matched)
		remaining = remaining.Sub(matched)

		if oldest.RemainingAmount.LessThan(ConsumedTolerance) {
			e.lots = e.lots[1:]
		}
	}
}

// holdingDays returns the number of whole days between purchase and sale.
func holdingDays(purchase, sale time.Time) int {
	return int(sale.Sub(purchase) / (24 * time.Hour))
}

func (e *engine) summary() models.TaxSummary {
	s := models.TaxSummary{
		TotalGainLoss:     decimal.Zero,
		ShortTermGainLoss: decimal.Zero,
		LongTermGainLoss:  decimal.Zero,
		CapitalGains:      []models.CapitalGain{},
		RemainingLots:     []models.TaxLot{},
		Errors:            []string{},
	}

	for _, g := range e.capitalGains {
		switch g.Term {
		case models.TermLong:
			s.LongTermGainLoss = s.LongTermGainLoss.Add(g.GainLoss)
			s.NumLongTerm++
		default:
			s.ShortTermGainLoss = s.ShortTermGainLoss.Add(g.GainLoss)
			s.NumShortTerm++
		}
	}
	s.TotalGainLoss = s.ShortTermGainLoss.Add(s.LongTermGainLoss)
	s.NumTransactions = len(e.capitalGains)
	s.CapitalGains = append(s.CapitalGains, e.capitalGains...)

	for _, lot := range e.lots {
		s.RemainingLots = append(s.RemainingLots, *lot)
	}
	s.Errors = append(s.Errors, e.errors...)
	return s
}
