package gemini

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptogains/src/models"
)

// Column headers of a Gemini transaction history export.
const (
	colDate      = "date"
	colTime      = "time"
	colType      = "type"
	colSymbol    = "symbol"
	colAmount    = "btc amount"
	colUSDAmount = "usd amount"
	colFeeUSD    = "fee (usd)"
)

const dateTimeLayout = "2006-01-02 15:04:05"

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a Gemini CSV export into canonical transactions. Amounts are
// taken as absolute values (the export signs sells negative) and the unit
// price is derived from the gross USD amount. Any malformed row rejects the
// whole batch.
func (p *Parser) Parse(file io.Reader) ([]models.Transaction, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colDate, colTime, colType, colSymbol, colAmount, colUSDAmount, colFeeUSD} {
		if _, ok := colIdx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q in CSV header", required)
		}
	}

	var txs []models.Transaction
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		row++

		field := func(name string) string {
			i := colIdx[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		date, err := time.Parse(dateTimeLayout, field(colDate)+" "+field(colTime))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date/time: %w", row, err)
		}

		amount, err := parseAbsDecimal(field(colAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount: %w", row, err)
		}
		if amount.IsZero() {
			return nil, fmt.Errorf("row %d: zero amount", row)
		}

		usdAmount, err := parseAbsDecimal(field(colUSDAmount))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid USD amount: %w", row, err)
		}

		fee, err := decimal.NewFromString(field(colFeeUSD))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid fee: %w", row, err)
		}

		rawType := field(colType)
		txs = append(txs, models.Transaction{
			Date:         date,
			Kind:         models.ParseTxKind(rawType),
			RawType:      strings.ToLower(rawType),
			Symbol:       field(colSymbol),
			Amount:       amount,
			PricePerUnit: usdAmount.Div(amount),
			PriceUSD:     usdAmount,
			FeeUSD:       fee,
		})
	}

	return txs, nil
}

func parseAbsDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, err
	}
	return d.Abs(), nil
}
