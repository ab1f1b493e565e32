package gemini

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptogains/src/models"
)

const sampleCSV = `Date,Time,Type,Symbol,BTC Amount,USD Amount,Fee (USD)
2024-01-01,09:30:00,Buy,BTC,1.0,50000.00,10.00
2024-02-01,14:45:10,Sell,BTC,-0.5,-30000.00,7.50
2024-03-01,08:00:00,Buy,BTC,0.25,15000.00,3.75
`

func TestParse(t *testing.T) {
	txs, err := NewParser().Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("parsed %d transactions, want 3", len(txs))
	}

	first := txs[0]
	wantDate := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	if !first.Date.Equal(wantDate) {
		t.Errorf("Date = %s, want %s", first.Date, wantDate)
	}
	if first.Kind != models.KindBuy {
		t.Errorf("Kind = %s, want buy", first.Kind)
	}
	if first.Symbol != "BTC" {
		t.Errorf("Symbol = %q, want BTC", first.Symbol)
	}
	if !first.PricePerUnit.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("PricePerUnit = %s, want 50000", first.PricePerUnit)
	}

	// Sells are signed negative in the export; the parser normalizes.
	sell := txs[1]
	if sell.Kind != models.KindSell {
		t.Errorf("Kind = %s, want sell", sell.Kind)
	}
	if !sell.Amount.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("Amount = %s, want 0.5", sell.Amount)
	}
	if !sell.PricePerUnit.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("PricePerUnit = %s, want 60000", sell.PricePerUnit)
	}
	if !sell.FeeUSD.Equal(decimal.NewFromFloat(7.5)) {
		t.Errorf("FeeUSD = %s, want 7.5", sell.FeeUSD)
	}
}

func TestParse_RejectsBadRows(t *testing.T) {
	cases := []struct {
		name string
		csv  string
	}{
		{
			"invalid date",
			"Date,Time,Type,Symbol,BTC Amount,USD Amount,Fee (USD)\nnot-a-date,09:30:00,Buy,BTC,1.0,50000.00,10.00\n",
		},
		{
			"non-numeric amount",
			"Date,Time,Type,Symbol,BTC Amount,USD Amount,Fee (USD)\n2024-01-01,09:30:00,Buy,BTC,one,50000.00,10.00\n",
		},
		{
			"zero amount",
			"Date,Time,Type,Symbol,BTC Amount,USD Amount,Fee (USD)\n2024-01-01,09:30:00,Buy,BTC,0,50000.00,10.00\n",
		},
		{
			"missing column",
			"Date,Time,Type,Symbol,BTC Amount\n2024-01-01,09:30:00,Buy,BTC,1.0\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewParser().Parse(strings.NewReader(tc.csv)); err == nil {
				t.Fatal("expected parse error, got nil")
			}
		})
	}
}

func TestParse_UnrecognizedTypeKeptAsUnknown(t *testing.T) {
	csv := "Date,Time,Type,Symbol,BTC Amount,USD Amount,Fee (USD)\n2024-01-01,09:30:00,Airdrop,BTC,1.0,50000.00,0.00\n"
	txs, err := NewParser().Parse(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if txs[0].Kind != models.KindUnknown {
		t.Errorf("Kind = %s, want unknown", txs[0].Kind)
	}
	if txs[0].RawType != "airdrop" {
		t.Errorf("RawType = %q, want airdrop", txs[0].RawType)
	}
}
