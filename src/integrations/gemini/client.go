package gemini

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptogains/src/models"
)

const maxTradeLimit = 500

// Trade is one fill as returned by the Gemini private trades endpoint.
type Trade struct {
	Timestamp   int64  `json:"timestamp"`
	TimestampMS int64  `json:"timestampms"`
	TID         int64  `json:"tid"`
	Price       string `json:"price"`
	Amount      string `json:"amount"`
	Exchange    string `json:"exchange"`
	Type        string `json:"type"`
	FeeCurrency string `json:"fee_currency"`
	FeeAmount   string `json:"fee_amount"`
	Symbol      string `json:"symbol"`
}

// Balance is one currency balance from the balances endpoint.
type Balance struct {
	Currency  string `json:"currency"`
	Amount    string `json:"amount"`
	Available string `json:"available"`
}

// Client calls Gemini's private REST API. Requests carry the payload as a
// base64-encoded JSON blob signed with HMAC-SHA384, per the Gemini scheme.
type Client struct {
	apiKey     string
	apiSecret  []byte
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, apiSecret, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		apiSecret:  []byte(apiSecret),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) sign(payload []byte) (b64Payload, signature string) {
	b64Payload = base64.StdEncoding.EncodeToString(payload)
	mac := hmac.New(sha512.New384, c.apiSecret)
	mac.Write([]byte(b64Payload))
	return b64Payload, hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) post(ctx context.Context, endpoint string, payload map[string]any, out any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["request"] = endpoint
	payload["nonce"] = time.Now().UnixMilli()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", endpoint, err)
	}
	b64Payload, signature := c.sign(encoded)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Content-Length", "0")
	req.Header.Set("X-GEMINI-APIKEY", c.apiKey)
	req.Header.Set("X-GEMINI-PAYLOAD", b64Payload)
	req.Header.Set("X-GEMINI-SIGNATURE", signature)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}
	return nil
}

// PastTrades fetches past fills for a trading pair, capped at 500 per the
// API limit.
func (c *Client) PastTrades(ctx context.Context, symbol string, limit int) ([]Trade, error) {
	if limit <= 0 || limit > maxTradeLimit {
		limit = maxTradeLimit
	}
	payload := map[string]any{
		"symbol":       strings.ToLower(symbol),
		"limit_trades": limit,
	}
	var trades []Trade
	if err := c.post(ctx, "/v1/mytrades", payload, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// Balances fetches account balances for all currencies.
func (c *Client) Balances(ctx context.Context) ([]Balance, error) {
	var balances []Balance
	if err := c.post(ctx, "/v1/balances", nil, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// TestConnection reports whether the credentials can reach a private
// endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Balances(ctx)
	return err
}

// ConvertTrades maps API fills to canonical transactions, oldest first.
// The trading-pair symbol (e.g. "btcusd") is collapsed to the crypto leg
// passed by the caller.
func ConvertTrades(trades []Trade, symbol string) ([]models.Transaction, error) {
	txs := make([]models.Transaction, 0, len(trades))
	for _, trade := range trades {
		price, err := decimal.NewFromString(trade.Price)
		if err != nil {
			return nil, fmt.Errorf("trade %d: invalid price %q: %w", trade.TID, trade.Price, err)
		}
		amount, err := decimal.NewFromString(trade.Amount)
		if err != nil {
			return nil, fmt.Errorf("trade %d: invalid amount %q: %w", trade.TID, trade.Amount, err)
		}
		fee := decimal.Zero
		if trade.FeeAmount != "" {
			fee, err = decimal.NewFromString(trade.FeeAmount)
			if err != nil {
				return nil, fmt.Errorf("trade %d: invalid fee %q: %w", trade.TID, trade.FeeAmount, err)
			}
		}

		rawType := strings.ToLower(trade.Type)
		txs = append(txs, models.Transaction{
			Date:         time.UnixMilli(trade.TimestampMS).UTC(),
			Kind:         models.ParseTxKind(rawType),
			RawType:      rawType,
			Symbol:       symbol,
			Amount:       amount.Abs(),
			PricePerUnit: price,
			PriceUSD:     price.Mul(amount.Abs()),
			FeeUSD:       fee,
		})
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})
	return txs, nil
}
