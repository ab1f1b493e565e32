package models

import "time"

// TaxReport is a persisted calculation run: one uploaded file or exchange
// sync, its summary, and the transactions it was computed from.
type TaxReport struct {
	ID         int64      `json:"report_id"`
	Filename   string     `json:"filename"`
	UploadDate time.Time  `json:"upload_date"`
	Summary    TaxSummary `json:"summary"`
}

// TaxReportListItem is the shortened row returned by the report listing.
type TaxReportListItem struct {
	ID              int64           `json:"id"`
	Filename        string          `json:"filename"`
	UploadDate      time.Time       `json:"upload_date"`
	TotalGainLoss   float64         `json:"total_gain_loss"`
	NumTransactions int             `json:"num_transactions"`
}

// APIKey holds stored exchange credentials. Secret is encrypted at rest and
// never serialized back to clients.
type APIKey struct {
	ID        int64     `json:"id"`
	Exchange  string    `json:"exchange"`
	Key       string    `json:"-"`
	Secret    string    `json:"-"`
	IsSandbox bool      `json:"is_sandbox"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}
