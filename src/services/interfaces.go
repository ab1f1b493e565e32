package services

import (
	"context"
	"errors"
	"io"

	"github.com/username/cryptogains/src/models"
)

var (
	ErrParsingFailed  = errors.New("parsing failed")
	ErrEmptyBatch     = errors.New("no transactions found")
	ErrReportNotFound = errors.New("report not found")
	ErrExchangeAuth   = errors.New("exchange authentication failed")
)

// GeminiCredentials are exchange API credentials supplied by a client
// request. IsSandbox routes the call to the sandbox environment.
type GeminiCredentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	IsSandbox bool   `json:"is_sandbox"`
}

// UploadResult is returned after a file upload or exchange sync has been
// calculated and persisted. NumTransactions counts input transactions, not
// realized gains.
type UploadResult struct {
	Message         string `json:"message"`
	ReportID        int64  `json:"report_id"`
	Filename        string `json:"filename"`
	NumTransactions int    `json:"num_transactions"`
}

// ReportService is the orchestration layer: parse or fetch a batch, run the
// calculator, persist the report, and serve it back out.
type ReportService interface {
	ProcessUpload(fileReader io.Reader, filename, source string) (*UploadResult, error)
	GetReport(id int64) (*models.TaxReport, error)
	GetDetailedReport(id int64) (string, error)
	ListReports() ([]models.TaxReportListItem, error)
	DeleteReport(id int64) error
	TestAPIKey(ctx context.Context, creds GeminiCredentials) error
	SyncFromGemini(ctx context.Context, creds GeminiCredentials, symbol string, limit int) (*UploadResult, error)
}
