package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/cryptogains/src/calculator"
	"github.com/username/cryptogains/src/database"
	geminiapi "github.com/username/cryptogains/src/integrations/gemini"
	"github.com/username/cryptogains/src/logger"
	"github.com/username/cryptogains/src/models"
	"github.com/username/cryptogains/src/parsers"
	"github.com/username/cryptogains/src/security"
)

const (
	// Cache key formats for report reads.
	ckReport     = "res_report_%d"
	ckReportList = "agg_report_list"
)

type reportServiceImpl struct {
	reportCache      *cache.Cache
	keyring          *security.Keyring
	geminiBaseURL    string
	geminiSandboxURL string
}

func NewReportService(reportCache *cache.Cache, keyring *security.Keyring, geminiBaseURL, geminiSandboxURL string) ReportService {
	return &reportServiceImpl{
		reportCache:      reportCache,
		keyring:          keyring,
		geminiBaseURL:    geminiBaseURL,
		geminiSandboxURL: geminiSandboxURL,
	}
}

func (s *reportServiceImpl) ProcessUpload(fileReader io.Reader, filename, source string) (*UploadResult, error) {
	startTime := time.Now()
	logger.L.Info("ProcessUpload START", "filename", filename, "source", source)

	parser, err := parsers.GetParser(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	txs, err := parser.Parse(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if len(txs) == 0 {
		return nil, ErrEmptyBatch
	}

	batch := parsers.Summarize(txs)
	logger.L.Info("Parsed batch",
		"filename", filename,
		"transactions", batch.TotalTransactions,
		"buys", batch.TotalBuys,
		"sells", batch.TotalSells)

	summary := calculator.Calculate(txs)
	if len(summary.Errors) > 0 {
		logger.L.Warn("Calculation produced anomalies", "filename", filename, "count", len(summary.Errors))
	}

	reportID, err := database.InsertReport(filename, summary, txs)
	if err != nil {
		return nil, fmt.Errorf("error persisting report: %w", err)
	}

	s.reportCache.Delete(ckReportList)

	logger.L.Info("ProcessUpload END", "filename", filename, "reportID", reportID, "duration", time.Since(startTime))
	return &UploadResult{
		Message:         "Tax calculation completed successfully",
		ReportID:        reportID,
		Filename:        filename,
		NumTransactions: len(txs),
	}, nil
}

func (s *reportServiceImpl) GetReport(id int64) (*models.TaxReport, error) {
	cacheKey := fmt.Sprintf(ckReport, id)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for report", "reportID", id)
		return cached.(*models.TaxReport), nil
	}

	report, err := database.GetReport(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("error loading report %d: %w", id, err)
	}

	s.reportCache.Set(cacheKey, report, cache.DefaultExpiration)
	return report, nil
}

func (s *reportServiceImpl) GetDetailedReport(id int64) (string, error) {
	report, err := s.GetReport(id)
	if err != nil {
		return "", err
	}
	return calculator.DetailedReport(report.Summary), nil
}

func (s *reportServiceImpl) ListReports() ([]models.TaxReportListItem, error) {
	if cached, found := s.reportCache.Get(ckReportList); found {
		return cached.([]models.TaxReportListItem), nil
	}

	reports, err := database.ListReports()
	if err != nil {
		return nil, fmt.Errorf("error listing reports: %w", err)
	}
	if reports == nil {
		reports = []models.TaxReportListItem{}
	}

	s.reportCache.Set(ckReportList, reports, cache.DefaultExpiration)
	return reports, nil
}

func (s *reportServiceImpl) DeleteReport(id int64) error {
	if err := database.DeleteReport(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReportNotFound
		}
		return fmt.Errorf("error deleting report %d: %w", id, err)
	}

	s.reportCache.Delete(fmt.Sprintf(ckReport, id))
	s.reportCache.Delete(ckReportList)
	logger.L.Info("Deleted report and invalidated caches", "reportID", id)
	return nil
}

func (s *reportServiceImpl) geminiClient(creds GeminiCredentials) *geminiapi.Client {
	baseURL := s.geminiBaseURL
	if creds.IsSandbox {
		baseURL = s.geminiSandboxURL
	}
	return geminiapi.NewClient(creds.APIKey, creds.APISecret, baseURL)
}

func (s *reportServiceImpl) TestAPIKey(ctx context.Context, creds GeminiCredentials) error {
	if err := s.geminiClient(creds).TestConnection(ctx); err != nil {
		logger.L.Warn("API key test failed", "sandbox", creds.IsSandbox, "error", err)
		return fmt.Errorf("%w: %v", ErrExchangeAuth, err)
	}
	if err := database.TouchAPIKey("gemini", creds.APIKey); err != nil {
		logger.L.Warn("Failed to update API key last_used", "error", err)
	}
	return nil
}

func (s *reportServiceImpl) SyncFromGemini(ctx context.Context, creds GeminiCredentials, symbol string, limit int) (*UploadResult, error) {
	startTime := time.Now()
	pair := strings.ToLower(symbol)
	logger.L.Info("SyncFromGemini START", "symbol", pair, "limit", limit, "sandbox", creds.IsSandbox)

	client := s.geminiClient(creds)
	trades, err := client.PastTrades(ctx, pair, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeAuth, err)
	}
	if len(trades) == 0 {
		return nil, ErrEmptyBatch
	}

	// "btcusd" -> "BTC"
	cryptoSymbol := pair
	if len(cryptoSymbol) > 3 {
		cryptoSymbol = cryptoSymbol[:3]
	}
	cryptoSymbol = strings.ToUpper(cryptoSymbol)

	txs, err := geminiapi.ConvertTrades(trades, cryptoSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	summary := calculator.Calculate(txs)
	filename := fmt.Sprintf("gemini_api_sync_%s_%s.json", pair, time.Now().UTC().Format("20060102_150405"))

	reportID, err := database.InsertReport(filename, summary, txs)
	if err != nil {
		return nil, fmt.Errorf("error persisting report: %w", err)
	}
	s.reportCache.Delete(ckReportList)

	// Remember the working credentials, secret encrypted at rest.
	sealed, err := s.keyring.Seal(creds.APISecret)
	if err != nil {
		logger.L.Error("Failed to encrypt API secret, credentials not stored", "error", err)
	} else if err := database.SaveAPIKey("gemini", creds.APIKey, sealed, creds.IsSandbox); err != nil {
		logger.L.Error("Failed to store API key", "error", err)
	}

	logger.L.Info("SyncFromGemini END", "symbol", pair, "reportID", reportID, "trades", len(trades), "duration", time.Since(startTime))
	return &UploadResult{
		Message:         "Successfully fetched transactions from Gemini API",
		ReportID:        reportID,
		Filename:        filename,
		NumTransactions: len(txs),
	}, nil
}
