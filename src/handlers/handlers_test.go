package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/cryptogains/src/config"
	"github.com/username/cryptogains/src/logger"
	"github.com/username/cryptogains/src/models"
	"github.com/username/cryptogains/src/services"
)

type stubReportService struct {
	uploadResult *services.UploadResult
	uploadErr    error
	report       *models.TaxReport
	reportErr    error
	detailedText string
	listItems    []models.TaxReportListItem
	deleteErr    error
	testKeyErr   error
	syncResult   *services.UploadResult
	syncErr      error

	lastSource string
	lastSymbol string
	lastLimit  int
}

func (s *stubReportService) ProcessUpload(fileReader io.Reader, filename, source string) (*services.UploadResult, error) {
	s.lastSource = source
	return s.uploadResult, s.uploadErr
}

func (s *stubReportService) GetReport(id int64) (*models.TaxReport, error) {
	return s.report, s.reportErr
}

func (s *stubReportService) GetDetailedReport(id int64) (string, error) {
	if s.reportErr != nil {
		return "", s.reportErr
	}
	return s.detailedText, nil
}

func (s *stubReportService) ListReports() ([]models.TaxReportListItem, error) {
	return s.listItems, nil
}

func (s *stubReportService) DeleteReport(id int64) error {
	return s.deleteErr
}

func (s *stubReportService) TestAPIKey(ctx context.Context, creds services.GeminiCredentials) error {
	return s.testKeyErr
}

func (s *stubReportService) SyncFromGemini(ctx context.Context, creds services.GeminiCredentials, symbol string, limit int) (*services.UploadResult, error) {
	s.lastSymbol = symbol
	s.lastLimit = limit
	return s.syncResult, s.syncErr
}

func init() {
	logger.InitLogger("error")
	config.Cfg = &config.AppConfig{MaxUploadSizeBytes: 10 * 1024 * 1024}
}

func multipartCSVRequest(t *testing.T, fieldName, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="`+filename+`"`)
	header.Set("Content-Type", "text/csv")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

const uploadCSV = `Date,Time,Type,Symbol,BTC Amount,USD Amount,Fee (USD)
2024-01-10,09:30:00,Buy,BTC,1.0,50000.00,25.00
`

func TestHandleUpload(t *testing.T) {
	stub := &stubReportService{
		uploadResult: &services.UploadResult{
			Message:         "Tax calculation completed successfully",
			ReportID:        7,
			Filename:        "trades.csv",
			NumTransactions: 1,
		},
	}
	handler := NewUploadHandler(stub)

	rr := httptest.NewRecorder()
	handler.HandleUpload(rr, multipartCSVRequest(t, "file", "trades.csv", uploadCSV))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
	var result services.UploadResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.ReportID != 7 {
		t.Errorf("ReportID = %d, want 7", result.ReportID)
	}
	if stub.lastSource != "gemini" {
		t.Errorf("source = %q, want default gemini", stub.lastSource)
	}
}

func TestHandleUploadWrongField(t *testing.T) {
	handler := NewUploadHandler(&stubReportService{})

	rr := httptest.NewRecorder()
	handler.HandleUpload(rr, multipartCSVRequest(t, "document", "trades.csv", uploadCSV))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleUploadParsingError(t *testing.T) {
	stub := &stubReportService{uploadErr: services.ErrParsingFailed}
	handler := NewUploadHandler(stub)

	rr := httptest.NewRecorder()
	handler.HandleUpload(rr, multipartCSVRequest(t, "file", "trades.csv", uploadCSV))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "parsing") {
		t.Errorf("body should mention parsing: %s", rr.Body.String())
	}
}

func sampleReport() *models.TaxReport {
	return &models.TaxReport{
		ID:         3,
		Filename:   "trades.csv",
		UploadDate: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Summary: models.TaxSummary{
			TotalGainLoss: decimal.NewFromInt(100),
			CapitalGains:  []models.CapitalGain{},
			RemainingLots: []models.TaxLot{},
			Errors:        []string{},
		},
	}
}

func reportMux(h *ReportHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reports", h.HandleListReports)
	mux.HandleFunc("GET /api/reports/{id}", h.HandleGetReport)
	mux.HandleFunc("GET /api/reports/{id}/detailed", h.HandleGetDetailedReport)
	mux.HandleFunc("DELETE /api/reports/{id}", h.HandleDeleteReport)
	return mux
}

func TestHandleGetReportETag(t *testing.T) {
	stub := &stubReportService{report: sampleReport()}
	mux := reportMux(NewReportHandler(stub))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/3", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reports/3", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotModified {
		t.Errorf("status with matching ETag = %d, want 304", rr.Code)
	}
}

func TestHandleGetReportNotFound(t *testing.T) {
	stub := &stubReportService{reportErr: services.ErrReportNotFound}
	mux := reportMux(NewReportHandler(stub))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/99", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestHandleGetReportBadID(t *testing.T) {
	mux := reportMux(NewReportHandler(&stubReportService{}))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/abc", nil))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleGetDetailedReport(t *testing.T) {
	stub := &stubReportService{detailedText: "Transaction 1:\nGain/Loss: $100.00\n"}
	mux := reportMux(NewReportHandler(stub))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/3/detailed", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if !strings.Contains(rr.Body.String(), "Transaction 1:") {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestHandleDeleteReport(t *testing.T) {
	mux := reportMux(NewReportHandler(&stubReportService{}))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/reports/3", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestHandleTestKey(t *testing.T) {
	handler := NewGeminiHandler(&stubReportService{})

	body := `{"api_key":"k","api_secret":"s","is_sandbox":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/keys/test", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.HandleTestKey(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
}

func TestHandleTestKeyMissingCredentials(t *testing.T) {
	handler := NewGeminiHandler(&stubReportService{})

	req := httptest.NewRequest(http.MethodPost, "/api/keys/test", strings.NewReader(`{"api_key":"k"}`))
	rr := httptest.NewRecorder()
	handler.HandleTestKey(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleTestKeyAuthFailure(t *testing.T) {
	handler := NewGeminiHandler(&stubReportService{testKeyErr: services.ErrExchangeAuth})

	body := `{"api_key":"k","api_secret":"s"}`
	req := httptest.NewRequest(http.MethodPost, "/api/keys/test", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.HandleTestKey(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestHandleSyncDefaults(t *testing.T) {
	stub := &stubReportService{
		syncResult: &services.UploadResult{Message: "Successfully fetched transactions from Gemini API", ReportID: 11},
	}
	handler := NewGeminiHandler(stub)

	body := `{"api_key":"k","api_secret":"s"}`
	req := httptest.NewRequest(http.MethodPost, "/api/gemini/sync", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.HandleSync(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}
	if stub.lastSymbol != "btcusd" {
		t.Errorf("symbol = %q, want default btcusd", stub.lastSymbol)
	}
	if stub.lastLimit != 500 {
		t.Errorf("limit = %d, want default 500", stub.lastLimit)
	}
}

func TestHandleSyncEmptyBatch(t *testing.T) {
	handler := NewGeminiHandler(&stubReportService{syncErr: services.ErrEmptyBatch})

	body := `{"api_key":"k","api_secret":"s","symbol":"ethusd"}`
	req := httptest.NewRequest(http.MethodPost, "/api/gemini/sync", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.HandleSync(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID, _ = RequestIDFromContext(r.Context())
	})

	rr := httptest.NewRecorder()
	RequestIDMiddleware(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if seenID == "" {
		t.Fatal("expected request ID in context")
	}
	if got := rr.Header().Get("X-Request-ID"); got != seenID {
		t.Errorf("header X-Request-ID = %q, want %q", got, seenID)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rr = httptest.NewRecorder()
	RequestIDMiddleware(inner).ServeHTTP(rr, req)

	if seenID != "client-supplied" {
		t.Errorf("request ID = %q, want client-supplied", seenID)
	}
}
