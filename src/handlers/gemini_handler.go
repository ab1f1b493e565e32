package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/cryptogains/src/logger"
	"github.com/username/cryptogains/src/services"
	"github.com/username/cryptogains/src/utils"
)

const (
	defaultSyncSymbol = "btcusd"
	maxSyncLimit      = 500
)

type GeminiHandler struct {
	reportService services.ReportService
}

func NewGeminiHandler(service services.ReportService) *GeminiHandler {
	return &GeminiHandler{
		reportService: service,
	}
}

type syncRequest struct {
	services.GeminiCredentials
	Symbol string `json:"symbol"`
	Limit  int    `json:"limit"`
}

func decodeCredentialsRequest(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func validateCredentials(creds services.GeminiCredentials) error {
	if creds.APIKey == "" || creds.APISecret == "" {
		return errors.New("api_key and api_secret are required")
	}
	return nil
}

func (h *GeminiHandler) HandleTestKey(w http.ResponseWriter, r *http.Request) {
	var creds services.GeminiCredentials
	if err := decodeCredentialsRequest(r, &creds); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateCredentials(creds); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.reportService.TestAPIKey(r.Context(), creds); err != nil {
		logger.L.Warn("Gemini API key test failed", "sandbox", creds.IsSandbox, "error", err)
		utils.SendJSONError(w, "API key test failed: invalid credentials or Gemini unreachable", http.StatusUnauthorized)
		return
	}

	utils.SendJSON(w, map[string]string{"message": "API key is valid"}, http.StatusOK)
}

func (h *GeminiHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeCredentialsRequest(r, &req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validateCredentials(req.GeminiCredentials); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Symbol == "" {
		req.Symbol = defaultSyncSymbol
	}
	if req.Limit <= 0 || req.Limit > maxSyncLimit {
		req.Limit = maxSyncLimit
	}

	result, err := h.reportService.SyncFromGemini(r.Context(), req.GeminiCredentials, req.Symbol, req.Limit)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrExchangeAuth):
			logger.L.Warn("Gemini sync auth failure", "symbol", req.Symbol, "error", err)
			utils.SendJSONError(w, "Gemini API request failed: invalid credentials or Gemini unreachable", http.StatusUnauthorized)
		case errors.Is(err, services.ErrEmptyBatch):
			utils.SendJSONError(w, fmt.Sprintf("No trades found on Gemini for symbol %s", req.Symbol), http.StatusNotFound)
		case errors.Is(err, services.ErrParsingFailed):
			logger.L.Error("Gemini sync returned malformed trades", "symbol", req.Symbol, "error", err)
			utils.SendJSONError(w, "Gemini returned malformed trade data", http.StatusBadGateway)
		default:
			logger.L.Error("Internal error during Gemini sync", "symbol", req.Symbol, "error", err)
			utils.SendJSONError(w, "An internal error occurred during the sync. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	utils.SendJSON(w, result, http.StatusOK)
}
