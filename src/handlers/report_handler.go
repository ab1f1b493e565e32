package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/cryptogains/src/logger"
	"github.com/username/cryptogains/src/services"
	"github.com/username/cryptogains/src/utils"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: service,
	}
}

func reportIDFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *ReportHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reportService.ListReports()
	if err != nil {
		logger.L.Error("Error listing reports", "error", err)
		utils.SendJSONError(w, "Error retrieving reports", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, reports, http.StatusOK)
}

func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := reportIDFromPath(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid report ID", http.StatusBadRequest)
		return
	}

	report, err := h.reportService.GetReport(id)
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			utils.SendJSONError(w, fmt.Sprintf("Report %d not found", id), http.StatusNotFound)
			return
		}
		logger.L.Error("Error retrieving report", "reportID", id, "error", err)
		utils.SendJSONError(w, "Error retrieving report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	currentETag, etagErr := utils.GenerateETag(report)
	if etagErr != nil {
		logger.L.Error("Failed to generate ETag for report", "reportID", id, "error", etagErr)
	}
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETags := strings.Split(r.Header.Get("If-None-Match"), ",")
		for _, cETag := range clientETags {
			if strings.TrimSpace(cETag) == quotedETag {
				logger.L.Debug("ETag match for report", "reportID", id, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.L.Error("Error encoding report response", "reportID", id, "error", err)
	}
}

func (h *ReportHandler) HandleGetDetailedReport(w http.ResponseWriter, r *http.Request) {
	id, err := reportIDFromPath(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid report ID", http.StatusBadRequest)
		return
	}

	text, err := h.reportService.GetDetailedReport(id)
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			utils.SendJSONError(w, fmt.Sprintf("Report %d not found", id), http.StatusNotFound)
			return
		}
		logger.L.Error("Error building detailed report", "reportID", id, "error", err)
		utils.SendJSONError(w, "Error retrieving detailed report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		logger.L.Error("Error writing detailed report response", "reportID", id, "error", err)
	}
}

func (h *ReportHandler) HandleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := reportIDFromPath(r)
	if err != nil {
		utils.SendJSONError(w, "Invalid report ID", http.StatusBadRequest)
		return
	}

	if err := h.reportService.DeleteReport(id); err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			utils.SendJSONError(w, fmt.Sprintf("Report %d not found", id), http.StatusNotFound)
			return
		}
		logger.L.Error("Error deleting report", "reportID", id, "error", err)
		utils.SendJSONError(w, "Error deleting report", http.StatusInternalServerError)
		return
	}

	utils.SendJSON(w, map[string]string{"message": fmt.Sprintf("Report %d deleted", id)}, http.StatusOK)
}
