package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"journal-backend/internal/domain"
	"journal-backend/internal/usecase"
)

// ReportHandler serves the metrics engine output and the overhead config.
type ReportHandler struct {
	svc    *usecase.JournalService
	logger *zap.Logger
}

func NewReportHandler(svc *usecase.JournalService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, logger: loggerOrNop(logger)}
}

type reportResponse struct {
	Report *domain.Report `json:"report"`
}

// GetReport handles GET /api/report. An empty selection yields {"report": null}.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report, err := h.svc.Report(r.Context(), filtersFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{Report: report})
}

// ExportReport handles GET /api/report/export as a plain text download.
func (h *ReportHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.ExportReport(r.Context(), filtersFromQuery(r), &buf); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trading_report.txt"`)
	w.Write(buf.Bytes())
}

// Calendar handles GET /api/calendar?days={n}
func (h *ReportHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := usecase.DefaultCalendarDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 366 {
			http.Error(w, "Invalid days parameter", http.StatusBadRequest)
			return
		}
		days = n
	}

	cal, err := h.svc.Calendar(r.Context(), filtersFromQuery(r), days)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

// Filters handles GET /api/filters
func (h *ReportHandler) Filters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	opts, err := h.svc.FilterOptions(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// HandleOverhead handles GET and POST on /api/overhead
func (h *ReportHandler) HandleOverhead(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.svc.Overhead(r.Context()))

	case http.MethodPost:
		cfg := h.svc.Overhead(r.Context())
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		saved, err := h.svc.UpdateOverhead(r.Context(), cfg)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Health handles GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
