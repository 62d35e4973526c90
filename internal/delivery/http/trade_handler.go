package http

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"journal-backend/internal/domain"
	"journal-backend/internal/usecase"
)

const maxImportBytes = 10 << 20

// TradeHandler handles trade journal endpoints
type TradeHandler struct {
	svc    *usecase.JournalService
	logger *zap.Logger
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(svc *usecase.JournalService, logger *zap.Logger) *TradeHandler {
	return &TradeHandler{svc: svc, logger: loggerOrNop(logger)}
}

// HandleTrades handles GET (list) and POST (create) on /api/trades
func (h *TradeHandler) HandleTrades(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TradeHandler) list(w http.ResponseWriter, r *http.Request) {
	trades, err := h.svc.ListTrades(r.Context(), filtersFromQuery(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (h *TradeHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.TradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.svc.AddTrade(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

// UpdateTrade handles PUT /api/trades/update?id={id}
func (h *TradeHandler) UpdateTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := idFromQuery(r)
	if !ok {
		http.Error(w, "Missing or invalid id parameter", http.StatusBadRequest)
		return
	}

	var in domain.TradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.svc.EditTrade(r.Context(), id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// DeleteTrade handles DELETE /api/trades/delete?id={id}
func (h *TradeHandler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, ok := idFromQuery(r)
	if !ok {
		http.Error(w, "Missing or invalid id parameter", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteTrade(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ClearTrades handles POST /api/trades/clear
func (h *TradeHandler) ClearTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.svc.ClearTrades(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ImportCSV handles POST /api/trades/import?account={name}. The export is
// either the raw request body or a multipart "file" field.
func (h *TradeHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	account := r.URL.Query().Get("account")
	var src io.Reader = r.Body

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file field", http.StatusBadRequest)
			return
		}
		defer file.Close()
		src = file
		if v := r.FormValue("account"); v != "" {
			account = v
		}
	}

	text, err := usecase.ReadCSVText(src)
	if err != nil {
		http.Error(w, "Could not read upload", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Import(r.Context(), text, account)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExportCSV handles GET /api/trades/export
func (h *TradeHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="journal_export.csv"`)
	if err := h.svc.ExportCSV(r.Context(), w); err != nil {
		h.logger.Error("csv export failed", zap.Error(err))
	}
}
