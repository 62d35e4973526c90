package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"journal-backend/internal/domain"
	"journal-backend/internal/usecase"
)

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTradeNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, usecase.ErrNoReport):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateTradeID),
		errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDefaultAccount),
		errors.Is(err, domain.ErrInvalidAccountName),
		errors.Is(err, usecase.ErrUnrecognizedFormat):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrPushDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError replies with the mapped status. Internal errors are logged and
// not echoed to the client.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
		msg = "Internal server error"
	}
	http.Error(w, msg, status)
}

func filtersFromQuery(r *http.Request) domain.Filters {
	q := r.URL.Query()
	return domain.Filters{
		Account: q.Get("account"),
		Ticker:  q.Get("ticker"),
		Setup:   q.Get("setup"),
	}
}

func idFromQuery(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
