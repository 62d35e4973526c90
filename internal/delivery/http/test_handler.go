package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"journal-backend/internal/usecase"
)

// TestHandler sends a test coach alert to every registered device.
type TestHandler struct {
	alerts *usecase.CoachAlerter
	logger *zap.Logger
}

func NewTestHandler(alerts *usecase.CoachAlerter, logger *zap.Logger) *TestHandler {
	return &TestHandler{alerts: alerts, logger: loggerOrNop(logger)}
}

func (h *TestHandler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	count, err := h.alerts.SendTest(r.Context())
	switch {
	case errors.Is(err, usecase.ErrPushDisabled):
		writeJSON(w, http.StatusServiceUnavailable, TokenResponse{
			Success: false,
			Message: "FCM not configured",
		})
	case err != nil:
		h.logger.Warn("test alert failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, TokenResponse{
			Success: false,
			Message: "Failed to send notification: " + err.Error(),
		})
	case count == 0:
		writeJSON(w, http.StatusOK, TokenResponse{
			Success: false,
			Message: "No registered devices",
		})
	default:
		writeJSON(w, http.StatusOK, TokenResponse{
			Success: true,
			Message: "Test notification sent successfully",
			Count:   count,
		})
	}
}
