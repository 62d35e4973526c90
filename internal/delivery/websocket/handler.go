package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"journal-backend/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// ReportSource is the part of the journal service the stream needs.
type ReportSource interface {
	Version() int64
	Report(ctx context.Context, filters domain.Filters) (*domain.Report, error)
}

// Message is one push on the report stream.
type Message struct {
	Version int64          `json:"version"`
	Report  *domain.Report `json:"report"`
}

// Handler streams the filtered report to a client whenever the journal changes.
type Handler struct {
	source   ReportSource
	interval time.Duration
	logger   *zap.Logger
}

func NewHandler(source ReportSource, interval time.Duration, logger *zap.Logger) *Handler {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{source: source, interval: interval, logger: logger}
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	q := r.URL.Query()
	filters := domain.Filters{
		Account: q.Get("account"),
		Ticker:  q.Get("ticker"),
		Setup:   q.Get("setup"),
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only to notice the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := h.source.Version()
	if err := h.push(ctx, conn, last, filters); err != nil {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v := h.source.Version()
			if v == last {
				continue
			}
			last = v
			if err := h.push(ctx, conn, v, filters); err != nil {
				return
			}
		}
	}
}

func (h *Handler) push(ctx context.Context, conn *websocket.Conn, version int64, filters domain.Filters) error {
	report, err := h.source.Report(ctx, filters)
	if err != nil {
		h.logger.Error("report for stream failed", zap.Error(err))
		report = nil
	}
	if err := conn.WriteJSON(Message{Version: version, Report: report}); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
		return err
	}
	return nil
}
