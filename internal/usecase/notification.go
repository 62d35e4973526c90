package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"journal-backend/internal/domain"
)

// ErrPushDisabled is returned when no push provider is configured.
var ErrPushDisabled = errors.New("push notifications are not configured")

// PushSender delivers notifications to devices. Implemented by fcm.Client.
type PushSender interface {
	IsEnabled() bool
	SendNotification(ctx context.Context, token, title, body string, data map[string]string) error
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// TokenLister returns the registered device tokens.
type TokenLister interface {
	GetAllTokens() []string
}

// CoachAlerter pushes new pain points to registered devices. Each rule is
// sent at most once per cooldown.
type CoachAlerter struct {
	sender   PushSender
	tokens   TokenLister
	cooldown time.Duration
	logger   *zap.Logger
	now      func() time.Time

	notified map[string]time.Time // rule key -> last sent
	sending  map[string]bool      // rule keys with a push in flight
	mu       sync.Mutex
}

func NewCoachAlerter(sender PushSender, tokens TokenLister, cooldown time.Duration, logger *zap.Logger) *CoachAlerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoachAlerter{
		sender:   sender,
		tokens:   tokens,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
		notified: make(map[string]time.Time),
		sending:  make(map[string]bool),
	}
}

func (a *CoachAlerter) enabled() bool {
	return a != nil && a.sender != nil && a.sender.IsEnabled()
}

// Notify sends the report's pain points and returns how many went out.
func (a *CoachAlerter) Notify(ctx context.Context, report *domain.Report) int {
	if !a.enabled() || report == nil || len(report.PainPoints) == 0 {
		return 0
	}

	tokens := a.tokens.GetAllTokens()
	if len(tokens) == 0 {
		return 0
	}

	now := a.now()
	sent := 0
	for _, msg := range report.PainPoints {
		key := alertKey(msg)
		if !a.reserve(key, now) {
			continue
		}

		data := map[string]string{
			"type":   "coach",
			"rule":   key,
			"netPnL": report.Display.NetPnL,
		}
		err := a.deliver(ctx, tokens, "Coach: "+key, msg, data)
		a.release(key, now, err == nil)
		if err != nil {
			a.logger.Warn("coach alert failed", zap.String("rule", key), zap.Error(err))
			continue
		}
		a.logger.Info("coach alert sent", zap.String("rule", key), zap.Int("devices", len(tokens)))
		sent++
	}

	a.mu.Lock()
	for key, ts := range a.notified {
		if now.Sub(ts) > a.cooldown*2 {
			delete(a.notified, key)
		}
	}
	a.mu.Unlock()

	return sent
}

// SendTest pushes a fixed message to every registered device.
func (a *CoachAlerter) SendTest(ctx context.Context) (int, error) {
	if !a.enabled() {
		return 0, ErrPushDisabled
	}
	tokens := a.tokens.GetAllTokens()
	if len(tokens) == 0 {
		return 0, nil
	}

	data := map[string]string{"type": "test"}
	if err := a.deliver(ctx, tokens, "Coach: test", "Trading journal alerts are working.", data); err != nil {
		return 0, fmt.Errorf("sending test alert: %w", err)
	}
	return len(tokens), nil
}

// reserve claims key for sending unless it is in cooldown or another
// Notify is already pushing it.
func (a *CoachAlerter) reserve(key string, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sending[key] {
		return false
	}
	if last, ok := a.notified[key]; ok && now.Sub(last) < a.cooldown {
		return false
	}
	a.sending[key] = true
	return true
}

func (a *CoachAlerter) release(key string, now time.Time, sent bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.sending, key)
	if sent {
		a.notified[key] = now
	}
}

// deliver uses a single-device send when only one token is registered.
func (a *CoachAlerter) deliver(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 1 {
		return a.sender.SendNotification(ctx, tokens[0], title, body, data)
	}
	return a.sender.SendMulticast(ctx, tokens, title, body, data)
}

// alertKey is the first two words of a pain point ("Account Red",
// "Worst session"), so changing amounts do not re-trigger the same rule.
func alertKey(msg string) string {
	fields := strings.Fields(msg)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	return strings.TrimRight(strings.Join(fields, " "), ":.")
}
