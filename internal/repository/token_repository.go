package repository

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DeviceToken is a phone registered for coach alerts.
type DeviceToken struct {
	Token        string    `json:"token"`
	Platform     string    `json:"platform"` // "android", "ios" or "web"
	RegisteredAt time.Time `json:"registeredAt"`
}

// TokenRepository keeps FCM device tokens in memory. Devices re-register on
// app start, so tokens are not persisted.
type TokenRepository struct {
	tokens map[string]*DeviceToken
	mu     sync.RWMutex
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		tokens: make(map[string]*DeviceToken),
	}
}

// RegisterToken adds or refreshes a device token. Unknown platforms are
// stored as "android".
func (r *TokenRepository) RegisterToken(token, platform string, at time.Time) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	switch platform {
	case "android", "ios", "web":
	default:
		platform = "android"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token] = &DeviceToken{
		Token:        token,
		Platform:     platform,
		RegisteredAt: at,
	}
}

// UnregisterToken reports whether the token was registered.
func (r *TokenRepository) UnregisterToken(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tokens[token]
	delete(r.tokens, token)
	return ok
}

// GetAllTokens returns all registered tokens, sorted.
func (r *TokenRepository) GetAllTokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, 0, len(r.tokens))
	for token := range r.tokens {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

func (r *TokenRepository) GetTokenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tokens)
}
