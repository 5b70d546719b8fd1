package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/authriver/mcp-oauth-proxy/storage"
)

// Store is an in-memory implementation of all storage interfaces.
type Store struct {
	mu sync.Mutex

	authStates map[string]*storage.AuthState
	authCodes  map[string]*storage.AuthorizationCode
	tokens     map[string]*storage.TokenRecord
	clients    map[string]*storage.Client
	allowlist  map[string]struct{}

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	logger          *slog.Logger
}

// Compile-time interface checks
var (
	_ storage.FlowStore      = (*Store)(nil)
	_ storage.TokenStore     = (*Store)(nil)
	_ storage.ClientStore    = (*Store)(nil)
	_ storage.AllowlistStore = (*Store)(nil)
)

// New creates a new in-memory store with the default cleanup interval (1 minute).
func New() *Store {
	return NewWithInterval(time.Minute)
}

// NewWithInterval creates a new in-memory store with a custom cleanup interval.
// If cleanupInterval is zero or negative, the default of 1 minute is used.
func NewWithInterval(cleanupInterval time.Duration) *Store {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	s := &Store{
		authStates:      make(map[string]*storage.AuthState),
		authCodes:       make(map[string]*storage.AuthorizationCode),
		tokens:          make(map[string]*storage.TokenRecord),
		clients:         make(map[string]*storage.Client),
		allowlist:       make(map[string]struct{}),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
		logger:          slog.Default(),
	}

	go s.cleanupLoop()

	return s
}

// SetLogger sets a custom logger
func (s *Store) SetLogger(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Stop terminates the background cleanup goroutine. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

// SaveAuthState stores an authorization state keyed by its state token.
func (s *Store) SaveAuthState(_ context.Context, state *storage.AuthState) error {
	if state == nil || state.StateToken == "" {
		return fmt.Errorf("invalid authorization state")
	}
	if !state.ExpiresAt.After(time.Now()) {
		return fmt.Errorf("authorization state already expired")
	}

	cp := *state
	s.mu.Lock()
	s.authStates[state.StateToken] = &cp
	s.mu.Unlock()

	return nil
}

// ConsumeAuthState atomically fetches and deletes an authorization state.
// The mutex guarantees at most one concurrent caller succeeds.
func (s *Store) ConsumeAuthState(_ context.Context, stateToken string) (*storage.AuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.authStates[stateToken]
	if !ok {
		return nil, storage.ErrStateNotFound
	}
	delete(s.authStates, stateToken)

	if time.Now().After(state.ExpiresAt) {
		return nil, fmt.Errorf("%w: %w", storage.ErrStateNotFound, storage.ErrExpired)
	}

	cp := *state
	return &cp, nil
}

// SaveAuthorizationCode stores a downstream authorization code.
func (s *Store) SaveAuthorizationCode(_ context.Context, code *storage.AuthorizationCode) error {
	if code == nil || code.Code == "" {
		return fmt.Errorf("invalid authorization code")
	}
	if !code.ExpiresAt.After(time.Now()) {
		return fmt.Errorf("authorization code already expired")
	}

	cp := *code
	s.mu.Lock()
	s.authCodes[code.Code] = &cp
	s.mu.Unlock()

	return nil
}

// ConsumeAuthorizationCode atomically fetches and deletes an authorization code.
func (s *Store) ConsumeAuthorizationCode(_ context.Context, code string) (*storage.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	authCode, ok := s.authCodes[code]
	if !ok {
		return nil, storage.ErrCodeNotFound
	}
	delete(s.authCodes, code)

	if time.Now().After(authCode.ExpiresAt) {
		return nil, fmt.Errorf("%w: %w", storage.ErrCodeNotFound, storage.ErrExpired)
	}

	cp := *authCode
	return &cp, nil
}

// SaveTokenRecord stores an opaque token record under the given key.
func (s *Store) SaveTokenRecord(_ context.Context, key string, rec *storage.TokenRecord) error {
	if key == "" || rec == nil {
		return fmt.Errorf("invalid token record")
	}

	cp := *rec
	s.mu.Lock()
	s.tokens[key] = &cp
	s.mu.Unlock()

	return nil
}

// GetTokenRecord retrieves an opaque token record. Expiry is not checked
// here; introspection evaluates ExpiresAt against its own clock.
func (s *Store) GetTokenRecord(_ context.Context, key string) (*storage.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[key]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}

	cp := *rec
	return &cp, nil
}

// DeleteTokenRecord removes an opaque token record.
func (s *Store) DeleteTokenRecord(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.tokens, key)
	s.mu.Unlock()
	return nil
}

// SaveClient saves a registered client.
func (s *Store) SaveClient(_ context.Context, client *storage.Client) error {
	if client == nil || client.ClientID == "" {
		return fmt.Errorf("invalid client")
	}

	cp := *client
	s.mu.Lock()
	s.clients[client.ClientID] = &cp
	s.mu.Unlock()

	return nil
}

// GetClient retrieves a client by ID.
func (s *Store) GetClient(_ context.Context, clientID string) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.clients[clientID]
	if !ok {
		return nil, storage.ErrClientNotFound
	}

	cp := *client
	return &cp, nil
}

// IsEmailAllowed reports whether the email is on the allowlist.
func (s *Store) IsEmailAllowed(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.allowlist[storage.AllowlistKey(email)]
	return ok, nil
}

// AllowEmail adds an email to the allowlist.
func (s *Store) AllowEmail(_ context.Context, email string) error {
	s.mu.Lock()
	s.allowlist[storage.AllowlistKey(email)] = struct{}{}
	s.mu.Unlock()
	return nil
}

// DisallowEmail removes an email from the allowlist.
func (s *Store) DisallowEmail(_ context.Context, email string) error {
	s.mu.Lock()
	delete(s.allowlist, storage.AllowlistKey(email))
	s.mu.Unlock()
	return nil
}

// cleanupLoop periodically removes expired flow entries.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup removes expired states, codes, and token records.
func (s *Store) cleanup() {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	for token, state := range s.authStates {
		if now.After(state.ExpiresAt) {
			delete(s.authStates, token)
			removed++
		}
	}
	for code, authCode := range s.authCodes {
		if now.After(authCode.ExpiresAt) {
			delete(s.authCodes, code)
			removed++
		}
	}
	for key, rec := range s.tokens {
		if !rec.ExpiresAt.IsZero() && now.After(rec.ExpiresAt) {
			delete(s.tokens, key)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("Cleaned up expired entries", "removed", removed)
	}
}
