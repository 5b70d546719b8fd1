package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/authriver/mcp-oauth-proxy/storage"
)

// ============================================================
// FlowStore Implementation
// ============================================================

// SaveAuthState stores an authorization state with a TTL derived from its expiry.
func (s *Store) SaveAuthState(ctx context.Context, state *storage.AuthState) error {
	if state == nil || state.StateToken == "" {
		return fmt.Errorf("invalid authorization state")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization state: %w", err)
	}

	ttl := calculateTTL(state.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("authorization state already expired")
	}

	key := s.stateKey(state.StateToken)
	if err := s.client.Do(ctx,
		s.client.B().Set().Key(key).Value(string(data)).Ex(ttl).Build(),
	).Error(); err != nil {
		return fmt.Errorf("failed to save authorization state: %w", err)
	}

	s.logger.Debug("Saved authorization state",
		"state_prefix", safeTruncate(state.StateToken, tokenLogLength),
		"client_id", state.Request.ClientID)
	return nil
}

// ConsumeAuthState atomically fetches and deletes an authorization state.
// GETDEL guarantees at most one concurrent caller receives the value, so a
// state token can never be replayed on a second callback.
func (s *Store) ConsumeAuthState(ctx context.Context, stateToken string) (*storage.AuthState, error) {
	key := s.stateKey(stateToken)

	data, err := s.client.Do(ctx, s.client.B().Getdel().Key(key).Build()).ToString()
	if err != nil {
		if isNilError(err) {
			return nil, storage.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to consume authorization state: %w", err)
	}

	var state storage.AuthState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization state: %w", err)
	}

	// TTL should prevent this, but double-check against our own clock
	if time.Now().After(state.ExpiresAt) {
		return nil, fmt.Errorf("%w: %w", storage.ErrStateNotFound, storage.ErrExpired)
	}

	s.logger.Debug("Consumed authorization state",
		"state_prefix", safeTruncate(stateToken, tokenLogLength))
	return &state, nil
}

// SaveAuthorizationCode stores a downstream authorization code with TTL.
func (s *Store) SaveAuthorizationCode(ctx context.Context, code *storage.AuthorizationCode) error {
	if code == nil || code.Code == "" {
		return fmt.Errorf("invalid authorization code")
	}

	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization code: %w", err)
	}

	ttl := calculateTTL(code.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("authorization code already expired")
	}

	key := s.codeKey(code.Code)
	if err := s.client.Do(ctx,
		s.client.B().Set().Key(key).Value(string(data)).Ex(ttl).Build(),
	).Error(); err != nil {
		return fmt.Errorf("failed to save authorization code: %w", err)
	}

	s.logger.Debug("Saved authorization code",
		"code_prefix", safeTruncate(code.Code, tokenLogLength))
	return nil
}

// ConsumeAuthorizationCode atomically fetches and deletes an authorization code.
func (s *Store) ConsumeAuthorizationCode(ctx context.Context, code string) (*storage.AuthorizationCode, error) {
	key := s.codeKey(code)

	data, err := s.client.Do(ctx, s.client.B().Getdel().Key(key).Build()).ToString()
	if err != nil {
		if isNilError(err) {
			return nil, storage.ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	var authCode storage.AuthorizationCode
	if err := json.Unmarshal([]byte(data), &authCode); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization code: %w", err)
	}

	if time.Now().After(authCode.ExpiresAt) {
		return nil, fmt.Errorf("%w: %w", storage.ErrCodeNotFound, storage.ErrExpired)
	}

	s.logger.Debug("Consumed authorization code",
		"code_prefix", safeTruncate(code, tokenLogLength))
	return &authCode, nil
}
