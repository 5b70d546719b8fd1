package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/authriver/mcp-oauth-proxy/storage"
)

// ============================================================
// TokenStore Implementation
// ============================================================

// SaveTokenRecord stores an opaque token record under its external key.
// Records without an expiry are stored without TTL.
func (s *Store) SaveTokenRecord(ctx context.Context, key string, rec *storage.TokenRecord) error {
	if key == "" || rec == nil {
		return fmt.Errorf("invalid token record")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	cmd := s.client.B().Set().Key(s.tokenKey(key)).Value(string(data))
	if rec.ExpiresAt.IsZero() {
		if err := s.client.Do(ctx, cmd.Build()).Error(); err != nil {
			return fmt.Errorf("failed to save token record: %w", err)
		}
	} else {
		ttl := calculateTTL(rec.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("token record already expired")
		}
		if err := s.client.Do(ctx, cmd.Ex(ttl).Build()).Error(); err != nil {
			return fmt.Errorf("failed to save token record: %w", err)
		}
	}

	s.logger.Debug("Saved token record", "user_id", rec.UserID)
	return nil
}

// GetTokenRecord retrieves an opaque token record. The read is plain GET:
// introspection must never extend a record's lifetime as a side effect.
func (s *Store) GetTokenRecord(ctx context.Context, key string) (*storage.TokenRecord, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.tokenKey(key)).Build()).ToString()
	if err != nil {
		if isNilError(err) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token record: %w", err)
	}

	var rec storage.TokenRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token record: %w", err)
	}

	return &rec, nil
}

// DeleteTokenRecord removes an opaque token record.
func (s *Store) DeleteTokenRecord(ctx context.Context, key string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.tokenKey(key)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete token record: %w", err)
	}
	return nil
}

// ============================================================
// ClientStore Implementation
// ============================================================

// SaveClient saves a registered client.
func (s *Store) SaveClient(ctx context.Context, client *storage.Client) error {
	if client == nil || client.ClientID == "" {
		return fmt.Errorf("invalid client")
	}

	data, err := json.Marshal(client)
	if err != nil {
		return fmt.Errorf("failed to marshal client: %w", err)
	}

	key := s.clientKey(client.ClientID)
	if err := s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(data)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}

	s.logger.Debug("Saved client", "client_id", client.ClientID)
	return nil
}

// GetClient retrieves a client by ID.
func (s *Store) GetClient(ctx context.Context, clientID string) (*storage.Client, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(s.clientKey(clientID)).Build()).ToString()
	if err != nil {
		if isNilError(err) {
			return nil, storage.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	var client storage.Client
	if err := json.Unmarshal([]byte(data), &client); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client: %w", err)
	}

	return &client, nil
}

// ============================================================
// AllowlistStore Implementation
// ============================================================

// IsEmailAllowed reports whether the email's allowlist key exists.
// Presence (non-null) means "allowed"; the value is irrelevant.
func (s *Store) IsEmailAllowed(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(s.allowlistKey(email)).Build()).AsInt64()
	if err != nil {
		return false, fmt.Errorf("failed to check allowlist: %w", err)
	}
	return n > 0, nil
}

// AllowEmail adds an email to the allowlist.
func (s *Store) AllowEmail(ctx context.Context, email string) error {
	if err := s.client.Do(ctx,
		s.client.B().Set().Key(s.allowlistKey(email)).Value("1").Build(),
	).Error(); err != nil {
		return fmt.Errorf("failed to allow email: %w", err)
	}
	return nil
}

// DisallowEmail removes an email from the allowlist.
func (s *Store) DisallowEmail(ctx context.Context, email string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.allowlistKey(email)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to disallow email: %w", err)
	}
	return nil
}
