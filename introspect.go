package authproxy

import (
	"context"
	"errors"
	"strings"

	"github.com/authriver/mcp-oauth-proxy/security"
	"github.com/authriver/mcp-oauth-proxy/storage"
)

// Introspect resolves an opaque token per RFC 7662. It never returns an
// error: any malformed, unknown, or expired token yields {active:false}
// with no further detail, so callers cannot probe why a token failed.
// Introspection is side-effect free; it neither extends nor deletes the
// record it reads.
func (s *Server) Introspect(ctx context.Context, token string) *IntrospectionResponse {
	inactive := &IntrospectionResponse{Active: false}

	userID, grantID, ok := storage.ParseToken(token)
	if !ok {
		return inactive
	}

	record, err := s.stores.Token.GetTokenRecord(ctx, storage.TokenKey(userID, grantID, token))
	if err != nil {
		if !errors.Is(err, storage.ErrTokenNotFound) {
			s.logger.Error("token record lookup failed", "error", err)
		}
		return inactive
	}

	// The stored record's own user binding must match the token. Expiry is
	// enforced strictly with no clock-skew grace: a response must never
	// claim active for a token whose exp claim is already in the past.
	if record.UserID != userID {
		return inactive
	}
	if security.IsExpiredWithGracePeriod(record.ExpiresAt, 0) {
		return inactive
	}

	return &IntrospectionResponse{
		Active:    true,
		ClientID:  record.Grant.ClientID,
		Scope:     strings.Join(record.Grant.Scope, " "),
		Sub:       record.UserID,
		Exp:       record.ExpiresAt.Unix(),
		Iat:       record.CreatedAt.Unix(),
		TokenType: "Bearer",
	}
}
