package authproxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/authriver/mcp-oauth-proxy/providers"
	"github.com/authriver/mcp-oauth-proxy/security"
	"github.com/authriver/mcp-oauth-proxy/storage"
)

// stateTokenBytes is the entropy of a state token (256 bits).
const stateTokenBytes = 32

// codeBytes is the entropy of a downstream authorization code.
const codeBytes = 32

// tokenSecretBytes is the entropy of the secret part of an opaque token.
const tokenSecretBytes = 32

// Stores bundles the storage backends the server needs. A single backend
// (memory or valkey) usually implements all four.
type Stores struct {
	Flow      storage.FlowStore
	Token     storage.TokenStore
	Client    storage.ClientStore
	Allowlist storage.AllowlistStore
}

// Server implements the authorization flow: state lifecycle, consent,
// upstream delegation, allowlisting, grant completion, token issuance, and
// introspection. It holds no HTTP concerns; Handler adapts it to HTTP.
type Server struct {
	config    *Config
	provider  providers.Provider
	stores    Stores
	sessions  *sessionBinder
	approvals *approvalRegistry
	auditor   *security.Auditor
	logger    *slog.Logger
}

// NewServer creates a new flow server.
func NewServer(cfg *Config, stores Stores, provider providers.Provider) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if stores.Flow == nil || stores.Token == nil || stores.Client == nil || stores.Allowlist == nil {
		return nil, fmt.Errorf("all stores are required")
	}

	sessions, err := newSessionBinder(cfg.CookieKey, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	approvals, err := newApprovalRegistry(cfg.CookieKey, cfg.ApprovalTTL)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:    cfg,
		provider:  provider,
		stores:    stores,
		sessions:  sessions,
		approvals: approvals,
		auditor:   security.NewAuditor(cfg.Logger, cfg.EnableAuditLogging),
		logger:    cfg.Logger,
	}, nil
}

// Config returns the validated server configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Provider returns the upstream identity provider.
func (s *Server) Provider() providers.Provider {
	return s.provider
}

// ValidateAuthRequest checks that the pending request names a registered
// client and one of its registered redirect URIs.
func (s *Server) ValidateAuthRequest(ctx context.Context, req storage.PendingAuthRequest) (*storage.Client, error) {
	if req.ClientID == "" {
		return nil, ErrInvalidRequest("client_id is required")
	}
	if req.RedirectURI == "" {
		return nil, ErrInvalidRequest("redirect_uri is required")
	}
	if req.ResponseType != "" && req.ResponseType != "code" {
		return nil, ErrInvalidRequest("unsupported response_type")
	}
	if !security.IsSupportedCodeChallengeMethod(req.CodeChallengeMethod) {
		return nil, ErrInvalidRequest("unsupported code_challenge_method")
	}
	if req.CodeChallengeMethod != "" && req.CodeChallenge == "" {
		return nil, ErrInvalidRequest("code_challenge is required when code_challenge_method is set")
	}

	client, err := s.stores.Client.GetClient(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, storage.ErrClientNotFound) {
			return nil, ErrInvalidClient("unknown client")
		}
		return nil, ErrServerError("client lookup failed")
	}

	for _, uri := range client.RedirectURIs {
		if uri == req.RedirectURI {
			return client, nil
		}
	}
	return nil, ErrInvalidRequest("redirect_uri is not registered for this client")
}

// StartAuthorization creates and persists the authorization state and
// returns the state token with the upstream authorization URL.
func (s *Server) StartAuthorization(ctx context.Context, req storage.PendingAuthRequest) (stateToken, providerURL string, err error) {
	stateToken, err = security.GenerateRandomToken(stateTokenBytes)
	if err != nil {
		return "", "", ErrServerError("failed to generate state token")
	}

	now := time.Now()
	state := &storage.AuthState{
		StateToken: stateToken,
		Request:    req,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.config.StateTTL),
	}
	if err := s.stores.Flow.SaveAuthState(ctx, state); err != nil {
		s.logger.Error("failed to save auth state", "error", err)
		return "", "", ErrServerError("failed to persist authorization state")
	}

	return stateToken, s.provider.AuthorizationURL(stateToken), nil
}

// BindSession seals the state token into a session-binding cookie for the
// redirect response that sends the browser upstream.
func (s *Server) BindSession(stateToken string) (*http.Cookie, error) {
	cookie, err := s.sessions.Bind(stateToken)
	if err != nil {
		s.logger.Error("failed to bind session", "error", err)
		return nil, ErrServerError("failed to bind session")
	}
	return cookie, nil
}

// IsClientApproved reports whether the browser previously approved the
// client. An unreadable approval cookie counts as not approved and is
// audited distinctly from a first visit.
func (s *Server) IsClientApproved(r *http.Request, clientID, ip string) bool {
	approved, invalid := s.approvals.IsApproved(r, clientID)
	if invalid {
		s.auditor.LogApprovalCookieInvalid(ip)
		s.logger.Warn("approval cookie present but unreadable", "ip", ip)
	}
	return approved
}

// ApproveClient records the client in the approval cookie after an explicit
// consent-form approval.
func (s *Server) ApproveClient(r *http.Request, clientID, ip string) (*http.Cookie, error) {
	cookie, err := s.approvals.Approve(r, clientID)
	if err != nil {
		s.logger.Error("failed to seal approval cookie", "error", err)
		return nil, ErrServerError("failed to record approval")
	}
	s.auditor.LogConsentGranted(clientID, ip)
	return cookie, nil
}

// ConsumeCallbackState atomically consumes the state token and verifies the
// session binding. Both checks must pass; the returned error is always the
// coalesced authorization failure, with the true reason only in logs.
func (s *Server) ConsumeCallbackState(ctx context.Context, r *http.Request, stateToken, ip string) (*storage.AuthState, error) {
	if stateToken == "" {
		s.auditor.LogAuthorizationFailure(ip, "missing state parameter")
		return nil, ErrAuthorizationFailed()
	}

	state, err := s.stores.Flow.ConsumeAuthState(ctx, stateToken)
	if err != nil {
		if !errors.Is(err, storage.ErrStateNotFound) {
			s.logger.Error("state consume failed", "error", err)
		}
		s.auditor.LogAuthorizationFailure(ip, "state not found or already used")
		return nil, ErrAuthorizationFailed()
	}

	// State consumed first: even when session verification fails the
	// token is burned and cannot be retried.
	if err := s.sessions.Verify(r, stateToken); err != nil {
		s.auditor.LogAuthorizationFailure(ip, err.Error())
		return nil, ErrAuthorizationFailed()
	}

	return state, nil
}

// ClearSessionCookie returns the cookie that removes the session binding.
// Set on every callback response.
func (s *Server) ClearSessionCookie() *http.Cookie {
	return s.sessions.ClearCookie()
}

// AuthenticateUpstream exchanges the provider code and fetches the user
// identity.
func (s *Server) AuthenticateUpstream(ctx context.Context, code string) (*providers.UserInfo, string, error) {
	token, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Error("upstream code exchange failed", "provider", s.provider.Name(), "error", err)
		return nil, "", ErrUpstreamAuthFailure("identity provider rejected the authorization code")
	}

	user, err := s.provider.FetchUser(ctx, token.AccessToken)
	if err != nil {
		s.logger.Error("upstream user fetch failed", "provider", s.provider.Name(), "error", err)
		return nil, "", ErrUpstreamAuthFailure("failed to fetch user identity")
	}
	if user.Email == "" {
		s.logger.Warn("upstream user has no resolvable email", "provider", s.provider.Name())
		return nil, "", ErrUpstreamAuthFailure("identity provider returned no email")
	}

	return user, token.AccessToken, nil
}

// CheckAllowlist verifies the authenticated email against the allowlist.
// Returns ErrAccessDenied when the email is not allowed.
func (s *Server) CheckAllowlist(ctx context.Context, user *providers.UserInfo, ip string) error {
	allowed, err := s.stores.Allowlist.IsEmailAllowed(ctx, user.Email)
	if err != nil {
		s.logger.Error("allowlist lookup failed", "error", err)
		return ErrServerError("allowlist lookup failed")
	}
	if !allowed {
		s.auditor.LogAccessDenied(user.ID, user.Email, ip)
		return ErrAccessDenied("email is not authorized for this server")
	}
	return nil
}

// CompleteGrant mints the single-use downstream authorization code and
// returns the client redirect URL carrying it, plus the client's original
// state when one was given.
func (s *Server) CompleteGrant(ctx context.Context, state *storage.AuthState, user *providers.UserInfo, upstreamToken string) (string, error) {
	code, err := security.GenerateRandomToken(codeBytes)
	if err != nil {
		return "", ErrServerError("failed to generate authorization code")
	}

	now := time.Now()
	authCode := &storage.AuthorizationCode{
		Code:        code,
		ClientID:    state.Request.ClientID,
		RedirectURI: state.Request.RedirectURI,
		Scope:       state.Request.Scope,
		UserID:      user.ID,
		Props: map[string]string{
			"accessToken": upstreamToken,
			"email":       user.Email,
			"login":       user.Login,
			"name":        user.Name,
		},
		CodeChallenge:       state.Request.CodeChallenge,
		CodeChallengeMethod: state.Request.CodeChallengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.config.CodeTTL),
	}
	if err := s.stores.Flow.SaveAuthorizationCode(ctx, authCode); err != nil {
		s.logger.Error("failed to save authorization code", "error", err)
		return "", ErrServerError("failed to persist authorization code")
	}

	redirect, err := url.Parse(state.Request.RedirectURI)
	if err != nil {
		return "", ErrServerError("stored redirect URI is invalid")
	}
	q := redirect.Query()
	q.Set("code", code)
	if state.Request.State != "" {
		q.Set("state", state.Request.State)
	}
	redirect.RawQuery = q.Encode()

	return redirect.String(), nil
}

// ExchangeToken implements the authorization_code grant: it consumes the
// downstream code, verifies the PKCE binding when the authorization request
// carried one, and mints the opaque bearer token.
func (s *Server) ExchangeToken(ctx context.Context, clientID, redirectURI, code, codeVerifier, ip string) (*TokenResponse, error) {
	if code == "" {
		return nil, ErrInvalidRequest("code is required")
	}

	authCode, err := s.stores.Flow.ConsumeAuthorizationCode(ctx, code)
	if err != nil {
		if !errors.Is(err, storage.ErrCodeNotFound) {
			s.logger.Error("code consume failed", "error", err)
			return nil, ErrServerError("code lookup failed")
		}
		return nil, ErrInvalidGrant("authorization code is invalid or expired")
	}

	// The code is burned at this point; mismatches below cannot be retried.
	if authCode.ClientID != clientID {
		return nil, ErrInvalidGrant("authorization code was issued to a different client")
	}
	if authCode.RedirectURI != redirectURI {
		return nil, ErrInvalidGrant("redirect_uri does not match the authorization request")
	}
	if authCode.CodeChallenge != "" {
		if codeVerifier == "" {
			return nil, ErrInvalidGrant("code_verifier is required")
		}
		if !security.VerifyCodeChallenge(authCode.CodeChallenge, authCode.CodeChallengeMethod, codeVerifier) {
			s.auditor.LogAuthorizationFailure(ip, "code_verifier does not match code_challenge")
			return nil, ErrInvalidGrant("code_verifier does not match code_challenge")
		}
	}

	grantID := uuid.NewString()
	secret, err := security.GenerateRandomToken(tokenSecretBytes)
	if err != nil {
		return nil, ErrServerError("failed to generate token")
	}
	token := fmt.Sprintf("%s:%s:%s", authCode.UserID, grantID, secret)

	now := time.Now()
	record := &storage.TokenRecord{
		UserID: authCode.UserID,
		Grant: storage.Grant{
			ClientID: authCode.ClientID,
			Scope:    authCode.Scope,
			Props:    authCode.Props,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.TokenTTL),
	}
	key := storage.TokenKey(authCode.UserID, grantID, token)
	if err := s.stores.Token.SaveTokenRecord(ctx, key, record); err != nil {
		s.logger.Error("failed to save token record", "error", err)
		return nil, ErrServerError("failed to persist token")
	}

	scope := strings.Join(authCode.Scope, " ")
	s.auditor.LogTokenIssued(authCode.UserID, authCode.ClientID, ip, scope)
	s.logger.Info("token issued", "client_id", authCode.ClientID)

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.config.TokenTTL.Seconds()),
		Scope:       scope,
	}, nil
}

// RegisterClient implements minimal RFC 7591 registration for public
// clients.
func (s *Server) RegisterClient(ctx context.Context, req *ClientRegistrationRequest, ip string) (*ClientRegistrationResponse, error) {
	if req.ClientName == "" {
		return nil, ErrInvalidRequest("client_name is required")
	}
	if len(req.RedirectURIs) == 0 {
		return nil, ErrInvalidRequest("redirect_uris is required")
	}
	for _, uri := range req.RedirectURIs {
		parsed, err := url.Parse(uri)
		if err != nil || parsed.Scheme == "" {
			return nil, ErrInvalidRequest("redirect_uris must be absolute URIs")
		}
		if parsed.Scheme == "http" && parsed.Hostname() != "localhost" && parsed.Hostname() != "127.0.0.1" {
			return nil, ErrInvalidRequest("http redirect URIs are only allowed for localhost")
		}
	}

	client := &storage.Client{
		ClientID:     uuid.NewString(),
		ClientName:   req.ClientName,
		RedirectURIs: req.RedirectURIs,
		ClientURI:    req.ClientURI,
		LogoURI:      req.LogoURI,
		CreatedAt:    time.Now(),
	}
	if err := s.stores.Client.SaveClient(ctx, client); err != nil {
		s.logger.Error("failed to save client", "error", err)
		return nil, ErrServerError("failed to persist client")
	}

	s.auditor.LogClientRegistered(client.ClientID, ip)
	s.logger.Info("client registered", "client_id", client.ClientID, "client_name", client.ClientName)

	return &ClientRegistrationResponse{
		ClientID:                client.ClientID,
		ClientName:              client.ClientName,
		RedirectURIs:            client.RedirectURIs,
		ClientURI:               client.ClientURI,
		LogoURI:                 client.LogoURI,
		ClientIDIssuedAt:        client.CreatedAt.Unix(),
		TokenEndpointAuthMethod: "none",
	}, nil
}
