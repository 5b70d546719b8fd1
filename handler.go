package authproxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/authriver/mcp-oauth-proxy/instrumentation"
	"github.com/authriver/mcp-oauth-proxy/security"
	"github.com/authriver/mcp-oauth-proxy/storage"
)

// Handler adapts the Server flow logic to HTTP. It owns request parsing,
// cookies, response encoding, rate limiting, and metrics; all flow
// decisions live in Server.
type Handler struct {
	server  *Server
	limiter *security.RateLimiter
	inst    *instrumentation.Instrumentation
}

// NewHandler creates the HTTP adapter for a flow server. inst may be nil,
// in which case a disabled (no-op) instrumentation instance is used.
func NewHandler(server *Server, inst *instrumentation.Instrumentation) (*Handler, error) {
	if server == nil {
		return nil, fmt.Errorf("server is required")
	}
	if inst == nil {
		var err error
		inst, err = instrumentation.New(instrumentation.Config{Enabled: false})
		if err != nil {
			return nil, fmt.Errorf("failed to create instrumentation: %w", err)
		}
	}

	h := &Handler{server: server, inst: inst}
	if rl := server.config.RateLimit; rl.Rate > 0 {
		h.limiter = security.NewRateLimiter(rl.Rate, rl.Burst, server.logger)
	}
	return h, nil
}

// Close releases handler resources (the rate limiter's cleanup goroutine).
func (h *Handler) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}

// Routes returns the handler's route table wrapped in the request-ID and
// rate-limit middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /.well-known/oauth-protected-resource", h.handleProtectedResourceMetadata)
	mux.HandleFunc("GET /.well-known/oauth-authorization-server", h.handleAuthServerMetadata)
	mux.HandleFunc("GET /authorize", h.handleAuthorizeGet)
	mux.HandleFunc("POST /authorize", h.handleAuthorizePost)
	mux.HandleFunc("GET /callback", h.handleCallback)
	mux.HandleFunc("POST /token", h.handleToken)
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /introspect", h.handleIntrospect)

	return security.RequestIDMiddleware(h.rateLimitMiddleware(h.metricsMiddleware(mux)))
}

// clientIP resolves the caller IP honoring the TrustProxy setting.
func (h *Handler) clientIP(r *http.Request) string {
	return security.GetClientIP(r, h.server.config.TrustProxy)
}

func (h *Handler) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil {
			ip := h.clientIP(r)
			if !h.limiter.Allow(ip) {
				h.server.auditor.LogRateLimitExceeded(ip)
				h.inst.Metrics().RateLimitExceeded.Add(r.Context(), 1)
				h.writeError(w, r, NewFlowError(ErrorCodeRateLimitExceeded, "too many requests", http.StatusTooManyRequests))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

func (h *Handler) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.inst.Metrics().RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rec.status,
			float64(time.Since(start).Microseconds())/1000.0)
	})
}

// writeError writes a FlowError as an RFC 6749 JSON error response.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, flowErr *FlowError) {
	security.SetSecurityHeaders(w, h.server.config.Issuer)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(flowErr.Status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            flowErr.Code,
		ErrorDescription: flowErr.Description,
	})
}

// asFlowError maps any error to a FlowError, defaulting to server_error so
// internal details never leak.
func asFlowError(err error) *FlowError {
	if flowErr, ok := err.(*FlowError); ok {
		return flowErr
	}
	return ErrServerError("internal error")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	security.SetSecurityHeaders(w, h.server.config.Issuer)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeHTML(w http.ResponseWriter, status int, page []byte) {
	security.SetPageSecurityHeaders(w, h.server.config.Issuer)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(page)
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	page, err := renderHomePage(h.server.config.Metadata)
	if err != nil {
		h.writeError(w, r, asFlowError(err))
		return
	}
	h.writeHTML(w, http.StatusOK, page)
}

func (h *Handler) handleProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	issuer := h.server.config.Issuer
	h.writeJSON(w, http.StatusOK, ProtectedResourceMetadata{
		Resource:               issuer,
		AuthorizationServers:   []string{issuer},
		BearerMethodsSupported: []string{"header"},
	})
}

func (h *Handler) handleAuthServerMetadata(w http.ResponseWriter, r *http.Request) {
	issuer := strings.TrimSuffix(h.server.config.Issuer, "/")
	h.writeJSON(w, http.StatusOK, AuthorizationServerMetadata{
		Issuer:                            issuer,
		AuthorizationEndpoint:             issuer + "/authorize",
		TokenEndpoint:                     issuer + "/token",
		IntrospectionEndpoint:             issuer + "/introspect",
		RegistrationEndpoint:              issuer + "/register",
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code"},
		TokenEndpointAuthMethodsSupported: []string{"none"},
		CodeChallengeMethodsSupported:     []string{security.CodeChallengeMethodS256, security.CodeChallengeMethodPlain},
	})
}

// parseAuthRequest extracts the pending request from /authorize query
// parameters.
func parseAuthRequest(q url.Values) storage.PendingAuthRequest {
	var scope []string
	if raw := q.Get("scope"); raw != "" {
		scope = strings.Fields(raw)
	}
	return storage.PendingAuthRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		Scope:               scope,
		State:               q.Get("state"),
		ResponseType:        q.Get("response_type"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
	}
}

// startUpstreamRedirect creates the authorization state, binds the session
// cookie, and 302s the browser to the identity provider.
func (h *Handler) startUpstreamRedirect(w http.ResponseWriter, r *http.Request, req storage.PendingAuthRequest) {
	stateToken, providerURL, err := h.server.StartAuthorization(r.Context(), req)
	if err != nil {
		h.writeError(w, r, asFlowError(err))
		return
	}

	sessionCookie, err := h.server.BindSession(stateToken)
	if err != nil {
		h.writeError(w, r, asFlowError(err))
		return
	}

	h.inst.Metrics().AuthorizationStarted.Add(r.Context(), 1)
	security.SetSecurityHeaders(w, h.server.config.Issuer)
	http.SetCookie(w, sessionCookie)
	http.Redirect(w, r, providerURL, http.StatusFound)
}

func (h *Handler) handleAuthorizeGet(w http.ResponseWriter, r *http.Request) {
	req := parseAuthRequest(r.URL.Query())

	client, err := h.server.ValidateAuthRequest(r.Context(), req)
	if err != nil {
		h.writeError(w, r, asFlowError(err))
		return
	}

	// Pre-approved clients skip the dialog entirely
	if h.server.IsClientApproved(r, req.ClientID, h.clientIP(r)) {
		h.startUpstreamRedirect(w, r, req)
		return
	}

	csrfToken, csrfCookie, err := security.GenerateCSRFToken()
	if err != nil {
		h.writeError(w, r, ErrServerError("failed to generate CSRF token"))
		return
	}
	encoded, err := encodeFormState(req)
	if err != nil {
		h.writeError(w, r, ErrServerError("failed to encode request state"))
		return
	}

	page, err := renderDialog(dialogData{
		Server:      h.server.config.Metadata,
		Client:      client,
		Scope:       req.Scope,
		RedirectURI: req.RedirectURI,
		CSRFToken:   csrfToken,
		FormState:   encoded,
	})
	if err != nil {
		h.writeError(w, r, asFlowError(err))
		return
	}

	http.SetCookie(w, csrfCookie)
	h.writeHTML(w, http.StatusOK, page)
}

func (h *Handler) handleAuthorizePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, ErrInvalidRequest("malformed form body"))
		return
	}
	ip := h.clientIP(r)

	// CSRF and form-state failures collapse into the same generic error
	if err := security.ValidateCSRFToken(r.PostFormValue("csrf_token"), r); err != nil {
		h.server.auditor.LogAuthorizationFailure(ip, "csrf validation failed")
		h.writeError(w, r, ErrAuthorizationFailed())
		return
	}

	req, err := decodeFormState(r.PostFormValue("state"))
	if err != nil {
		h.server.auditor.LogAuthorizationFailure(ip, "form state invalid")
		h.writeError(w, r, ErrAuthorizationFailed())
		return
	}

	// Re-validate against the client registry; registrations may have
	// changed while the dialog sat open
	if _, err := h.server.ValidateAuthRequest(r.Context(), req); err != nil {
		h.writeError(w, r, asFlowError(err))
		return
	}

	http.SetCookie(w, security.ClearCSRFCookie())

	if r.PostFormValue("decision") != "approve" {
		redirect, err := url.Parse(req.RedirectURI)
		if err != nil {
			h.writeError(w, r, ErrServerError("redirect URI is invalid"))
			return
		}
		q := redirect.Query()
		q.Set("error", ErrorCodeAccessDenied)
		if req.State != "" {
			q.Set("state", req.State)
		}
		redirect.RawQuery = q.Encode()
		security.SetSecurityHeaders(w, h.server.config.Issuer)
		http.Redirect(w, r, redirect.String(), http.StatusFound)
		return
	}

	approvalCookie, err := h.server.ApproveClient(r, req.ClientID, ip)
	if err != nil {
		h.writeError(w, r, asFlowError(err))
		return
	}
	http.SetCookie(w, approvalCookie)
	h.inst.Metrics().ConsentGranted.Add(r.Context(), 1)

	h.startUpstreamRedirect(w, r, req)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ip := h.clientIP(r)
	q := r.URL.Query()

	// The session binding is single-use regardless of outcome. Set before
	// any write; headers flush on the first WriteHeader.
	http.SetCookie(w, h.server.ClearSessionCookie())

	state, err := h.server.ConsumeCallbackState(r.Context(), r, q.Get("state"), ip)
	if err != nil {
		instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().CallbackProcessed, false)
		h.writeError(w, r, asFlowError(err))
		return
	}

	if upstreamErr := q.Get("error"); upstreamErr != "" {
		instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().CallbackProcessed, false)
		h.writeError(w, r, ErrUpstreamAuthFailure("identity provider returned an error"))
		return
	}
	code := q.Get("code")
	if code == "" {
		instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().CallbackProcessed, false)
		h.writeError(w, r, ErrInvalidRequest("code is required"))
		return
	}

	user, upstreamToken, err := h.server.AuthenticateUpstream(r.Context(), code)
	if err != nil {
		instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().CallbackProcessed, false)
		h.writeError(w, r, asFlowError(err))
		return
	}

	if err := h.server.CheckAllowlist(r.Context(), user, ip); err != nil {
		instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().CallbackProcessed, false)
		flowErr := asFlowError(err)
		if flowErr.Code == ErrorCodeAccessDenied {
			h.inst.Metrics().AccessDenied.Add(r.Context(), 1)
			page, renderErr := renderDeniedPage(h.server.config.Metadata.Name)
			if renderErr == nil {
				h.writeHTML(w, http.StatusForbidden, page)
				return
			}
		}
		h.writeError(w, r, flowErr)
		return
	}

	redirectURL, err := h.server.CompleteGrant(r.Context(), state, user, upstreamToken)
	if err != nil {
		instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().CallbackProcessed, false)
		h.writeError(w, r, asFlowError(err))
		return
	}

	instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().CallbackProcessed, true)
	security.SetSecurityHeaders(w, h.server.config.Issuer)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, ErrInvalidRequest("malformed form body"))
		return
	}

	if grantType := r.PostFormValue("grant_type"); grantType != "authorization_code" {
		h.writeError(w, r, ErrUnsupportedGrantType("only authorization_code is supported"))
		return
	}

	resp, err := h.server.ExchangeToken(r.Context(),
		r.PostFormValue("client_id"),
		r.PostFormValue("redirect_uri"),
		r.PostFormValue("code"),
		r.PostFormValue("code_verifier"),
		h.clientIP(r))
	if err != nil {
		instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().TokenIssued, false)
		h.writeError(w, r, asFlowError(err))
		return
	}

	instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().TokenIssued, true)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req ClientRegistrationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		h.writeError(w, r, ErrInvalidRequest("malformed registration request"))
		return
	}

	resp, err := h.server.RegisterClient(r.Context(), &req, h.clientIP(r))
	if err != nil {
		h.writeError(w, r, asFlowError(err))
		return
	}

	h.inst.Metrics().ClientRegistered.Add(r.Context(), 1)
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, r, ErrInvalidRequest("malformed form body"))
		return
	}

	resp := h.server.Introspect(r.Context(), r.PostFormValue("token"))
	instrumentation.RecordFlowOutcome(r.Context(), h.inst.Metrics().TokenIntrospected, resp.Active)
	h.writeJSON(w, http.StatusOK, resp)
}
