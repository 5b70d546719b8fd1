package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments for the proxy.
type Metrics struct {
	// HTTP layer
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Flow layer
	AuthorizationStarted metric.Int64Counter
	ConsentGranted       metric.Int64Counter
	CallbackProcessed    metric.Int64Counter
	TokenIssued          metric.Int64Counter
	TokenIntrospected    metric.Int64Counter
	ClientRegistered     metric.Int64Counter

	// Security
	AccessDenied      metric.Int64Counter
	RateLimitExceeded metric.Int64Counter
}

// newMetrics creates and registers all metric instruments.
func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	httpMeter := inst.Meter("http")
	flowMeter := inst.Meter("flow")
	securityMeter := inst.Meter("security")

	var err error
	m.HTTPRequestsTotal, err = httpMeter.Int64Counter(
		"oauth.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.requests.total counter: %w", err)
	}

	m.HTTPRequestDuration, err = httpMeter.Float64Histogram(
		"oauth.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http.request.duration histogram: %w", err)
	}

	m.AuthorizationStarted, err = flowMeter.Int64Counter(
		"oauth.authorization.started",
		metric.WithDescription("Number of authorization flows started"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization.started counter: %w", err)
	}

	m.ConsentGranted, err = flowMeter.Int64Counter(
		"oauth.consent.granted",
		metric.WithDescription("Number of consent dialogs approved"),
		metric.WithUnit("{consent}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create consent.granted counter: %w", err)
	}

	m.CallbackProcessed, err = flowMeter.Int64Counter(
		"oauth.callback.processed",
		metric.WithDescription("Number of provider callbacks processed"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback.processed counter: %w", err)
	}

	m.TokenIssued, err = flowMeter.Int64Counter(
		"oauth.token.issued",
		metric.WithDescription("Number of opaque access tokens issued"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.issued counter: %w", err)
	}

	m.TokenIntrospected, err = flowMeter.Int64Counter(
		"oauth.token.introspected",
		metric.WithDescription("Number of introspection requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token.introspected counter: %w", err)
	}

	m.ClientRegistered, err = flowMeter.Int64Counter(
		"oauth.client.registered",
		metric.WithDescription("Number of dynamically registered clients"),
		metric.WithUnit("{client}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client.registered counter: %w", err)
	}

	m.AccessDenied, err = securityMeter.Int64Counter(
		"oauth.access.denied",
		metric.WithDescription("Number of callbacks rejected by the email allowlist"),
		metric.WithUnit("{denial}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create access.denied counter: %w", err)
	}

	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		"oauth.ratelimit.exceeded",
		metric.WithDescription("Number of requests rejected by rate limiting"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ratelimit.exceeded counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, durationMs, attrs)
}

// RecordFlowOutcome increments the given flow counter with an outcome attribute
// ("success" or "failure").
func RecordFlowOutcome(ctx context.Context, counter metric.Int64Counter, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
