package security

import (
	"net/http"
	"net/url"
)

// SetSecurityHeaders sets strict security headers on HTTP responses.
func SetSecurityHeaders(w http.ResponseWriter, serverURL string) {
	// Prevent clickjacking
	w.Header().Set("X-Frame-Options", "DENY")

	// Prevent MIME type sniffing
	w.Header().Set("X-Content-Type-Options", "nosniff")

	// Very strict policy for OAuth endpoints (no scripts, no external resources)
	w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

	// Don't leak referrer information
	w.Header().Set("Referrer-Policy", "no-referrer")

	// Enforce HTTPS when the server itself is HTTPS
	if parsed, err := url.Parse(serverURL); err == nil && parsed.Scheme == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	// Never cache OAuth responses
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
}

// SetPageSecurityHeaders sets security headers for HTML pages (consent
// dialog, denial page). Same as SetSecurityHeaders except inline styles
// are permitted; scripts remain forbidden.
func SetPageSecurityHeaders(w http.ResponseWriter, serverURL string) {
	SetSecurityHeaders(w, serverURL)
	w.Header().Set("Content-Security-Policy",
		"default-src 'none'; style-src 'unsafe-inline'; img-src https:; frame-ancestors 'none'")
}
