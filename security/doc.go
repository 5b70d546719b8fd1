// Package security provides the security primitives for the OAuth proxy:
// authenticated cookie encryption, double-submit CSRF protection, rate
// limiting, audit logging, secure header management, and client IP
// extraction.
//
// Cookie payloads are sealed with AES-256-GCM under keys derived per
// purpose via HKDF, so a cookie sealed for one purpose (session binding)
// can never be opened as another (client approval).
package security
