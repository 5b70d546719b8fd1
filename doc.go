// Package authproxy implements an OAuth 2.0 authorization-code proxy for
// MCP servers. It delegates user authentication to an upstream identity
// provider (GitHub by default), gates access with an email allowlist, and
// issues opaque bearer tokens that resource servers verify through RFC 7662
// introspection.
//
// The flow logic lives in Server; Handler adapts it to HTTP. Storage
// backends are pluggable through the storage package interfaces, with
// in-memory and Valkey implementations provided.
package authproxy
