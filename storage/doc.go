// Package storage defines the interfaces for persisting authorization flow
// state, opaque token records, registered clients, and the email allowlist.
// Backends are treated as external key-value services with TTL support; the
// in-memory implementation exists for development and tests, the Valkey
// implementation for production.
//
// Consumption of flow state is atomic per backend: the memory store guards
// with a mutex, the Valkey store uses GETDEL. Concurrent callbacks racing on
// the same state token therefore result in at most one success.
package storage
