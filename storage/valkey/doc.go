// Package valkey provides a Valkey-backed implementation of all storage
// interfaces. Flow state and token records are stored as JSON values with
// native TTLs, so expiry is enforced by the server without an explicit
// sweep. Single-use consumption of states and codes relies on GETDEL,
// which is atomic: of any number of concurrent consumers, exactly one
// receives the value.
package valkey
