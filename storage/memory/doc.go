// Package memory provides an in-memory implementation of all storage
// interfaces. It is suitable for development, testing, and single-instance
// deployments. Expired entries are reclaimed by a background cleanup loop;
// reads additionally double-check expiry so a not-yet-swept entry is never
// served.
package memory
