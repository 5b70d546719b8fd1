// Package testutil holds fixtures and small assertion helpers shared by
// tests across the module.
package testutil
