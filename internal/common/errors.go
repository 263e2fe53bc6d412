// Package common defines shared constants and sentinel errors used across
// the client layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Store lifecycle errors.
	ErrMigrationFailed = errors.New("schema migration failed")

	// Conflict-resolution errors.
	ErrConflictUnresolved = errors.New("post has an unresolved conflict")
	ErrInvalidTransition  = errors.New("invalid conflict state transition")

	// Session / auth errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrCredentialsExpired = errors.New("credentials expired")
	ErrNotLoggedIn        = errors.New("not logged in")

	// Sync errors.
	ErrSyncInFlight = errors.New("sync already in flight")
)
