// Package coreerr declares the coordination engine's sentinel error kinds.
// Call sites wrap a kind with fmt.Errorf("...: %w", kind) and callers use
// errors.Is against the sentinel to branch on category.
package coreerr

import "errors"

var (
	// ErrPreconditionFailed marks a command rejected because required state
	// (channels configured, dungeon active, raid still open) was missing.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrValidation marks user-supplied input that failed validation.
	ErrValidation = errors.New("validation error")

	// ErrTransport marks a failure reaching the chat platform.
	ErrTransport = errors.New("transport error")

	// ErrPersistence marks a failure talking to Postgres.
	ErrPersistence = errors.New("persistence error")

	// ErrSchema marks a failure aligning or validating the database schema.
	ErrSchema = errors.New("schema error")

	// ErrSingletonLost marks a failure to acquire the database advisory lock
	// at boot: another engine instance already owns the database.
	ErrSingletonLost = errors.New("singleton task lost")

	// ErrConsistencyViolation marks an orphan found by the integrity sweep:
	// a cache row or slot role whose raid no longer exists.
	ErrConsistencyViolation = errors.New("consistency violation")
)
