// Package common defines shared sentinel errors used across the sync engine
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Remote document errors. A malformed document (missing business key,
	// unknown enum value, failed validation) is dropped from the current
	// pull pass and not retried until a fresh pull.
	ErrMalformedDocument = errors.New("malformed remote document")
	ErrInvalidEnum       = errors.New("invalid enum value")

	// Store availability. Only this class of error aborts a whole sync
	// pass; per-record errors are recovered inside the per-record loop.
	ErrStoreUnavailable = errors.New("local store unavailable")

	// Returned by MarkSynced-style operations when the record changed
	// while a push was in flight and the dirty flag must stay set.
	ErrStaleRecord = errors.New("record modified since snapshot")

	// Wallet errors.
	ErrAlreadyApplied = errors.New("record already applied to balance")

	// Returned by the orchestrator when no adapter is registered for the
	// requested entity type.
	ErrUnknownEntityType = errors.New("unknown entity type")
)
