package eventstore

import (
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.EventStoreError("could not open event store database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.EventStoreError("failed to initialize event store schema").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.EventStoreError("failed to append event to store").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = errors.EventStoreError("failed to query events from store").Build()

	// ErrEventScanFailed indicates scanning event rows failed.
	ErrEventScanFailed = errors.EventStoreError("failed to scan event rows").Build()
)

// wrap attaches cause to one of the sentinels above, keeping errors.Is working.
func wrap(sentinel *errors.ClassifiedError, cause error) error {
	return errors.EventStoreError(sentinel.Message()).WithCause(cause).Build()
}
