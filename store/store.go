// Package store defines the persistence layer interface shared by the Hold
// Manager, Proposal Manager, and Agent Registry. Each manager confines its
// writes to its own table (spec §5 "No component may write to another's
// mutable state directly") by keying records under a prefix-constrained id
// (camp_, agent.*, inst_, prop_, src_, evt_ — §6 "Persisted state layout").
//
// Available implementations:
//   - memory: in-process map, safe for concurrent use, no durability.
//   - sqlite: embedded modernc.org/sqlite backing, durable across restarts.
//
// To add a new implementation, create a subpackage that implements Store and
// returns store.ErrNotFound for missing records.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is not found in the store.
var ErrNotFound = errors.New("record not found")

// Record is a single persisted row: an opaque JSON payload keyed by a
// prefix-constrained id and tagged with its table so a single store
// implementation can multiplex every manager's data (spec §6 "JSON blobs
// are used for composite fields").
type Record struct {
	Table string
	ID    string
	Data  []byte
}

// Store defines the persistence layer used by every manager that must
// survive a restart. Implementations must be safe for concurrent use.
type Store interface {
	// Put stores or replaces a record under (table, id).
	Put(ctx context.Context, rec Record) error

	// Get retrieves a record by (table, id). Returns ErrNotFound if absent.
	Get(ctx context.Context, table, id string) (Record, error)

	// Delete removes a record by (table, id). Returns ErrNotFound if absent.
	Delete(ctx context.Context, table, id string) error

	// List returns every record in a table, optionally filtered further by
	// the caller after retrieval. Order is unspecified.
	List(ctx context.Context, table string) ([]Record, error)
}
