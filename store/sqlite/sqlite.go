// Package sqlite provides a durable store.Store backed by an embedded
// SQLite database (modernc.org/sqlite — a pure-Go driver, so this package
// carries no cgo requirement). Every table the gateway persists (spec §6:
// campaigns, agent definitions, instances, proposals, data sources, audit
// events) lives in a single `records` table keyed by (table, id); callers
// never see SQL, only the store.Store contract.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/agentgov/gatekeeper/store"
)

// Store is a SQLite-backed implementation of store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if necessary) a SQLite database at path and ensures
// the backing schema exists. Use ":memory:" for an ephemeral database that
// still exercises the real SQL path (useful in tests that want sqlite
// semantics without a file on disk).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
	tbl  TEXT NOT NULL,
	id   TEXT NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (tbl, id)
);
CREATE INDEX IF NOT EXISTS idx_records_table ON records(tbl);
`

// Put stores or replaces a record under (table, id).
func (s *Store) Put(ctx context.Context, rec store.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (tbl, id, data) VALUES (?, ?, ?)
		 ON CONFLICT(tbl, id) DO UPDATE SET data = excluded.data`,
		rec.Table, rec.ID, rec.Data)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Get retrieves a record by (table, id).
func (s *Store) Get(ctx context.Context, table, id string) (store.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE tbl = ? AND id = ?`, table, id)
	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return store.Record{}, store.ErrNotFound
		}
		return store.Record{}, fmt.Errorf("get record: %w", err)
	}
	return store.Record{Table: table, ID: id, Data: data}, nil
}

// Delete removes a record by (table, id).
func (s *Store) Delete(ctx context.Context, table, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE tbl = ? AND id = ?`, table, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List returns every record in a table.
func (s *Store) List(ctx context.Context, table string) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM records WHERE tbl = ?`, table)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, store.Record{Table: table, ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}
