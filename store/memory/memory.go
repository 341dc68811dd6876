// Package memory provides an in-memory implementation of store.Store,
// grounded on the teacher's registry/store/memory toolset store: same
// single RWMutex-guarded map shape, generalized from one table (toolsets)
// to many (keyed by table name) since this gateway persists campaigns,
// agent definitions, instances, proposals, data sources, and audit events
// through the same interface.
package memory

import (
	"context"

	"github.com/agentgov/gatekeeper/store"

	"sync"
)

// Store is an in-memory implementation of store.Store. Safe for concurrent
// use; holds no data across process restarts.
type Store struct {
	mu      sync.RWMutex
	records map[string]map[string]store.Record
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{records: make(map[string]map[string]store.Record)}
}

// Put stores or replaces a record under (table, id).
func (s *Store) Put(ctx context.Context, rec store.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.records[rec.Table]
	if !ok {
		table = make(map[string]store.Record)
		s.records[rec.Table] = table
	}
	table[rec.ID] = rec
	return nil
}

// Get retrieves a record by (table, id).
func (s *Store) Get(ctx context.Context, table, id string) (store.Record, error) {
	select {
	case <-ctx.Done():
		return store.Record{}, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[table][id]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return rec, nil
}

// Delete removes a record by (table, id).
func (s *Store) Delete(ctx context.Context, table, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.records[table]
	if !ok {
		return store.ErrNotFound
	}
	if _, ok := t[id]; !ok {
		return store.ErrNotFound
	}
	delete(t, id)
	return nil
}

// List returns every record in a table.
func (s *Store) List(ctx context.Context, table string) ([]store.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.records[table]
	out := make([]store.Record, 0, len(t))
	for _, rec := range t {
		out = append(out, rec)
	}
	return out, nil
}
