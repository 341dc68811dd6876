package memory

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/agentgov/gatekeeper/store"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	rec := store.Record{Table: "hold", ID: "hold_1", Data: []byte(`{"severity":"high"}`)}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "hold", "hold_1")
	require.NoError(t, err)
	require.Equal(t, rec, got)
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "hold", "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteMissingReturnsErrNotFound(t *testing.T) {
	s := New()
	err := s.Delete(context.Background(), "hold", "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListScopedByTable(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, store.Record{Table: "hold", ID: "hold_1"}))
	require.NoError(t, s.Put(ctx, store.Record{Table: "hold", ID: "hold_2"}))
	require.NoError(t, s.Put(ctx, store.Record{Table: "proposal", ID: "prop_1"}))

	holds, err := s.List(ctx, "hold")
	require.NoError(t, err)
	require.Len(t, holds, 2)

	proposals, err := s.List(ctx, "proposal")
	require.NoError(t, err)
	require.Len(t, proposals, 1)
}

// TestPutThenDeleteThenGetMisses is a property over random id/data pairs:
// after Put followed by Delete, Get always reports ErrNotFound.
func TestPutThenDeleteThenGetMisses(t *testing.T) {
	params := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(params)

	properties.Property("put-delete-get misses", prop.ForAll(
		func(id string, payload string) bool {
			s := New()
			ctx := context.Background()
			rec := store.Record{Table: "t", ID: id, Data: []byte(payload)}
			if err := s.Put(ctx, rec); err != nil {
				return false
			}
			if err := s.Delete(ctx, "t", id); err != nil {
				return false
			}
			_, err := s.Get(ctx, "t", id)
			return err == store.ErrNotFound
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
