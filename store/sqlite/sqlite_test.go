package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentgov/gatekeeper/store"
)

func TestPutGetDeleteRoundTrip(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	rec := store.Record{Table: "proposal", ID: "prop_1", Data: []byte(`{"state":"pending"}`)}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "proposal", "prop_1")
	require.NoError(t, err)
	require.Equal(t, rec.Data, got.Data)

	require.NoError(t, s.Delete(ctx, "proposal", "prop_1"))
	_, err = s.Get(ctx, "proposal", "prop_1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPutUpsertsOnConflict(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, store.Record{Table: "hold", ID: "hold_1", Data: []byte("v1")}))
	require.NoError(t, s.Put(ctx, store.Record{Table: "hold", ID: "hold_1", Data: []byte("v2")}))

	got, err := s.Get(ctx, "hold", "hold_1")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got.Data)
}

func TestListScopedByTable(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, store.Record{Table: "hold", ID: "hold_1", Data: []byte("a")}))
	require.NoError(t, s.Put(ctx, store.Record{Table: "hold", ID: "hold_2", Data: []byte("b")}))
	require.NoError(t, s.Put(ctx, store.Record{Table: "proposal", ID: "prop_1", Data: []byte("c")}))

	holds, err := s.List(ctx, "hold")
	require.NoError(t, err)
	require.Len(t, holds, 2)
}
