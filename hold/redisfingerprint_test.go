package hold

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// getTestRedis connects to a local Redis instance for integration testing.
// There's no in-pack Redis test double (no miniredis, no testcontainers
// wiring for this component), so this mirrors the "ping and skip" pattern
// rather than spinning up a container.
func getTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("no local redis reachable, skipping integration test")
	}
	return client
}

func TestRedisFingerprintStoreRoundTrip(t *testing.T) {
	client := getTestRedis(t)
	store := NewRedisFingerprintStore(client, "gatekeeper_test:hold:fp:")
	now := time.Now()

	_, ok := store.Lookup("fp-1", time.Minute, now)
	require.False(t, ok)

	store.Record("fp-1", "hold_1_abc", time.Minute, now)
	holdID, ok := store.Lookup("fp-1", time.Minute, now)
	require.True(t, ok)
	require.Equal(t, "hold_1_abc", holdID)

	client.Del(context.Background(), "gatekeeper_test:hold:fp:fp-1")
}

func TestManagerWithRedisFingerprintStoreDeduplicates(t *testing.T) {
	client := getTestRedis(t)
	defer client.Del(context.Background(), "gatekeeper_test:hold:fp:agent-1|frame|tool")

	m := NewManager(nil, WithFingerprintStore(NewRedisFingerprintStore(client, "gatekeeper_test:hold:fp:")))
	first := m.Create("agent-1", "frame", "tool", nil, "reason", SeverityLow, nil, 0)
	second := m.Create("agent-1", "frame", "tool", nil, "reason", SeverityLow, nil, 0)
	require.Equal(t, first.HoldID, second.HoldID)
}
