package audit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTotalOrder verifies spec §8 property 10: for any two events a, b with
// a.Seq < b.Seq, a reader that has seen b has also seen a — i.e. Query
// always returns a prefix-consistent, sequence-ordered slice.
func TestTotalOrder(t *testing.T) {
	log := NewLog()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Record(Event{EventType: "test.concurrent", AgentID: "agent-1"})
		}(i)
	}
	wg.Wait()

	events := log.Query(Filter{})
	require.Len(t, events, 50)
	for i := 1; i < len(events); i++ {
		require.Less(t, events[i-1].Seq, events[i].Seq)
	}
}

func TestQueryFiltersByAgent(t *testing.T) {
	log := NewLog()
	log.Record(Event{EventType: "a", AgentID: "agent-1"})
	log.Record(Event{EventType: "b", AgentID: "agent-2"})
	log.Record(Event{EventType: "c", AgentID: "agent-1"})

	events := log.Query(Filter{AgentID: "agent-1"})
	require.Len(t, events, 2)
	require.Equal(t, "a", events[0].EventType)
	require.Equal(t, "c", events[1].EventType)
}

func TestAppendOnlyNoMutationAPI(t *testing.T) {
	log := NewLog()
	log.Record(Event{EventType: "a"})
	require.Equal(t, 1, log.Len())
	// No Delete/Update method exists on *Log by design; Len stays stable
	// across repeated queries.
	_ = log.Query(Filter{})
	require.Equal(t, 1, log.Len())
}
