package drift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentgov/gatekeeper/audit"
	"github.com/agentgov/gatekeeper/frame"
	"github.com/agentgov/gatekeeper/ontology"
)

func testEngine(t *testing.T) (*Engine, *frame.Resolver) {
	t.Helper()
	reg := ontology.New(ontology.DefaultCatalog())
	eng, err := NewEngine(reg, DefaultConfig(), audit.NewNoopRecorder())
	require.NoError(t, err)
	return eng, frame.NewResolver(reg)
}

// TestConsecutiveFailuresOpenCircuit verifies spec §8 property 5: after
// recordOutcome(success=false) is called k >= consecutiveFailureCeiling
// times in succession, getStatus reports state=open.
func TestConsecutiveFailuresOpenCircuit(t *testing.T) {
	eng, r := testEngine(t)
	pf, ok := r.Parse("⊕◊▶")
	require.True(t, ok)

	for i := 0; i < DefaultConfig().ConsecutiveFailureCeiling; i++ {
		eng.RecordOperation("agent-1", pf, "execute", false)
	}

	status := eng.GetStatus("agent-1")
	require.Equal(t, StateOpen, status.CircuitBreakerState)
}

// TestOpenBreakerStaysOpenUntilCooldown verifies spec §8 property 6 (in
// spirit): while the breaker reports open, it stays open regardless of
// further valid operations, until the cooldown elapses.
func TestOpenBreakerStaysOpenUntilCooldown(t *testing.T) {
	eng, r := testEngine(t)
	now := time.Now()
	eng.WithClock(func() time.Time { return now })

	pf, ok := r.Parse("⊕◊▶")
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		eng.RecordOperation("agent-1", pf, "execute", false)
	}
	require.Equal(t, StateOpen, eng.GetStatus("agent-1").CircuitBreakerState)

	now = now.Add(10 * time.Second) // within cooldown (30s default)
	require.Equal(t, StateOpen, eng.GetStatus("agent-1").CircuitBreakerState)

	now = now.Add(25 * time.Second) // past cooldown
	require.Equal(t, StateHalfOpen, eng.GetStatus("agent-1").CircuitBreakerState)
}

func TestHalfOpenClosesOnSuccessReopensOnFailure(t *testing.T) {
	eng, r := testEngine(t)
	now := time.Now()
	eng.WithClock(func() time.Time { return now })

	pf, ok := r.Parse("⊕◊▶")
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		eng.RecordOperation("agent-1", pf, "execute", false)
	}
	now = now.Add(31 * time.Second)
	require.Equal(t, StateHalfOpen, eng.GetStatus("agent-1").CircuitBreakerState)

	eng.RecordOperation("agent-1", pf, "execute", true)
	require.Equal(t, StateClosed, eng.GetStatus("agent-1").CircuitBreakerState)

	// Re-open via failure ceiling, then let it go half-open, then fail again.
	for i := 0; i < 3; i++ {
		eng.RecordOperation("agent-1", pf, "execute", false)
	}
	now = now.Add(31 * time.Second)
	require.Equal(t, StateHalfOpen, eng.GetStatus("agent-1").CircuitBreakerState)

	eng.RecordOperation("agent-1", pf, "execute", false)
	require.Equal(t, StateOpen, eng.GetStatus("agent-1").CircuitBreakerState)
}

func TestHaltAgentForcesOpen(t *testing.T) {
	eng, r := testEngine(t)
	pf, ok := r.Parse("⊕◊▶")
	require.True(t, ok)
	eng.RecordOperation("agent-1", pf, "execute", true)
	require.Equal(t, StateClosed, eng.GetStatus("agent-1").CircuitBreakerState)

	eng.HaltAgent("agent-1", "operator override")
	require.Equal(t, StateOpen, eng.GetStatus("agent-1").CircuitBreakerState)
}

func TestWeightsMustSumToOne(t *testing.T) {
	reg := ontology.New(ontology.DefaultCatalog())
	bad := DefaultConfig()
	bad.Weights.FailureRate = 0.9
	_, err := NewEngine(reg, bad, audit.NewNoopRecorder())
	require.Error(t, err)
}

func TestDomainChangeContributesToDrift(t *testing.T) {
	eng, r := testEngine(t)
	baseline, ok := r.Parse("⊕◊▶")
	require.True(t, ok)
	eng.RecordOperation("agent-1", baseline, "execute", true)

	drifted, ok := r.Parse("⊕◇▶") // domain changed from financial to technical
	require.True(t, ok)
	eng.RecordOperation("agent-1", drifted, "execute", true)

	status := eng.GetStatus("agent-1")
	require.Greater(t, status.DriftScore, 0.0)
}
