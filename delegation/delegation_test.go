package delegation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentgov/gatekeeper/audit"
	"github.com/agentgov/gatekeeper/drift"
	"github.com/agentgov/gatekeeper/ontology"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	reg := ontology.New(ontology.DefaultCatalog())
	driftEngine, err := drift.NewEngine(reg, drift.DefaultConfig(), audit.NewNoopRecorder())
	require.NoError(t, err)
	return NewEngine(reg, driftEngine, audit.NewNoopRecorder())
}

// TestStrictInheritanceCopiesForbidden mirrors spec §8 scenario 6: parent
// ⊕◊⛔▶, child ◈▼β under strict inheritance. Effective child frame inherits
// mode ⊕, domain ◊, and constraint ⛔; chain validation reports CH-002
// (domain mismatch) as a warning against the original child frame.
func TestStrictInheritanceCopiesForbidden(t *testing.T) {
	e := testEngine(t)
	result, err := e.Delegate("parent-1", "child-1", "⊕◊⛔▶", "◈▼β", InheritStrict, Custom{})
	require.NoError(t, err)

	eff := result.Record.EffectiveChildFrame
	require.True(t, eff.Mode.Present)
	require.Equal(t, '⊕', eff.Mode.Codepoint)
	require.True(t, eff.Domain.Present)
	require.Equal(t, '◊', eff.Domain.Codepoint)
	require.True(t, eff.HasConstraint('⛔'))

	require.True(t, result.Report.Valid()) // domain mismatch is a warning only
	require.True(t, result.Report.HasRuleID("CH-002"))
}

func TestMissingForbiddenFailsChainValidation(t *testing.T) {
	e := testEngine(t)
	_, err := e.Delegate("parent-1", "child-1", "⊕◊⛔▶", "⊖◈▶", InheritStrict, Custom{})
	require.Error(t, err)
}

func TestDelegateRejectedWhenChildBreakerOpen(t *testing.T) {
	e := testEngine(t)
	e.drift.HaltAgent("child-1", "operator halt")

	_, err := e.Delegate("parent-1", "child-1", "⊕◊⛔▶", "⊕◊⛔▶", InheritStrict, Custom{})
	require.Error(t, err)
}

func TestRelaxedInheritanceCopiesDomainAndForbiddenOnly(t *testing.T) {
	e := testEngine(t)
	result, err := e.Delegate("parent-1", "child-1", "⊕◊⛔▶", "◊⛔▶", InheritRelaxed, Custom{})
	require.NoError(t, err)

	eff := result.Record.EffectiveChildFrame
	require.False(t, eff.Mode.Present) // relaxed does not inherit mode
	require.True(t, eff.Domain.Present)
	require.True(t, eff.HasConstraint('⛔'))
}

func TestRevokeOnlyByRecordedParent(t *testing.T) {
	e := testEngine(t)
	result, err := e.Delegate("parent-1", "child-1", "⊕◊⛔▶", "⊕◊⛔▶", InheritStrict, Custom{})
	require.NoError(t, err)

	err = e.Revoke(result.Record.DelegationID, "someone-else")
	require.Error(t, err)
	require.True(t, e.IsActive(result.Record.DelegationID))

	err = e.Revoke(result.Record.DelegationID, "parent-1")
	require.NoError(t, err)
	require.False(t, e.IsActive(result.Record.DelegationID))
}

func TestRevokeTwiceFails(t *testing.T) {
	e := testEngine(t)
	result, err := e.Delegate("parent-1", "child-1", "⊕◊⛔▶", "⊕◊⛔▶", InheritStrict, Custom{})
	require.NoError(t, err)

	require.NoError(t, e.Revoke(result.Record.DelegationID, "parent-1"))
	require.Error(t, e.Revoke(result.Record.DelegationID, "parent-1"))
}
