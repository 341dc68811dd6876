package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentgov/gatekeeper/frame"
	"github.com/agentgov/gatekeeper/ontology"
)

func testSetup() (*frame.Resolver, *Validator) {
	reg := ontology.New(ontology.DefaultCatalog())
	return frame.NewResolver(reg), NewValidator(reg)
}

func TestValidate_CleanFrameAllowed(t *testing.T) {
	r, v := testSetup()
	pf, ok := r.Parse("⊕◊⛔▶")
	require.True(t, ok)
	report := v.Validate(pf, nil)
	require.True(t, report.Valid())
}

// TestValidate_WeakerModeMissingForbidden mirrors spec §8 scenario 2:
// parent ⊕◊⛔▶, child ⊖◈▶ (weaker mode, different domain, no forbidden).
func TestValidate_WeakerModeMissingForbidden(t *testing.T) {
	r, v := testSetup()
	parent, ok := r.Parse("⊕◊⛔▶")
	require.True(t, ok)
	child, ok := r.Parse("⊖◈▶")
	require.True(t, ok)

	report := v.Validate(child, parent)
	require.False(t, report.Valid())
	require.True(t, report.HasRuleID("CH-001"))
	require.True(t, report.HasRuleID("CH-003"))
}

// TestValidate_ChainSkippedWithoutParent covers the §4.C edge case: empty
// parent frame skips the chain tier entirely, so a child that would
// otherwise trip CH-003 validates clean on its own.
func TestValidate_ChainSkippedWithoutParent(t *testing.T) {
	r, v := testSetup()
	child, ok := r.Parse("⊖◈▶")
	require.True(t, ok)

	report := v.Validate(child, nil)
	require.True(t, report.Valid())
	require.False(t, report.HasRuleID("CH-001"))
}

func TestValidate_ExploratoryExcludesExecute(t *testing.T) {
	r, v := testSetup()
	pf, ok := r.Parse("⊙▶")
	require.True(t, ok)
	report := v.Validate(pf, nil)
	require.False(t, report.Valid())
	require.True(t, report.HasRuleID("SM-002"))
}

func TestValidate_ForbiddenWithExecuteIsWarningNotError(t *testing.T) {
	r, v := testSetup()
	pf, ok := r.Parse("⛔▶")
	require.True(t, ok)
	report := v.Validate(pf, nil)
	require.True(t, report.Valid())
	require.True(t, report.HasRuleID("SM-006"))
	require.True(t, report.OnlyErrorsAre("SM-006"))
}

func TestValidate_ForbiddenModePropagation(t *testing.T) {
	r, v := testSetup()
	parent, ok := r.Parse("⊗◊")
	require.True(t, ok)
	child, ok := r.Parse("⊕◊")
	require.True(t, ok)

	report := v.Validate(child, parent)
	require.False(t, report.Valid())
	require.True(t, report.HasRuleID("CH-006"))
}

func TestValidate_EntityHierarchyUpwardDelegationWarns(t *testing.T) {
	r, v := testSetup()
	parent, ok := r.Parse("γ") // tertiary, level 9 (junior)
	require.True(t, ok)
	child, ok := r.Parse("α") // primary, level 1 (senior) — delegating upward
	require.True(t, ok)

	report := v.Validate(child, parent)
	require.True(t, report.Valid()) // CH-005 is a warning, not an error
	require.True(t, report.HasRuleID("CH-005"))
}

func TestValidate_ParseFailedShortCircuits(t *testing.T) {
	report := ParseFailedReport()
	require.False(t, report.Valid())
	require.Len(t, report.Errors, 1)
	require.Equal(t, RuleParseFailed, report.Errors[0].RuleID)
}
