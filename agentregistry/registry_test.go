package agentregistry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentgov/gatekeeper/audit"
)

func testDefinition(namespace string) Definition {
	return Definition{
		AgentID:              "agent.recon.portscan",
		Name:                 "Port Scanner",
		Version:              "1.0.0",
		Category:             CategoryDataAcquisition,
		RequiredCapabilities: []string{"web_fetch", "shell_exec"},
		ExpectedOutputSymbol: "Ξ.v1.recon.hosts",
		Namespace:            namespace,
		ResourceLimits:       ResourceLimits{RateLimitPerMinute: 2, TokenBudget: 1000, TimeoutMs: 5000, MaxSymbolsCreated: 10},
	}
}

func TestSpawnProducesScopedInstance(t *testing.T) {
	r := NewRegistry(audit.NewNoopRecorder())
	r.RegisterDefinition(testDefinition("recon"))

	inst, err := r.Spawn("agent.recon.portscan", "", "", 3)
	require.NoError(t, err)
	require.Equal(t, StatusProposed, inst.Status)
	require.True(t, inst.Scope.AllowsTool("WebFetch"))
	require.True(t, inst.Scope.AllowsTool("Bash"))
	require.False(t, inst.Scope.AllowsTool("Write"))
}

// TestScopeIntersectionIsMonotone verifies spec §8 property 9: a child's
// allowed symbol patterns are a subset of the parent's.
func TestScopeIntersectionIsMonotone(t *testing.T) {
	r := NewRegistry(audit.NewNoopRecorder())
	parentDef := testDefinition("recon")
	parentDef.AgentID = "agent.recon.parent"
	parentDef.ExpectedOutputSymbol = "Ξ.v1.recon.hosts"
	r.RegisterDefinition(parentDef)

	childDef := testDefinition("recon")
	childDef.AgentID = "agent.recon.child"
	childDef.ExpectedOutputSymbol = "Ξ.v1.recon.ports" // disjoint from parent's own pattern
	r.RegisterDefinition(childDef)

	parent, err := r.Spawn("agent.recon.parent", "", "", 3)
	require.NoError(t, err)

	child, err := r.Spawn("agent.recon.child", "", parent.InstanceID, 3)
	require.NoError(t, err)

	parentSet := make(map[string]struct{}, len(parent.Scope.AllowedSymbolPatterns))
	for _, p := range parent.Scope.AllowedSymbolPatterns {
		parentSet[p] = struct{}{}
	}
	for _, p := range child.Scope.AllowedSymbolPatterns {
		_, ok := parentSet[p]
		require.True(t, ok, "child pattern %q must be a subset of parent patterns", p)
	}
}

func TestMaxDelegationDepthEnforced(t *testing.T) {
	r := NewRegistry(audit.NewNoopRecorder())
	def := testDefinition("recon")
	r.RegisterDefinition(def)

	root, err := r.Spawn("agent.recon.portscan", "", "", 1)
	require.NoError(t, err)
	require.Equal(t, 1, root.Scope.MaxDelegationDepth)

	_, err = r.Spawn("agent.recon.portscan", "", root.InstanceID, 1)
	require.Error(t, err)
}

func TestIllegalLifecycleTransitionRejected(t *testing.T) {
	r := NewRegistry(audit.NewNoopRecorder())
	r.RegisterDefinition(testDefinition("recon"))
	inst, err := r.Spawn("agent.recon.portscan", "", "", 3)
	require.NoError(t, err)

	err = r.Transition(inst.InstanceID, StatusRunning) // must go through pending_approval/approved/spawning first
	require.Error(t, err)
}

func TestCampaignBreakerOpensAfterThreeFailures(t *testing.T) {
	r := NewRegistry(audit.NewNoopRecorder())
	r.RegisterDefinition(testDefinition("recon"))

	for i := 0; i < 3; i++ {
		inst, err := r.Spawn("agent.recon.portscan", "campaign-1", "", 3)
		require.NoError(t, err)
		require.NoError(t, r.Transition(inst.InstanceID, StatusPendingApproval))
		require.NoError(t, r.Transition(inst.InstanceID, StatusApproved))
		require.NoError(t, r.Transition(inst.InstanceID, StatusSpawning))
		require.NoError(t, r.Transition(inst.InstanceID, StatusRunning))
		require.NoError(t, r.Transition(inst.InstanceID, StatusFailed))
	}

	require.Equal(t, CampaignOpen, r.CampaignBreakerState("campaign-1"))
	_, err := r.Spawn("agent.recon.portscan", "campaign-1", "", 3)
	require.Error(t, err)
}

func TestQuotaExhaustedBlocksFurtherUsage(t *testing.T) {
	r := NewRegistry(audit.NewNoopRecorder())
	def := testDefinition("recon")
	r.RegisterDefinition(def)
	inst, err := r.Spawn("agent.recon.portscan", "", "", 3)
	require.NoError(t, err)

	now := time.Now()
	res, err := r.CheckQuota(inst.InstanceID, def, ResourceRateLimit, 1, now)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	require.NoError(t, r.RecordUsage(inst.InstanceID, ResourceRateLimit, 1, now))
	require.NoError(t, r.RecordUsage(inst.InstanceID, ResourceRateLimit, 1, now))

	res, err = r.CheckQuota(inst.InstanceID, def, ResourceRateLimit, 1, now)
	require.NoError(t, err)
	require.False(t, res.Allowed)
}

func TestValidateDefinitionJSONRejectsMissingFields(t *testing.T) {
	err := ValidateDefinitionJSON([]byte(`{"name": "no id"}`))
	require.Error(t, err)
}

func TestValidateDefinitionJSONAcceptsWellFormed(t *testing.T) {
	err := ValidateDefinitionJSON([]byte(`{
		"agentId": "agent.recon.portscan",
		"name": "Port Scanner",
		"version": "1.0.0",
		"category": "data_acquisition"
	}`))
	require.NoError(t, err)
}
