package proposal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agentgov/gatekeeper/agentregistry"
	"github.com/agentgov/gatekeeper/audit"
	"github.com/agentgov/gatekeeper/hold"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	reg := agentregistry.NewRegistry(audit.NewNoopRecorder())
	holds := hold.NewManager(audit.NewNoopRecorder())
	m := NewManager(reg, holds, audit.NewNoopRecorder())
	m.RegisterTemplate(Template{
		DataSourceType: "web_scraper",
		NamePrefix:     "scrape",
		Category:       agentregistry.CategoryDataAcquisition,
		Capabilities:   []string{"web_fetch"},
		Namespace:      "scrape",
	})
	return m
}

func TestLowRiskAutoApproves(t *testing.T) {
	m := testManager(t)
	p, err := m.GenerateProposal(context.Background(), TriggerNewDataSource, DataSource{ID: "src-1", Type: "web_scraper"})
	require.NoError(t, err)
	require.Equal(t, StateApproved, p.State)
	require.Empty(t, p.HoldID)
	require.False(t, p.Definition.RequiresApproval)
}

// TestHighRiskCreatesHold mirrors spec §8 scenario 4: a web-scraping agent
// over a new source with risk score >= 0.5 goes pending with a hold.
func TestHighRiskCreatesHold(t *testing.T) {
	m := testManager(t)
	p, err := m.GenerateProposal(context.Background(), TriggerNewDataSource, DataSource{
		ID: "src-2", Type: "web_scraper",
		Factors: []string{"oauth2", "pii_access", "web_scraping", "third_party_api", "high_frequency_polling", "unbounded_output", "delegation_spawn", "credential_write"},
	})
	require.NoError(t, err)
	require.Equal(t, StatePending, p.State)
	require.NotEmpty(t, p.HoldID)
	require.GreaterOrEqual(t, p.RiskAssessment.Score(), 0.5)
}

// TestAutoApprovalImpliesLowRisk verifies spec §8 property 8.
func TestAutoApprovalImpliesLowRisk(t *testing.T) {
	m := testManager(t)
	p, err := m.GenerateProposal(context.Background(), TriggerScheduled, DataSource{ID: "src-3", Type: "web_scraper"})
	require.NoError(t, err)
	if p.State == StateApproved && p.Decision != nil && p.Decision.DeciderID == "system" {
		require.Less(t, p.RiskAssessment.Score(), 0.3)
		require.False(t, p.Definition.RequiresApproval)
	}
}

func TestApproveSpawnsInstance(t *testing.T) {
	m := testManager(t)
	p, err := m.GenerateProposal(context.Background(), TriggerUserRequest, DataSource{
		ID: "src-4", Type: "web_scraper", Factors: []string{"oauth2", "pii_access", "web_scraping", "credential_write"},
	})
	require.NoError(t, err)
	require.Equal(t, StatePending, p.State)

	inst, err := m.Approve(context.Background(), p.ProposalID, "alice", "looks fine", nil)
	require.NoError(t, err)
	require.NotNil(t, inst)

	got, _ := m.Get(context.Background(), p.ProposalID)
	require.Equal(t, StateApproved, got.State)
}

func TestRejectMarksProposalRejected(t *testing.T) {
	m := testManager(t)
	p, err := m.GenerateProposal(context.Background(), TriggerUserRequest, DataSource{
		ID: "src-5", Type: "web_scraper", Factors: []string{"oauth2", "pii_access", "web_scraping", "credential_write"},
	})
	require.NoError(t, err)

	require.NoError(t, m.Reject(context.Background(), p.ProposalID, "bob", "too risky"))
	got, _ := m.Get(context.Background(), p.ProposalID)
	require.Equal(t, StateRejected, got.State)
}

func TestExpireStaleMovesPastDeadline(t *testing.T) {
	m := testManager(t)
	now := time.Now()
	m.WithClock(func() time.Time { return now })
	p, err := m.GenerateProposal(context.Background(), TriggerUserRequest, DataSource{
		ID: "src-6", Type: "web_scraper", Factors: []string{"oauth2", "pii_access", "web_scraping", "credential_write"},
	})
	require.NoError(t, err)
	require.Equal(t, StatePending, p.State)

	expired := m.ExpireStale(context.Background(), now.Add(25*time.Hour))
	require.Equal(t, 1, expired)
	got, _ := m.Get(context.Background(), p.ProposalID)
	require.Equal(t, StateExpired, got.State)
}

func TestUnknownTemplateErrors(t *testing.T) {
	m := testManager(t)
	_, err := m.GenerateProposal(context.Background(), TriggerSystem, DataSource{ID: "x", Type: "unknown"})
	require.Error(t, err)
}
