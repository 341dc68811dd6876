// Package proposal implements the Proposal Manager (component I):
// out-of-band requests to create an agent instance, risk-scored and routed
// to automatic approval or a human-reviewed hold.
package proposal

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agentgov/gatekeeper/agentregistry"
	"github.com/agentgov/gatekeeper/audit"
	"github.com/agentgov/gatekeeper/hold"
	"github.com/agentgov/gatekeeper/notify"
	"github.com/agentgov/gatekeeper/store"
)

// Trigger is why a proposal was generated.
type Trigger string

const (
	TriggerNewDataSource Trigger = "new_data_source"
	TriggerUserRequest   Trigger = "user_request"
	TriggerScheduled     Trigger = "scheduled"
	TriggerDependency    Trigger = "dependency"
	TriggerSystem        Trigger = "system"
)

// State is a proposal's lifecycle state.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	StateExpired  State = "expired"
)

// ResourceEstimate is a min/typical/max triplet.
type ResourceEstimate struct {
	Min     int
	Typical int
	Max     int
}

// DataSource describes the source a proposal is reacting to.
type DataSource struct {
	ID      string
	Type    string // selects the template
	Factors []string
}

// Decision mirrors hold.Decision for the proposal's own terminal transition.
type Decision struct {
	DeciderID string
	At        time.Time
	Reason    string
}

// Proposal is an out-of-band request to create an instance (spec §3
// AgentProposal).
type Proposal struct {
	ProposalID       string
	Definition       agentregistry.Definition
	Trigger          Trigger
	RiskAssessment   RiskAssessment
	ResourceEstimate ResourceEstimate
	DataAccessSummary string
	State            State
	CreatedAt        time.Time
	ExpiresAt        time.Time
	HoldID           string
	Decision         *Decision
}

// Template synthesizes an AgentDefinition for a given data source type.
type Template struct {
	DataSourceType string
	NamePrefix     string
	Category       agentregistry.Category
	Capabilities   []string
	Namespace      string
}

// Manager is the Proposal Manager. One Manager per gateway process.
type Manager struct {
	registry *agentregistry.Registry
	holds    *hold.Manager
	factors  []Factor
	st       store.Store
	notifier notify.Notifier
	auditLog audit.Recorder
	clock    func() time.Time
	defaultTTL time.Duration

	mu        sync.Mutex
	templates map[string]Template
	proposals map[string]*Proposal
	seq       uint64
	rehydrated bool
}

// Option configures a Manager at construction.
type Option func(*Manager)

func WithStore(s store.Store) Option        { return func(m *Manager) { m.st = s } }
func WithNotifier(n notify.Notifier) Option { return func(m *Manager) { m.notifier = n } }
func WithDefaultTTL(d time.Duration) Option { return func(m *Manager) { m.defaultTTL = d } }

// NewManager builds a Proposal Manager wired to the Agent Registry and Hold
// Manager it ultimately drives.
func NewManager(registry *agentregistry.Registry, holds *hold.Manager, rec audit.Recorder, opts ...Option) *Manager {
	if rec == nil {
		rec = audit.NewNoopRecorder()
	}
	m := &Manager{
		registry:   registry,
		holds:      holds,
		factors:    DefaultFactors(),
		notifier:   notify.NewNoopNotifier(),
		auditLog:   rec,
		clock:      time.Now,
		defaultTTL: 24 * time.Hour,
		templates:  make(map[string]Template),
		proposals:  make(map[string]*Proposal),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithClock overrides the manager's time source (tests).
func (m *Manager) WithClock(clock func() time.Time) { m.clock = clock }

// RegisterTemplate adds a template keyed by data source type.
func (m *Manager) RegisterTemplate(t Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.DataSourceType] = t
}

// rehydrate lazily loads proposals from the store on first use (spec §4.I
// "Proposals survive restarts: the manager lazily rehydrates from
// persistent storage at first use").
func (m *Manager) rehydrate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rehydrated || m.st == nil {
		return
	}
	m.rehydrated = true
	records, err := m.st.List(ctx, "proposal")
	if err != nil {
		return
	}
	for _, rec := range records {
		var p Proposal
		if err := json.Unmarshal(rec.Data, &p); err != nil {
			continue
		}
		m.proposals[p.ProposalID] = &p
	}
}

func (m *Manager) writeThrough(ctx context.Context, p *Proposal) {
	if m.st == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = m.st.Put(ctx, store.Record{Table: "proposal", ID: p.ProposalID, Data: data})
}

// GenerateProposal synthesizes an AgentDefinition from a template, computes
// a risk assessment, and decides auto/human/elevated approval (spec §4.I
// steps 1-6).
func (m *Manager) GenerateProposal(ctx context.Context, trigger Trigger, source DataSource) (*Proposal, error) {
	m.rehydrate(ctx)

	m.mu.Lock()
	tmpl, ok := m.templates[source.Type]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no template registered for data source type %q", source.Type)
	}

	agentID := fmt.Sprintf("agent.%s.%s", tmpl.NamePrefix, sanitize(source.ID))
	def := agentregistry.Definition{
		AgentID:              agentID,
		Name:                 tmpl.NamePrefix + " " + source.ID,
		Version:              "1.0.0",
		Category:             tmpl.Category,
		DataSources:          []string{source.ID},
		RequiredCapabilities: tmpl.Capabilities,
		Namespace:            tmpl.Namespace,
		CreatedAt:            m.clock(),
	}

	assessment := Assess(m.factors, source.Factors)
	score := assessment.Score()
	requiresApproval := score >= 0.3
	def.RequiresApproval = requiresApproval
	def.RiskLevel = riskLevelFor(score)

	m.mu.Lock()
	m.seq++
	proposalID := fmt.Sprintf("prop_%d", m.seq)
	m.mu.Unlock()

	p := &Proposal{
		ProposalID:        proposalID,
		Definition:        def,
		Trigger:           trigger,
		RiskAssessment:    assessment,
		DataAccessSummary: fmt.Sprintf("%d data access factor(s) present", len(source.Factors)),
		State:             StatePending,
		CreatedAt:         m.clock(),
		ExpiresAt:         m.clock().Add(m.defaultTTL),
	}

	level := DecideApproval(score, requiresApproval)
	switch level {
	case ApprovalAuto:
		p.State = StateApproved
		p.Decision = &Decision{DeciderID: "system", At: m.clock(), Reason: "auto-approved: risk below threshold"}
		m.registry.RegisterDefinition(def)
		if _, err := m.registry.Spawn(def.AgentID, "", "", 3); err != nil {
			m.auditLog.Record(audit.Event{EventType: "proposal.spawn_failed", ProposalID: proposalID, Details: map[string]any{"error": err.Error()}})
		}
	default:
		severity := hold.Severity(HoldSeverityFor(score))
		if m.holds != nil {
			// tool carries the proposalId so the hold manager's idempotency
			// fingerprint (agentId, frame, tool, args) cannot collide across
			// distinct proposals that otherwise share no agent or frame.
			h := m.holds.Create("", "", proposalID, nil, "proposal pending approval: "+string(level), severity, map[string]any{"proposal_id": proposalID}, m.defaultTTL)
			p.HoldID = h.HoldID
		}
		m.notifier.Notify(notify.Message{Kind: "proposal.pending", Subject: proposalID, Fields: map[string]any{"risk_score": score, "level": string(level)}})
	}

	m.mu.Lock()
	m.proposals[proposalID] = p
	m.mu.Unlock()
	m.writeThrough(ctx, p)

	m.auditLog.Record(audit.Event{
		EventType:  "proposal.generated",
		ProposalID: proposalID,
		Details:    map[string]any{"state": string(p.State), "risk_score": score},
	})
	return p, nil
}

func riskLevelFor(score float64) agentregistry.RiskLevel {
	switch {
	case score >= 0.8:
		return agentregistry.RiskCritical
	case score >= 0.6:
		return agentregistry.RiskHigh
	case score >= 0.3:
		return agentregistry.RiskMedium
	default:
		return agentregistry.RiskLow
	}
}

func sanitize(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Approve applies optional modifications, updates state, approves the
// associated hold, and spawns an instance via the Agent Registry.
func (m *Manager) Approve(ctx context.Context, proposalID, approver, reason string, modify func(*agentregistry.Definition)) (*agentregistry.Instance, error) {
	m.rehydrate(ctx)
	m.mu.Lock()
	p, ok := m.proposals[proposalID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown proposal %s", proposalID)
	}
	if p.State != StatePending {
		return nil, fmt.Errorf("proposal %s is not pending", proposalID)
	}

	if modify != nil {
		modify(&p.Definition)
	}
	p.State = StateApproved
	p.Decision = &Decision{DeciderID: approver, At: m.clock(), Reason: reason}

	if p.HoldID != "" && m.holds != nil {
		m.holds.Approve(p.HoldID, approver, reason, "", nil)
	}

	m.registry.RegisterDefinition(p.Definition)
	inst, err := m.registry.Spawn(p.Definition.AgentID, "", "", 3)
	if err != nil {
		return nil, fmt.Errorf("approve proposal %s: spawn failed: %w", proposalID, err)
	}

	m.writeThrough(ctx, p)
	m.auditLog.Record(audit.Event{EventType: "proposal.approved", ProposalID: proposalID, OperatorID: approver})
	return inst, nil
}

// Reject marks a proposal rejected and rejects its associated hold.
func (m *Manager) Reject(ctx context.Context, proposalID, rejecter, reason string) error {
	m.rehydrate(ctx)
	m.mu.Lock()
	p, ok := m.proposals[proposalID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown proposal %s", proposalID)
	}
	if p.State != StatePending {
		return fmt.Errorf("proposal %s is not pending", proposalID)
	}

	p.State = StateRejected
	p.Decision = &Decision{DeciderID: rejecter, At: m.clock(), Reason: reason}
	if p.HoldID != "" && m.holds != nil {
		m.holds.Reject(p.HoldID, rejecter, reason)
	}

	m.writeThrough(ctx, p)
	m.auditLog.Record(audit.Event{EventType: "proposal.rejected", ProposalID: proposalID, OperatorID: rejecter})
	return nil
}

// ExpireStale moves every pending proposal past its ExpiresAt to expired.
func (m *Manager) ExpireStale(ctx context.Context, now time.Time) int {
	m.rehydrate(ctx)
	m.mu.Lock()
	proposals := make([]*Proposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		proposals = append(proposals, p)
	}
	m.mu.Unlock()

	expired := 0
	for _, p := range proposals {
		if p.State == StatePending && !p.ExpiresAt.IsZero() && p.ExpiresAt.Before(now) {
			p.State = StateExpired
			expired++
			m.writeThrough(ctx, p)
			m.auditLog.Record(audit.Event{EventType: "proposal.expired", ProposalID: p.ProposalID})
		}
	}
	return expired
}

// Get retrieves a proposal by id.
func (m *Manager) Get(ctx context.Context, proposalID string) (*Proposal, bool) {
	m.rehydrate(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proposals[proposalID]
	return p, ok
}

// List returns every proposal matching state, or every proposal if state is
// empty.
func (m *Manager) List(ctx context.Context, state State) []Proposal {
	m.rehydrate(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Proposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		if state != "" && p.State != state {
			continue
		}
		out = append(out, *p)
	}
	return out
}
