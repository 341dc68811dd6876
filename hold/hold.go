// Package hold implements the Hold Manager (component E): an at-most-once
// human-in-the-loop approval queue. Pending requests live in a map keyed by
// holdId; every terminal transition (approve/reject/expire) is a single
// compare-and-set out of "pending" so a duplicate decision after the first
// is rejected without side effect (spec §4.E concurrency contract), mirroring
// the compare-and-set discipline in r3e-network-service_layer's circuit
// breaker state transitions.
package hold

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agentgov/gatekeeper/audit"
	"github.com/agentgov/gatekeeper/notify"
)

// State is a HoldRequest's lifecycle state. pending is the only non-terminal
// state; every other state is reached exactly once.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	StateExpired  State = "expired"
)

// Severity classifies how urgently a hold needs human attention.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Request is a paused operation awaiting human approval.
type Request struct {
	HoldID    string
	AgentID   string
	Frame     string
	Tool      string
	Arguments map[string]any
	Reason    string
	Severity  Severity
	Metadata  map[string]any
	CreatedAt time.Time
	ExpiresAt time.Time // zero means no expiry
	State     State
}

// Decision records a terminal transition. Created exactly once per hold.
type Decision struct {
	HoldID        string
	DeciderID     string
	At            time.Time
	Reason        string
	ModifiedFrame string // empty if the approver did not supply one
	ModifiedArgs  map[string]any
}

// Filter selects a subset of requests for List/ListPending.
type Filter struct {
	AgentID string
	State   State // empty means any state
}

// Stats summarizes the queue at a point in time.
type Stats struct {
	Pending  int
	Approved int
	Rejected int
	Expired  int
}

type entry struct {
	mu       sync.Mutex
	request  Request
	decision *Decision
}

// Manager is the Hold Manager. One Manager per gateway process.
type Manager struct {
	auditLog audit.Recorder
	notifier notify.Notifier
	clock    func() time.Time

	mu      sync.RWMutex
	holds   map[string]*entry
	byAgent map[string][]string // agentId -> holdIds, append-only index
	seq     uint64

	// fpStore backs the idempotency fingerprint cache: recent (agentId,
	// frame, tool, args hash) -> holdId, so a duplicate create within the
	// window returns the existing hold instead of minting a second one
	// (spec §5 "Hold creation is idempotent per fingerprint within a
	// short window"). Defaults to a single-process map; WithFingerprintStore
	// swaps in a shared backend (e.g. Redis) so multiple gateway replicas
	// agree on the window.
	fpStore FingerprintStore
	fpTTL   time.Duration
}

// FingerprintStore is the idempotency window backing a Hold Manager. The
// default implementation is an in-process map; a Redis-backed
// implementation lets several gateway replicas share one window.
type FingerprintStore interface {
	// Lookup returns the holdId recorded for fp, if any, and whether it is
	// still within ttl of now.
	Lookup(fp string, ttl time.Duration, now time.Time) (holdID string, ok bool)
	// Record associates fp with holdID as of now, valid for ttl.
	Record(fp string, holdID string, ttl time.Duration, now time.Time)
}

type memoryFingerprintStore struct {
	mu      sync.Mutex
	entries map[string]fingerprintEntry
}

type fingerprintEntry struct {
	holdID string
	at     time.Time
}

func newMemoryFingerprintStore() *memoryFingerprintStore {
	return &memoryFingerprintStore{entries: make(map[string]fingerprintEntry)}
}

func (s *memoryFingerprintStore) Lookup(fp string, ttl time.Duration, now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[fp]
	if !ok || now.Sub(e.at) >= ttl {
		return "", false
	}
	return e.holdID, true
}

func (s *memoryFingerprintStore) Record(fp, holdID string, ttl time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[fp] = fingerprintEntry{holdID: holdID, at: now}
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithNotifier injects a notification hook fired when Create mints a new
// hold (expiry by Sweep sends no notification). Defaults to
// notify.NewNoopNotifier().
func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithFingerprintTTL overrides the idempotency window. Default 5s.
func WithFingerprintTTL(d time.Duration) Option {
	return func(m *Manager) { m.fpTTL = d }
}

// WithFingerprintStore overrides the idempotency cache backend. Defaults to
// an in-process map; pass hold.NewRedisFingerprintStore to share the
// window across gateway replicas.
func WithFingerprintStore(s FingerprintStore) Option {
	return func(m *Manager) { m.fpStore = s }
}

// NewManager builds an empty Hold Manager.
func NewManager(rec audit.Recorder, opts ...Option) *Manager {
	if rec == nil {
		rec = audit.NewNoopRecorder()
	}
	m := &Manager{
		auditLog: rec,
		notifier: notify.NewNoopNotifier(),
		clock:    time.Now,
		holds:    make(map[string]*entry),
		byAgent:  make(map[string][]string),
		fpStore:  newMemoryFingerprintStore(),
		fpTTL:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithClock overrides the manager's time source (tests).
func (m *Manager) WithClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

// newHoldID allocates a monotonic + random-suffix id (spec §4.E
// "holdId (monotonic + random suffix)").
func (m *Manager) newHoldID() string {
	m.seq++
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("hold_%d_%s", m.seq, hex.EncodeToString(buf[:]))
}

// Create allocates a HoldRequest, stores it as pending, and fires a
// notification hook. If an equivalent request (same agentId, frame, tool,
// and arguments) was created within the fingerprint TTL, the existing hold
// is returned instead of minting a duplicate.
func (m *Manager) Create(agentID, frame, tool string, arguments map[string]any, reason string, severity Severity, metadata map[string]any, ttl time.Duration) *Request {
	m.mu.Lock()
	now := m.clock()
	fp := fingerprint(agentID, frame, tool, arguments)
	if existingID, ok := m.fpStore.Lookup(fp, m.fpTTL, now); ok {
		m.mu.Unlock()
		if e := m.lookup(existingID); e != nil {
			e.mu.Lock()
			req := e.request
			e.mu.Unlock()
			return &req
		}
		m.mu.Lock()
	}

	holdID := m.newHoldID()
	req := Request{
		HoldID:    holdID,
		AgentID:   agentID,
		Frame:     frame,
		Tool:      tool,
		Arguments: arguments,
		Reason:    reason,
		Severity:  severity,
		Metadata:  metadata,
		CreatedAt: now,
		State:     StatePending,
	}
	if ttl > 0 {
		req.ExpiresAt = now.Add(ttl)
	}
	m.holds[holdID] = &entry{request: req}
	m.byAgent[agentID] = append(m.byAgent[agentID], holdID)
	m.mu.Unlock()
	m.fpStore.Record(fp, holdID, m.fpTTL, now)

	m.auditLog.Record(audit.Event{
		EventType: "hold.created",
		AgentID:   agentID,
		Details:   map[string]any{"hold_id": holdID, "severity": string(severity), "reason": reason},
	})
	m.notifier.Notify(notify.Message{
		Kind:    "hold.created",
		Subject: holdID,
		Body:    reason,
		Fields:  map[string]any{"agent_id": agentID, "severity": string(severity)},
	})
	return &req
}

func fingerprint(agentID, frame, tool string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := agentID + "|" + frame + "|" + tool
	for _, k := range keys {
		s += "|" + k + "=" + fmt.Sprintf("%v", args[k])
	}
	return s
}

func (m *Manager) lookup(holdID string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holds[holdID]
}

// Approve performs the pending -> approved compare-and-set. Returns nil if
// the hold does not exist or is no longer pending.
func (m *Manager) Approve(holdID, approver, reason string, modifiedFrame string, modifiedArgs map[string]any) *Decision {
	return m.transition(holdID, StateApproved, approver, reason, modifiedFrame, modifiedArgs)
}

// Reject performs the pending -> rejected compare-and-set. Returns nil if
// the hold does not exist or is no longer pending.
func (m *Manager) Reject(holdID, decider, reason string) *Decision {
	return m.transition(holdID, StateRejected, decider, reason, "", nil)
}

func (m *Manager) transition(holdID string, to State, deciderID, reason, modifiedFrame string, modifiedArgs map[string]any) *Decision {
	e := m.lookup(holdID)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.request.State != StatePending {
		return nil // at-most-once: already terminal
	}
	e.request.State = to
	dec := &Decision{
		HoldID:        holdID,
		DeciderID:     deciderID,
		At:            m.clock(),
		Reason:        reason,
		ModifiedFrame: modifiedFrame,
		ModifiedArgs:  modifiedArgs,
	}
	e.decision = dec

	m.auditLog.Record(audit.Event{
		EventType:  "hold." + string(to),
		AgentID:    e.request.AgentID,
		OperatorID: deciderID,
		Details:    map[string]any{"hold_id": holdID, "reason": reason},
	})
	return dec
}

// Sweep moves every pending hold whose ExpiresAt is before now to expired,
// emitting an audit event per expiry. Idempotent: holds already expired or
// otherwise terminal are untouched.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.RLock()
	holds := make([]*entry, 0, len(m.holds))
	for _, e := range m.holds {
		holds = append(holds, e)
	}
	m.mu.RUnlock()

	expired := 0
	for _, e := range holds {
		e.mu.Lock()
		if e.request.State == StatePending && !e.request.ExpiresAt.IsZero() && e.request.ExpiresAt.Before(now) {
			e.request.State = StateExpired
			e.decision = &Decision{HoldID: e.request.HoldID, DeciderID: "system", At: now, Reason: "expired"}
			holdID := e.request.HoldID
			agentID := e.request.AgentID
			e.mu.Unlock()
			expired++
			m.auditLog.Record(audit.Event{
				EventType: "hold.expired",
				AgentID:   agentID,
				Details:   map[string]any{"hold_id": holdID},
			})
			continue
		}
		e.mu.Unlock()
	}
	return expired
}

// Get retrieves a hold by id, or nil if it does not exist.
func (m *Manager) Get(holdID string) *Request {
	e := m.lookup(holdID)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	req := e.request
	return &req
}

// ListPending returns every pending hold, optionally filtered by agent.
func (m *Manager) ListPending(agentID string) []Request {
	return m.List(Filter{AgentID: agentID, State: StatePending})
}

// List returns every hold matching f, ordered by HoldID for determinism.
func (m *Manager) List(f Filter) []Request {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var holdIDs []string
	if f.AgentID != "" {
		holdIDs = m.byAgent[f.AgentID]
	} else {
		for id := range m.holds {
			holdIDs = append(holdIDs, id)
		}
	}

	out := make([]Request, 0, len(holdIDs))
	for _, id := range holdIDs {
		e := m.holds[id]
		if e == nil {
			continue
		}
		e.mu.Lock()
		req := e.request
		e.mu.Unlock()
		if f.State != "" && req.State != f.State {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldID < out[j].HoldID })
	return out
}

// Stats summarizes the current queue.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.holds))
	for _, e := range m.holds {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var s Stats
	for _, e := range entries {
		e.mu.Lock()
		switch e.request.State {
		case StatePending:
			s.Pending++
		case StateApproved:
			s.Approved++
		case StateRejected:
			s.Rejected++
		case StateExpired:
			s.Expired++
		}
		e.mu.Unlock()
	}
	return s
}

// DecisionFor returns the terminal decision recorded for a hold, or nil if the
// hold is still pending or does not exist.
func (m *Manager) DecisionFor(holdID string) *Decision {
	e := m.lookup(holdID)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decision
}
