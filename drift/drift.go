// Package drift implements the Drift Engine (component D): a per-agent
// sliding-window drift score, alert thresholds, and the three-state circuit
// breaker that halts runaway agents. The breaker state machine follows the
// same closed/open/half-open shape as
// infrastructure/resilience.CircuitBreaker in the r3e-network-service_layer
// reference: failures accumulate toward a trip threshold, an open breaker
// cools down on wall-clock time, and a half-open breaker closes on the
// first success or reopens on any failure.
package drift

import (
	"sync"
	"time"

	"github.com/agentgov/gatekeeper/audit"
	"github.com/agentgov/gatekeeper/frame"
	"github.com/agentgov/gatekeeper/gwerrors"
	"github.com/agentgov/gatekeeper/ontology"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half-open"
)

// Weights configures the relative contribution of each drift signal. The
// four weights must sum to 1.
type Weights struct {
	ModeDeviation     float64
	DomainChange      float64
	ConstraintRemoval float64
	FailureRate       float64
}

// DefaultWeights returns a balanced default weighting.
func DefaultWeights() Weights {
	return Weights{ModeDeviation: 0.30, DomainChange: 0.20, ConstraintRemoval: 0.25, FailureRate: 0.25}
}

// Config configures threshold and window behavior (spec §6 configuration
// table).
type Config struct {
	WarningThreshold          float64
	CriticalThreshold         float64
	WindowSize                int
	Cooldown                  time.Duration
	ConsecutiveFailureCeiling int
	Weights                   Weights
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		WarningThreshold:          0.15,
		CriticalThreshold:         0.30,
		WindowSize:                100,
		Cooldown:                  30 * time.Second,
		ConsecutiveFailureCeiling: 3,
		Weights:                   DefaultWeights(),
	}
}

// OperationRecord is one sliding-window entry.
type OperationRecord struct {
	Frame     *frame.ParsedFrame
	Action    string
	Success   bool
	Timestamp time.Time
}

// AlertRecord is returned from RecordOperation when a threshold was crossed
// on that record.
type AlertRecord struct {
	AgentID string
	Level   string // "warning" or "critical"
	Score   float64
	At      time.Time
}

// State is a read-only snapshot of an agent's drift state (spec §3
// AgentDriftState).
type State struct {
	AgentID              string
	Window               []OperationRecord
	DriftScore           float64
	CircuitBreakerState  BreakerState
	ConsecutiveFailures  int
	Baseline             *frame.ParsedFrame
	LastTransition       time.Time
}

type agentState struct {
	mu                  sync.Mutex
	window              []OperationRecord
	driftScore          float64
	breaker             BreakerState
	consecutiveFailures int
	baseline            *frame.ParsedFrame
	lastTransition       time.Time
	warnAlerted          bool
}

// Engine is the drift tracker shared across all agents. One Engine per
// gateway process; per-agent state is guarded by its own mutex so
// concurrent agents never contend on a single lock (spec §5 "fine-grained
// lock" per agent).
type Engine struct {
	registry *ontology.Registry
	cfg      Config
	auditLog audit.Recorder
	clock    func() time.Time

	mu     sync.RWMutex
	agents map[string]*agentState
}

// NewEngine builds a drift Engine. cfg.Weights must sum to 1 (within a
// small epsilon) or NewEngine returns a KindConfiguration error, matching
// the spec §7 rule that configuration mistakes are the one taxonomy member
// allowed to surface as a Go error.
func NewEngine(reg *ontology.Registry, cfg Config, rec audit.Recorder) (*Engine, error) {
	sum := cfg.Weights.ModeDeviation + cfg.Weights.DomainChange + cfg.Weights.ConstraintRemoval + cfg.Weights.FailureRate
	if sum < 0.999 || sum > 1.001 {
		return nil, gwerrors.Configurationf("drift weights must sum to 1, got %f", sum)
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultConfig().WindowSize
	}
	if rec == nil {
		rec = audit.NewNoopRecorder()
	}
	return &Engine{
		registry: reg,
		cfg:      cfg,
		auditLog: rec,
		clock:    time.Now,
		agents:   make(map[string]*agentState),
	}, nil
}

// WithClock overrides the engine's time source; used in tests to simulate
// cooldown elapsing without sleeping.
func (e *Engine) WithClock(clock func() time.Time) {
	e.clock = clock
}

func (e *Engine) entry(agentID string) *agentState {
	e.mu.RLock()
	a, ok := e.agents[agentID]
	e.mu.RUnlock()
	if ok {
		return a
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if a, ok = e.agents[agentID]; ok {
		return a
	}
	a = &agentState{breaker: StateClosed, lastTransition: e.clock()}
	e.agents[agentID] = a
	return a
}

// RecordOperation appends an operation outcome to the agent's sliding
// window (FIFO eviction at cfg.WindowSize), recomputes the drift score,
// updates the circuit breaker, and returns an alert: a warning alert when
// the score first reaches the warning threshold (re-armed once it falls
// back below), a critical alert on every record whose score is at or above
// the critical threshold, and a critical alert when the consecutive-failure
// ceiling opens the breaker.
func (e *Engine) RecordOperation(agentID string, pf *frame.ParsedFrame, action string, success bool) *AlertRecord {
	a := e.entry(agentID)
	a.mu.Lock()
	defer a.mu.Unlock()

	now := e.clock()
	if a.baseline == nil {
		a.baseline = pf
	}
	a.window = append(a.window, OperationRecord{Frame: pf, Action: action, Success: success, Timestamp: now})
	if len(a.window) > e.cfg.WindowSize {
		a.window = a.window[len(a.window)-e.cfg.WindowSize:]
	}

	if success {
		a.consecutiveFailures = 0
	} else {
		a.consecutiveFailures++
	}

	a.driftScore = e.computeScore(a, pf)

	var alert *AlertRecord
	if a.driftScore >= e.cfg.CriticalThreshold {
		if a.breaker != StateOpen {
			e.transition(a, StateOpen, agentID, "drift score reached critical threshold")
		}
		alert = &AlertRecord{AgentID: agentID, Level: "critical", Score: a.driftScore, At: now}
		a.warnAlerted = true
	} else if a.driftScore >= e.cfg.WarningThreshold {
		if !a.warnAlerted {
			alert = &AlertRecord{AgentID: agentID, Level: "warning", Score: a.driftScore, At: now}
			a.warnAlerted = true
		}
	} else {
		a.warnAlerted = false
	}

	if a.consecutiveFailures >= e.cfg.ConsecutiveFailureCeiling && a.breaker != StateOpen {
		e.transition(a, StateOpen, agentID, "consecutive failure ceiling reached")
		if alert == nil {
			alert = &AlertRecord{AgentID: agentID, Level: "critical", Score: a.driftScore, At: now}
		}
	}

	// Half-open resolution: the operation that was let through decides
	// whether the breaker closes or reopens.
	if a.breaker == StateHalfOpen {
		if success {
			e.transition(a, StateClosed, agentID, "half-open probe succeeded")
		} else {
			e.transition(a, StateOpen, agentID, "half-open probe failed")
		}
	}

	return alert
}

// computeScore recomputes the weighted drift score for the latest
// operation against the agent's baseline (spec §4.D).
func (e *Engine) computeScore(a *agentState, current *frame.ParsedFrame) float64 {
	modeDev := e.modeDeviation(a.baseline, current)
	domainChange := e.domainChange(a.baseline, current)
	constraintRemoval := e.constraintRemoval(a.baseline, current)
	failureRate := e.failureRate(a.window)

	score := e.cfg.Weights.ModeDeviation*modeDev +
		e.cfg.Weights.DomainChange*domainChange +
		e.cfg.Weights.ConstraintRemoval*constraintRemoval +
		e.cfg.Weights.FailureRate*failureRate
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (e *Engine) modeDeviation(baseline, current *frame.ParsedFrame) float64 {
	maxStrength := e.registry.MaxModeStrength()
	if maxStrength <= 1 {
		return 0
	}
	baseStrength, ok1 := baseline.ModeStrength(e.registry)
	curStrength, ok2 := current.ModeStrength(e.registry)
	if !ok1 || !ok2 {
		return 0
	}
	diff := curStrength - baseStrength
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(maxStrength-1)
}

func (e *Engine) domainChange(baseline, current *frame.ParsedFrame) float64 {
	if baseline.Domain.Present != current.Domain.Present {
		return 1
	}
	if baseline.Domain.Present && baseline.Domain.Codepoint != current.Domain.Codepoint {
		return 1
	}
	return 0
}

func (e *Engine) constraintRemoval(baseline, current *frame.ParsedFrame) float64 {
	if len(baseline.Constraints) == 0 {
		return 0
	}
	removed := 0
	inheritsDropped := false
	for _, bc := range baseline.Constraints {
		if !current.HasConstraint(bc.Codepoint) {
			removed++
			if e.registry.Inherits(bc.Codepoint) {
				inheritsDropped = true
			}
		}
	}
	if inheritsDropped && removed == 0 {
		removed = 1
	}
	return float64(removed) / float64(len(baseline.Constraints))
}

func (e *Engine) failureRate(window []OperationRecord) float64 {
	if len(window) == 0 {
		return 0
	}
	failures := 0
	for _, rec := range window {
		if !rec.Success {
			failures++
		}
	}
	return float64(failures) / float64(len(window))
}

// transition performs a breaker state change and records an audit event.
// Callers must hold a.mu.
func (e *Engine) transition(a *agentState, to BreakerState, agentID, reason string) {
	if a.breaker == to {
		return
	}
	from := a.breaker
	a.breaker = to
	a.lastTransition = e.clock()
	e.auditLog.Record(audit.Event{
		EventType: "drift.circuit_breaker.transition",
		AgentID:   agentID,
		Details: map[string]any{
			"from":   string(from),
			"to":     string(to),
			"reason": reason,
		},
	})
}

// GetStatus returns a snapshot of the agent's drift state. This is also
// where the open-to-half-open transition is lazily evaluated: if the
// breaker has been open longer than the configured cooldown, this call
// moves it to half-open before returning the snapshot (spec §4.D: "no
// timer thread required").
func (e *Engine) GetStatus(agentID string) *State {
	e.mu.RLock()
	a, ok := e.agents[agentID]
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.breaker == StateOpen && e.clock().Sub(a.lastTransition) > e.cfg.Cooldown {
		e.transition(a, StateHalfOpen, agentID, "cooldown elapsed")
	}

	return &State{
		AgentID:             agentID,
		Window:              append([]OperationRecord(nil), a.window...),
		DriftScore:          a.driftScore,
		CircuitBreakerState: a.breaker,
		ConsecutiveFailures: a.consecutiveFailures,
		Baseline:            a.baseline,
		LastTransition:      a.lastTransition,
	}
}

// HaltAgent forcibly opens the circuit breaker and records an audit event,
// regardless of the agent's current drift score.
func (e *Engine) HaltAgent(agentID, reason string) {
	a := e.entry(agentID)
	a.mu.Lock()
	defer a.mu.Unlock()
	e.transition(a, StateOpen, agentID, "halted: "+reason)
}
