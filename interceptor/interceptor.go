// Package interceptor implements the Gatekeeper (component F): the
// synchronous decision entry point applied to every operation an agent
// wishes to perform. It composes the ontology, frame resolver, validator,
// drift engine, hold manager, and agent registry into a single
// allow/hold/block decision, following the teacher's telemetry-wrapped
// synchronous-call shape (span per call, structured log on every branch,
// counters per outcome).
package interceptor

import (
	"context"
	"time"

	"github.com/agentgov/gatekeeper/agentregistry"
	"github.com/agentgov/gatekeeper/audit"
	"github.com/agentgov/gatekeeper/drift"
	"github.com/agentgov/gatekeeper/frame"
	"github.com/agentgov/gatekeeper/hold"
	"github.com/agentgov/gatekeeper/telemetry"
	"github.com/agentgov/gatekeeper/validate"
)

// Action is the gatekeeper's decision.
type Action string

const (
	ActionAllow Action = "allow"
	ActionHold  Action = "hold"
	ActionBlock Action = "block"
)

// Request is the information the transport hands the Gatekeeper for a
// single intercepted operation (spec §4.F).
type Request struct {
	AgentID      string
	Frame        string
	ParentFrame  string // empty if the agent has no parent
	InstanceID   string // empty if the caller is not a registered instance
	Tool         string
	Arguments    map[string]any
}

// Decision is the Gatekeeper's immutable output (spec §3 InterceptorDecision).
type Decision struct {
	Action             Action
	Allowed            bool
	Frame              *frame.ParsedFrame
	Tool               string
	Reason             string
	CoverageConfidence float64
	Report             *validate.Report
	HoldID             string
}

// Config configures hold-policy and confidence thresholds (spec §6).
type Config struct {
	HoldOnDriftPrediction      bool
	HoldOnForbiddenWithOverride bool
	HoldTimeout                time.Duration
	MinAllowConfidence         float64
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		HoldOnDriftPrediction:       true,
		HoldOnForbiddenWithOverride: true,
		HoldTimeout:                 time.Hour,
		MinAllowConfidence:          0.5,
	}
}

// Gatekeeper is the decision engine. One Gatekeeper per gateway process.
type Gatekeeper struct {
	cfg       Config
	resolver  *frame.Resolver
	validator *validate.Validator
	drift     *drift.Engine
	holds     *hold.Manager
	registry  *agentregistry.Registry
	auditLog  audit.Recorder
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	tracer    telemetry.Tracer
}

// New builds a Gatekeeper wired to its collaborators. registry may be nil
// if the deployment does not use the Agent Registry's scope/quota layer.
func New(cfg Config, resolver *frame.Resolver, validator *validate.Validator, driftEngine *drift.Engine, holds *hold.Manager, registry *agentregistry.Registry, rec audit.Recorder, logger telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) *Gatekeeper {
	if rec == nil {
		rec = audit.NewNoopRecorder()
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &Gatekeeper{
		cfg: cfg, resolver: resolver, validator: validator,
		drift: driftEngine, holds: holds, registry: registry,
		auditLog: rec, logger: logger, metrics: metrics, tracer: tracer,
	}
}

// Intercept runs the full decision pipeline (spec §4.F steps 1-7).
func (g *Gatekeeper) Intercept(ctx context.Context, req Request) *Decision {
	ctx, span := g.tracer.Start(ctx, "gatekeeper.intercept")
	defer span.End()

	decision := g.decide(ctx, req, false)

	g.metrics.IncCounter("gatekeeper.decisions", 1, "action", string(decision.Action))
	g.logger.Info(ctx, "gatekeeper decision",
		"agent_id", req.AgentID, "action", decision.Action, "reason", decision.Reason)
	return decision
}

func (g *Gatekeeper) decide(ctx context.Context, req Request, dryRun bool) *Decision {
	// Step 1: circuit check.
	if g.drift != nil {
		if status := g.drift.GetStatus(req.AgentID); status != nil && status.CircuitBreakerState == drift.StateOpen {
			return &Decision{Action: ActionBlock, Allowed: false, Tool: req.Tool, Reason: "Circuit breaker is open", CoverageConfidence: 1.0}
		}
	}

	// Step 2: parse & resolve.
	pf, ok := g.resolver.Parse(req.Frame)
	if !ok {
		return &Decision{Action: ActionBlock, Allowed: false, Tool: req.Tool, Reason: "frame could not be parsed", Report: validate.ParseFailedReport(), CoverageConfidence: 0}
	}
	var parentFrame *frame.ParsedFrame
	if req.ParentFrame != "" {
		parentFrame, _ = g.resolver.Parse(req.ParentFrame)
	}

	// Step 3: validate.
	report := g.validator.Validate(pf, parentFrame)
	if !report.Valid() && !report.OnlyErrorsAre("SM-006") {
		return &Decision{Action: ActionBlock, Allowed: false, Frame: pf, Tool: req.Tool, Reason: "validation failed", Report: report, CoverageConfidence: coverageConfidence(pf, report)}
	}

	// Step 4: scope.
	var def agentregistry.Definition
	haveDef := false
	if req.InstanceID != "" && g.registry != nil {
		inst, known := g.registry.Instance(req.InstanceID)
		if !known {
			return &Decision{Action: ActionBlock, Allowed: false, Frame: pf, Tool: req.Tool, Reason: "unknown instance", Report: report, CoverageConfidence: coverageConfidence(pf, report)}
		}
		if !inst.Scope.AllowsTool(req.Tool) {
			return &Decision{Action: ActionBlock, Allowed: false, Frame: pf, Tool: req.Tool, Reason: "tool outside instance scope", Report: report, CoverageConfidence: coverageConfidence(pf, report)}
		}

		// Step 5: quota (rate limit only here; token/timeout/symbol quotas
		// are charged by the transport as it learns actual consumption).
		if d, known := g.registry.Definition(inst.DefinitionID); known {
			def, haveDef = d, true
			res, err := g.registry.CheckQuota(req.InstanceID, def, agentregistry.ResourceRateLimit, 1, timeNow())
			if err == nil && !res.Allowed {
				return &Decision{Action: ActionBlock, Allowed: false, Frame: pf, Tool: req.Tool, Reason: "quota exceeded: " + res.Reason, Report: report, CoverageConfidence: coverageConfidence(pf, report)}
			}
		}
	}

	confidence := coverageConfidence(pf, report)

	// Step 6: hold policy.
	driftScore := 0.0
	if g.drift != nil {
		if status := g.drift.GetStatus(req.AgentID); status != nil {
			driftScore = status.DriftScore
		}
		g.metrics.RecordGauge("gatekeeper.drift_score", driftScore)
	}
	if reason, shouldHold := g.shouldHold(pf, report, driftScore, req.Tool, def, haveDef); shouldHold {
		var holdID string
		if g.holds != nil && !dryRun {
			h := g.holds.Create(req.AgentID, req.Frame, req.Tool, req.Arguments, reason, severityFor(report, driftScore), nil, g.cfg.HoldTimeout)
			holdID = h.HoldID
		}
		return &Decision{Action: ActionHold, Allowed: false, Frame: pf, Tool: req.Tool, Reason: reason, Report: report, CoverageConfidence: confidence, HoldID: holdID}
	}

	// Step 7: allow, unless confidence is too low.
	if confidence < g.cfg.MinAllowConfidence {
		var holdID string
		if g.holds != nil && !dryRun {
			h := g.holds.Create(req.AgentID, req.Frame, req.Tool, req.Arguments, "coverage confidence below threshold", hold.SeverityMedium, nil, g.cfg.HoldTimeout)
			holdID = h.HoldID
		}
		return &Decision{Action: ActionHold, Allowed: false, Frame: pf, Tool: req.Tool, Reason: "coverage confidence below threshold", Report: report, CoverageConfidence: confidence, HoldID: holdID}
	}

	return &Decision{Action: ActionAllow, Allowed: true, Frame: pf, Tool: req.Tool, Reason: "", Report: report, CoverageConfidence: confidence}
}

// shouldHold implements spec §4.F step 6's four hold triggers: a
// hold-severity warning, SM-006 plus an explicit override modifier, drift
// at or above the warning threshold, or an instance definition that
// requires approval for this tool.
func (g *Gatekeeper) shouldHold(pf *frame.ParsedFrame, report *validate.Report, driftScore float64, tool string, def agentregistry.Definition, haveDef bool) (string, bool) {
	if report.HasRuleID("SM-006") && hasOverrideModifier(pf) {
		if g.cfg.HoldOnForbiddenWithOverride {
			return "forbidden constraint combined with execute action and an override modifier", true
		}
	}
	for _, w := range report.Warnings {
		if w.Severity == validate.SeverityHold {
			return w.Message, true
		}
	}
	if g.cfg.HoldOnDriftPrediction && g.drift != nil && driftScore >= drift.DefaultConfig().WarningThreshold {
		return "drift score at or above warning threshold", true
	}
	if haveDef && def.RequiresApprovalFor(tool) {
		return "instance definition requires approval for this tool", true
	}
	return "", false
}

// hasOverrideModifier reports whether pf carries a strict-override or
// flexible-override modifier — the signal that an agent is knowingly
// asking for the forbidden-constraint-plus-execute combination SM-006
// warns about, as opposed to carrying the bare canonical combination with
// no override intent (spec §8 scenario 1).
func hasOverrideModifier(pf *frame.ParsedFrame) bool {
	for _, m := range pf.Modifiers {
		if m.Attributes.Name == "strict-override" || m.Attributes.Name == "flexible-override" {
			return true
		}
	}
	return false
}

func severityFor(report *validate.Report, driftScore float64) hold.Severity {
	switch {
	case driftScore >= drift.DefaultConfig().CriticalThreshold:
		return hold.SeverityCritical
	case driftScore >= drift.DefaultConfig().WarningThreshold:
		return hold.SeverityHigh
	case len(report.Warnings) > 0:
		return hold.SeverityMedium
	default:
		return hold.SeverityLow
	}
}

// coverageConfidence implements spec §4.F: parseConfidence scaled down by
// accumulated error and warning penalties.
func coverageConfidence(pf *frame.ParsedFrame, report *validate.Report) float64 {
	if pf == nil {
		return 0
	}
	errorPenalty := float64(len(report.Errors)) * 0.2
	if errorPenalty > 1 {
		errorPenalty = 1
	}
	warningPenalty := float64(len(report.Warnings)) * 0.1
	if warningPenalty > 1 {
		warningPenalty = 1
	}
	conf := pf.ParseConfidence * (1 - errorPenalty) * (1 - warningPenalty)
	if conf < 0 {
		return 0
	}
	return conf
}

// RecordOutcome forwards a completed operation's outcome to the drift
// engine and audit log (spec §4.F "Post-execution the transport calls
// recordOutcome").
func (g *Gatekeeper) RecordOutcome(agentID string, pf *frame.ParsedFrame, action string, success bool) {
	if g.drift != nil {
		g.drift.RecordOperation(agentID, pf, action, success)
	}
	g.auditLog.Record(audit.Event{
		EventType: "gatekeeper.outcome_recorded",
		AgentID:   agentID,
		Details:   map[string]any{"action": action, "success": success},
	})
}

// Precheck is a read-only dry run of Intercept: it never creates a hold or
// mutates any collaborator's state, and is safe to call speculatively.
func (g *Gatekeeper) Precheck(ctx context.Context, req Request) *Decision {
	return g.decide(ctx, req, true)
}

func timeNow() time.Time { return time.Now() }
