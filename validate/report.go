// Package validate implements the Three-Tier Validator (component C):
// structural, semantic, and chain rules expressed as pure functions with
// stable rule ids, producing an ordered ValidationReport.
package validate

import "github.com/agentgov/gatekeeper/frame"

// Severity classifies a Finding.
type Severity string

const (
	SeverityError        Severity = "error"
	SeverityWarning      Severity = "warning"
	SeverityInfo         Severity = "info"
	SeverityHold         Severity = "hold"
	SeverityUnverifiable Severity = "unverifiable"
	SeverityPass         Severity = "pass"
)

// Finding is a single rule result, carrying a stable rule id (SR-###,
// SM-###, CH-###, or the synthetic PARSE_FAILED), a message, a severity,
// and optionally the offending symbol.
type Finding struct {
	RuleID   string
	Message  string
	Severity Severity
	Symbol   *frame.SymbolRef
}

// Report is the disjoint ordered errors/warnings produced by a validation
// run. Valid is true iff Errors is empty.
type Report struct {
	Errors   []Finding
	Warnings []Finding
}

// Valid reports whether the frame passed validation (no error-severity
// findings).
func (r *Report) Valid() bool {
	return r == nil || len(r.Errors) == 0
}

// add files a finding into Errors or Warnings by its severity. Findings of
// severity Info, Hold, Unverifiable, or Pass are recorded as warnings —
// they never block, but they remain visible to the caller (e.g. the
// Gatekeeper's hold-policy check inspects Warnings for a Hold-severity
// entry).
func (r *Report) add(f Finding) {
	if f.Severity == SeverityError {
		r.Errors = append(r.Errors, f)
		return
	}
	r.Warnings = append(r.Warnings, f)
}

// HasRuleID reports whether any finding (error or warning) carries the
// given rule id.
func (r *Report) HasRuleID(id string) bool {
	for _, f := range r.Errors {
		if f.RuleID == id {
			return true
		}
	}
	for _, f := range r.Warnings {
		if f.RuleID == id {
			return true
		}
	}
	return false
}

// OnlyErrorsAre reports whether every error-severity finding carries one of
// the given rule ids. Used by the Gatekeeper's soft-block exemption for
// SM-006 (spec §4.F step 3).
func (r *Report) OnlyErrorsAre(ids ...string) bool {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	for _, f := range r.Errors {
		if _, ok := allowed[f.RuleID]; !ok {
			return false
		}
	}
	return true
}

// PARSE_FAILED is the synthetic rule id used when the child frame could not
// be parsed at all; it short-circuits every later tier.
const RuleParseFailed = "PARSE_FAILED"

// ParseFailedReport builds the single-error report for an unparseable
// child frame.
func ParseFailedReport() *Report {
	r := &Report{}
	r.add(Finding{RuleID: RuleParseFailed, Message: "frame could not be parsed", Severity: SeverityError})
	return r
}
