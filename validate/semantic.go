package validate

import "github.com/agentgov/gatekeeper/frame"

func semanticRules() []func(*frame.ParsedFrame) []Finding {
	return []func(*frame.ParsedFrame) []Finding{
		sm001StrictFlexibleExclusive,
		sm002ExploratoryExcludesExecute,
		sm003PriorityExclusive,
		sm006ForbiddenWithExecute,
	}
}

func hasModifier(pf *frame.ParsedFrame, name string) (frame.SymbolRef, bool) {
	for _, m := range pf.Modifiers {
		if m.Attributes.Name == name {
			return m, true
		}
	}
	return frame.SymbolRef{}, false
}

// SM-001: a strict-mode frame may not carry a flexible-override modifier,
// and a flexible-mode frame may not carry a strict-override modifier — the
// mode and its own override modifiers are mutually exclusive even though
// SR-003 already limits the frame to a single mode symbol.
func sm001StrictFlexibleExclusive(pf *frame.ParsedFrame) []Finding {
	if !pf.Mode.Present {
		return nil
	}
	switch pf.Mode.Attributes.Name {
	case "strict":
		if ref, ok := hasModifier(pf, "flexible-override"); ok {
			return []Finding{{RuleID: "SM-001", Severity: SeverityError, Message: "strict mode cannot combine with a flexible-override modifier", Symbol: &ref}}
		}
	case "flexible":
		if ref, ok := hasModifier(pf, "strict-override"); ok {
			return []Finding{{RuleID: "SM-001", Severity: SeverityError, Message: "flexible mode cannot combine with a strict-override modifier", Symbol: &ref}}
		}
	}
	return nil
}

// SM-002: exploratory mode may not combine with an execute action.
func sm002ExploratoryExcludesExecute(pf *frame.ParsedFrame) []Finding {
	if pf.Mode.Present && pf.Mode.Attributes.Name == "exploratory" &&
		pf.Action.Present && pf.Action.Attributes.Name == "execute" {
		return []Finding{{RuleID: "SM-002", Severity: SeverityError, Message: "exploratory mode cannot combine with an execute action", Symbol: &pf.Action}}
	}
	return nil
}

// SM-003: high and low priority modifiers are mutually exclusive.
func sm003PriorityExclusive(pf *frame.ParsedFrame) []Finding {
	_, high := hasModifier(pf, "high-priority")
	_, low := hasModifier(pf, "low-priority")
	if high && low {
		return []Finding{{RuleID: "SM-003", Severity: SeverityError, Message: "high-priority and low-priority modifiers are mutually exclusive"}}
	}
	return nil
}

// SM-006: a forbidden constraint combined with an execute action is a soft
// warning, not a hard error — it never blocks on its own, and the Gatekeeper
// holds on it only when the frame also carries an override modifier (spec
// §4.F step 3).
func sm006ForbiddenWithExecute(pf *frame.ParsedFrame) []Finding {
	if pf.HasConstraint('⛔') && pf.Action.Present && pf.Action.Attributes.Name == "execute" {
		return []Finding{{RuleID: "SM-006", Severity: SeverityWarning, Message: "forbidden constraint present alongside an execute action"}}
	}
	return nil
}
