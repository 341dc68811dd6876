package validate

import (
	"fmt"

	"github.com/agentgov/gatekeeper/frame"
)

// structuralRules returns the SR tier in the fixed order the report is
// compiled in.
func structuralRules() []func(*frame.ParsedFrame) []Finding {
	return []func(*frame.ParsedFrame) []Finding{
		sr001AllSymbolsRecognized,
		sr002ModeFirst,
		sr003AtMostOneMode,
		sr004NonEmpty,
		sr005DomainSourceDistinct,
		sr006ActionUnique,
	}
}

// SR-001: every character in the raw frame must classify to a known symbol.
func sr001AllSymbolsRecognized(pf *frame.ParsedFrame) []Finding {
	if len(pf.UnparsedSegments) == 0 {
		return nil
	}
	return []Finding{{
		RuleID:   "SR-001",
		Severity: SeverityError,
		Message:  fmt.Sprintf("unrecognized segments in frame: %v", pf.UnparsedSegments),
	}}
}

// SR-002: mode, if present, must be the first symbol in input order.
func sr002ModeFirst(pf *frame.ParsedFrame) []Finding {
	if !pf.Mode.Present || len(pf.Symbols) == 0 {
		return nil
	}
	if pf.Symbols[0].Codepoint != pf.Mode.Codepoint {
		return []Finding{{
			RuleID:   "SR-002",
			Severity: SeverityError,
			Message:  "mode symbol must appear first in the frame",
			Symbol:   &pf.Mode,
		}}
	}
	return nil
}

// SR-003: at most one mode. The resolver already enforces this by failing
// to parse a frame with two mode symbols, so this rule is a defense-in-depth
// check over an already-parsed frame (e.g. one built programmatically
// rather than via Resolver.Parse). It counts repeats of the frame's recorded
// mode codepoint in Symbols; a second, different mode symbol is not detected.
func sr003AtMostOneMode(pf *frame.ParsedFrame) []Finding {
	count := 0
	for _, s := range pf.Symbols {
		if pf.Mode.Present && s.Codepoint == pf.Mode.Codepoint {
			count++
		}
	}
	if count > 1 {
		return []Finding{{RuleID: "SR-003", Severity: SeverityError, Message: "more than one mode symbol present"}}
	}
	return nil
}

// SR-004: the frame must be non-empty.
func sr004NonEmpty(pf *frame.ParsedFrame) []Finding {
	if pf.Empty() {
		return []Finding{{RuleID: "SR-004", Severity: SeverityError, Message: "frame carries no recognized symbols"}}
	}
	return nil
}

// SR-005 (domain-slot extension): domain and source, when both present,
// must be distinct symbols — a domain cannot be its own source.
func sr005DomainSourceDistinct(pf *frame.ParsedFrame) []Finding {
	if pf.Domain.Present && pf.Source.Present && pf.Domain.Codepoint == pf.Source.Codepoint {
		return []Finding{{RuleID: "SR-005", Severity: SeverityError, Message: "domain and source must not be the same symbol"}}
	}
	return nil
}

// SR-006 (action-slot extension): at most one action. Like SR-003, this is
// defense-in-depth over the resolver's own uniqueness guarantee, and it
// likewise counts only repeats of the recorded action codepoint.
func sr006ActionUnique(pf *frame.ParsedFrame) []Finding {
	count := 0
	for _, s := range pf.Symbols {
		if pf.Action.Present && s.Codepoint == pf.Action.Codepoint {
			count++
		}
	}
	if count > 1 {
		return []Finding{{RuleID: "SR-006", Severity: SeverityError, Message: "more than one action symbol present"}}
	}
	return nil
}
