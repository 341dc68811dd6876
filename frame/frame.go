// Package frame implements the Frame Resolver (component B): tokenizing a
// raw frame string into a structured ParsedFrame, with parse-confidence
// scoring and a canonical-order serializer for round-tripping.
package frame

import "github.com/agentgov/gatekeeper/ontology"

// SymbolRef is an explicit optional-symbol slot. Using Present instead of a
// sentinel null rune keeps CH-rule predicates and comparisons total — see
// SPEC_FULL.md's design notes on option types.
type SymbolRef struct {
	Present    bool
	Codepoint  rune
	Attributes ontology.Attributes
}

// ParsedFrame is the structured form of a frame string (spec §3).
type ParsedFrame struct {
	Mode   SymbolRef
	Domain SymbolRef
	Source SymbolRef
	Action SymbolRef
	Entity SymbolRef

	// Constraints and Modifiers preserve encounter order from the raw
	// string; canonical order only governs re-serialization (ToString).
	Constraints []SymbolRef
	Modifiers   []SymbolRef

	// Symbols lists every recognized symbol in original input order,
	// regardless of slot.
	Symbols []SymbolRef

	ParseConfidence  float64
	UnparsedSegments []string
}

// Empty reports whether the frame carries no recognized symbols at all —
// the data-model invariant "if any symbol is non-empty the frame is
// non-empty" is the contrapositive of this check.
func (p *ParsedFrame) Empty() bool {
	return p == nil || len(p.Symbols) == 0
}

// ModeStrength returns the mode's strength, or 0 and false if no mode is
// present.
func (p *ParsedFrame) ModeStrength(reg *ontology.Registry) (int, bool) {
	if p == nil || !p.Mode.Present {
		return 0, false
	}
	return reg.Strength(p.Mode.Codepoint)
}

// HasConstraint reports whether the frame carries a constraint with the
// given codepoint.
func (p *ParsedFrame) HasConstraint(cp rune) bool {
	if p == nil {
		return false
	}
	for _, c := range p.Constraints {
		if c.Present && c.Codepoint == cp {
			return true
		}
	}
	return false
}

// Clone returns a deep-enough copy safe to mutate independently (used by
// Resolve when applying an overlay).
func (p *ParsedFrame) Clone() *ParsedFrame {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Constraints = append([]SymbolRef(nil), p.Constraints...)
	clone.Modifiers = append([]SymbolRef(nil), p.Modifiers...)
	clone.Symbols = append([]SymbolRef(nil), p.Symbols...)
	clone.UnparsedSegments = append([]string(nil), p.UnparsedSegments...)
	return &clone
}
