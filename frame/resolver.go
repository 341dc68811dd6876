package frame

import (
	"strings"

	"github.com/agentgov/gatekeeper/ontology"
)

// Resolver tokenizes frame strings against a Registry and reconstructs
// canonical frame strings from ParsedFrame values.
type Resolver struct {
	registry *ontology.Registry
}

// NewResolver builds a Resolver bound to the given registry. Resolvers hold
// no mutable state and are safe for concurrent use.
func NewResolver(reg *ontology.Registry) *Resolver {
	return &Resolver{registry: reg}
}

// Overlay carries per-call attribute overrides applied during Resolve. An
// overlay can rename or re-describe a symbol for this call only; it can
// never change a symbol's identity (codepoint/category), and it never
// mutates the underlying registry.
type Overlay map[rune]ontology.Attributes

// Parse scans raw codepoint by codepoint in order, classifying each against
// the registry. Parse is total: it never raises. It returns (nil, false)
// only when the raw string is irreducibly ambiguous — two symbols compete
// for the same singular slot (mode, action, entity, or a third domain-
// category symbol once domain and source are both filled). Higher layers
// treat a nil result as a structural PARSE_FAILED error.
//
// Domain-category symbols fill two adjacent canonical slots: the first
// occurrence becomes Domain (the target domain), the second becomes Source
// (the domain the request originates from). A third domain-category
// symbol is ambiguous and fails the parse.
func (r *Resolver) Parse(raw string) (*ParsedFrame, bool) {
	pf := &ParsedFrame{}
	runes := []rune(raw)
	var unparsedRun []rune

	flushUnparsed := func() {
		if len(unparsedRun) > 0 {
			pf.UnparsedSegments = append(pf.UnparsedSegments, string(unparsedRun))
			unparsedRun = nil
		}
	}

	recognized := 0
	for _, cp := range runes {
		sym, ok := r.registry.Lookup(cp)
		if !ok {
			unparsedRun = append(unparsedRun, cp)
			continue
		}
		flushUnparsed()
		ref := SymbolRef{Present: true, Codepoint: cp, Attributes: sym.Attributes}

		switch sym.Category {
		case ontology.CategoryMode:
			if pf.Mode.Present {
				return nil, false
			}
			pf.Mode = ref
		case ontology.CategoryDomain:
			switch {
			case !pf.Domain.Present:
				pf.Domain = ref
			case !pf.Source.Present:
				pf.Source = ref
			default:
				return nil, false
			}
		case ontology.CategoryAction:
			if pf.Action.Present {
				return nil, false
			}
			pf.Action = ref
		case ontology.CategoryEntity:
			if pf.Entity.Present {
				return nil, false
			}
			pf.Entity = ref
		case ontology.CategoryConstraint:
			pf.Constraints = append(pf.Constraints, ref)
		case ontology.CategoryModifier:
			pf.Modifiers = append(pf.Modifiers, ref)
		}
		pf.Symbols = append(pf.Symbols, ref)
		recognized++
	}
	flushUnparsed()

	pf.ParseConfidence = confidence(recognized, len(runes))
	return pf, true
}

// confidence computes (recognized / total) clamped to [0,1]. An empty raw
// string has no unresolved characters, so it is treated as fully confident
// (the frame is simply empty, not ambiguous).
func confidence(recognized, total int) float64 {
	if total == 0 {
		return 1.0
	}
	c := float64(recognized) / float64(total)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Resolve applies an optional overlay to a parsed frame, producing a new
// ParsedFrame whose SymbolRef.Attributes reflect overlay overrides. The
// input frame and the registry are left untouched; a nil overlay returns an
// equivalent clone with base-registry attributes already attached by Parse.
func (r *Resolver) Resolve(pf *ParsedFrame, overlay Overlay) *ParsedFrame {
	if pf == nil {
		return nil
	}
	out := pf.Clone()
	if len(overlay) == 0 {
		return out
	}
	apply := func(ref *SymbolRef) {
		if !ref.Present {
			return
		}
		if attrs, ok := overlay[ref.Codepoint]; ok {
			ref.Attributes = mergeAttributes(ref.Attributes, attrs)
		}
	}
	apply(&out.Mode)
	apply(&out.Domain)
	apply(&out.Source)
	apply(&out.Action)
	apply(&out.Entity)
	for i := range out.Constraints {
		apply(&out.Constraints[i])
	}
	for i := range out.Modifiers {
		apply(&out.Modifiers[i])
	}
	for i := range out.Symbols {
		apply(&out.Symbols[i])
	}
	return out
}

// mergeAttributes overlays non-zero-value fields from override onto base,
// preserving identity-bearing fields the overlay never carries (Strength,
// Inherits, Level remain overridable since they are legitimate per-call
// attribute tweaks, not identity).
func mergeAttributes(base, override ontology.Attributes) ontology.Attributes {
	merged := base
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Description != "" {
		merged.Description = override.Description
	}
	if override.Strength != 0 {
		merged.Strength = override.Strength
	}
	if override.Level != 0 {
		merged.Level = override.Level
	}
	merged.Inherits = merged.Inherits || override.Inherits
	return merged
}

// ToString reconstructs a frame's raw form in canonical order: mode,
// modifiers*, domain, source?, constraints*, action?, entity?. Unparsed
// segments are dropped — ToString only reconstructs recognized symbols,
// which is why Parse(ToString(p)) round-trips to ParseConfidence 1.0 even
// when p itself carried unparsed junk.
func (r *Resolver) ToString(pf *ParsedFrame) string {
	if pf == nil {
		return ""
	}
	var b strings.Builder
	writeRef := func(ref SymbolRef) {
		if ref.Present {
			b.WriteRune(ref.Codepoint)
		}
	}
	writeRef(pf.Mode)
	for _, m := range pf.Modifiers {
		writeRef(m)
	}
	writeRef(pf.Domain)
	writeRef(pf.Source)
	for _, c := range pf.Constraints {
		writeRef(c)
	}
	writeRef(pf.Action)
	writeRef(pf.Entity)
	return b.String()
}
