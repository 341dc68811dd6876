package validate

import (
	"fmt"

	"github.com/agentgov/gatekeeper/frame"
	"github.com/agentgov/gatekeeper/ontology"
)

// chainRules returns the CH tier. Chain rules additionally take the
// registry, since mode strength and entity level comparisons need
// ontology lookups the ParsedFrame doesn't cache for the parent.
func chainRules() []func(child, parent *frame.ParsedFrame, reg *ontology.Registry) []Finding {
	return []func(child, parent *frame.ParsedFrame, reg *ontology.Registry) []Finding{
		ch001ModeStrengthPreservation,
		ch002DomainScope,
		ch003ForbiddenInheritance,
		ch005EntityHierarchy,
		ch006ForbiddenModePreservation,
	}
}

// CH-001: strength(child.mode) <= strength(parent.mode); a child may only
// stay as strict or get stricter, never weaken. Skipped if either side
// lacks a mode (there is nothing to compare).
func ch001ModeStrengthPreservation(child, parent *frame.ParsedFrame, reg *ontology.Registry) []Finding {
	if !child.Mode.Present || !parent.Mode.Present {
		return nil
	}
	childStrength, ok1 := reg.Strength(child.Mode.Codepoint)
	parentStrength, ok2 := reg.Strength(parent.Mode.Codepoint)
	if !ok1 || !ok2 {
		return nil
	}
	if childStrength > parentStrength {
		return []Finding{{
			RuleID:   "CH-001",
			Severity: SeverityError,
			Message:  fmt.Sprintf("child mode %q (strength %d) is weaker than parent mode %q (strength %d)", child.Mode.Attributes.Name, childStrength, parent.Mode.Attributes.Name, parentStrength),
			Symbol:   &child.Mode,
		}}
	}
	return nil
}

// CH-002: if parent and child both declare a domain, mismatch is a warning.
func ch002DomainScope(child, parent *frame.ParsedFrame, reg *ontology.Registry) []Finding {
	if !child.Domain.Present || !parent.Domain.Present {
		return nil
	}
	if child.Domain.Codepoint != parent.Domain.Codepoint {
		return []Finding{{
			RuleID:   "CH-002",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("child domain %q differs from parent domain %q", child.Domain.Attributes.Name, parent.Domain.Attributes.Name),
			Symbol:   &child.Domain,
		}}
	}
	return nil
}

// CH-003: every inherits-flagged constraint on the parent (at minimum the
// forbidden constraint) must also appear on the child.
func ch003ForbiddenInheritance(child, parent *frame.ParsedFrame, reg *ontology.Registry) []Finding {
	var findings []Finding
	for _, pc := range parent.Constraints {
		if !reg.Inherits(pc.Codepoint) {
			continue
		}
		if !child.HasConstraint(pc.Codepoint) {
			sym := pc
			findings = append(findings, Finding{
				RuleID:   "CH-003",
				Severity: SeverityError,
				Message:  fmt.Sprintf("child frame is missing inherited constraint %q from parent", pc.Attributes.Name),
				Symbol:   &sym,
			})
		}
	}
	return findings
}

// CH-005: level(child.entity) >= level(parent.entity) — a parent cannot
// delegate upward in the entity hierarchy.
func ch005EntityHierarchy(child, parent *frame.ParsedFrame, reg *ontology.Registry) []Finding {
	if !child.Entity.Present || !parent.Entity.Present {
		return nil
	}
	childLevel, ok1 := reg.Level(child.Entity.Codepoint)
	parentLevel, ok2 := reg.Level(parent.Entity.Codepoint)
	if !ok1 || !ok2 {
		return nil
	}
	if childLevel < parentLevel {
		return []Finding{{
			RuleID:   "CH-005",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("child entity %q (level %d) is senior to parent entity %q (level %d)", child.Entity.Attributes.Name, childLevel, parent.Entity.Attributes.Name, parentLevel),
			Symbol:   &child.Entity,
		}}
	}
	return nil
}

// CH-006: the forbidden mode propagates exactly like an inherits-flagged
// constraint — if the parent is in forbidden mode, the child must be too.
func ch006ForbiddenModePreservation(child, parent *frame.ParsedFrame, reg *ontology.Registry) []Finding {
	if !parent.Mode.Present || parent.Mode.Attributes.Name != "forbidden" {
		return nil
	}
	if !child.Mode.Present || child.Mode.Attributes.Name != "forbidden" {
		return []Finding{{
			RuleID:   "CH-006",
			Severity: SeverityError,
			Message:  "parent is in forbidden mode but child does not preserve it",
		}}
	}
	return nil
}
