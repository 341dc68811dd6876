package validate

import (
	"github.com/agentgov/gatekeeper/frame"
	"github.com/agentgov/gatekeeper/ontology"
)

// Validator applies the structural, semantic, and chain tiers in order and
// compiles a Report.
type Validator struct {
	registry *ontology.Registry
}

// NewValidator builds a Validator bound to the given registry.
func NewValidator(reg *ontology.Registry) *Validator {
	return &Validator{registry: reg}
}

// Validate runs all three tiers against child, using parent for the chain
// tier when present. child must be a successfully parsed frame — callers
// holding a failed parse should use validate.ParseFailedReport() directly
// instead of calling Validate (spec §4.C: "an unparseable child
// short-circuits all later rules with a single PARSE_FAILED error").
//
// parent may be nil or empty; either skips the chain tier entirely (spec
// §4.C edge case).
func (v *Validator) Validate(child, parent *frame.ParsedFrame) *Report {
	report := &Report{}

	for _, rule := range structuralRules() {
		for _, f := range rule(child) {
			report.add(f)
		}
	}
	for _, rule := range semanticRules() {
		for _, f := range rule(child) {
			report.add(f)
		}
	}
	if parent != nil && !parent.Empty() {
		for _, rule := range chainRules() {
			for _, f := range rule(child, parent, v.registry) {
				report.add(f)
			}
		}
	}
	return report
}
