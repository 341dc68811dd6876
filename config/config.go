// Package config loads the gateway's runtime configuration. Thresholds,
// timeouts, and TTLs (spec §6 configuration table) come from a YAML file;
// an optional ontology catalog overlay comes from a separate TOML file, fed
// into ontology.New after the built-in DefaultCatalog so an operator can
// extend or override individual symbols without recompiling.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentgov/gatekeeper/gwerrors"
)

// Gateway is the full set of options recognized by the core (spec §6).
type Gateway struct {
	DriftWarningThreshold       float64       `yaml:"driftWarningThreshold"`
	DriftCriticalThreshold      float64       `yaml:"driftCriticalThreshold"`
	DriftWindowSize             int           `yaml:"driftWindowSize"`
	CircuitCooldownMs           int           `yaml:"circuitCooldownMs"`
	ConsecutiveFailureCeiling   int           `yaml:"consecutiveFailureCeiling"`
	HoldTimeoutMs               int           `yaml:"holdTimeoutMs"`
	HoldOnDriftPrediction       bool          `yaml:"holdOnDriftPrediction"`
	HoldOnForbiddenWithOverride bool          `yaml:"holdOnForbiddenWithOverride"`
	StrictDelegationDefault     string        `yaml:"strictDelegationDefault"`
	MaxDelegationDepth          int           `yaml:"maxDelegationDepth"`
	ProposalDefaultTtlMs        int           `yaml:"proposalDefaultTtlMs"`
}

// Default returns the spec's documented defaults.
func Default() Gateway {
	return Gateway{
		DriftWarningThreshold:       0.15,
		DriftCriticalThreshold:      0.30,
		DriftWindowSize:             100,
		CircuitCooldownMs:           30000,
		ConsecutiveFailureCeiling:   3,
		HoldTimeoutMs:               int((24 * time.Hour).Milliseconds()),
		HoldOnDriftPrediction:       true,
		HoldOnForbiddenWithOverride: true,
		StrictDelegationDefault:     "strict",
		MaxDelegationDepth:          3,
		ProposalDefaultTtlMs:        int((24 * time.Hour).Milliseconds()),
	}
}

// Load reads and parses a YAML gateway configuration file, filling any
// field the file omits with Default()'s value.
func Load(path string) (Gateway, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Gateway{}, gwerrors.NewWithCause(gwerrors.KindConfiguration, fmt.Sprintf("read gateway config %s", path), err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Gateway{}, gwerrors.NewWithCause(gwerrors.KindConfiguration, fmt.Sprintf("parse gateway config %s", path), err)
	}
	if err := cfg.Validate(); err != nil {
		return Gateway{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the system assumes (weights
// summing to 1 is checked separately by drift.NewEngine, since weights are
// not part of this table).
func (g Gateway) Validate() error {
	if g.DriftWarningThreshold < 0 || g.DriftWarningThreshold > 1 {
		return gwerrors.Configurationf("driftWarningThreshold must be in [0,1], got %f", g.DriftWarningThreshold)
	}
	if g.DriftCriticalThreshold < 0 || g.DriftCriticalThreshold > 1 {
		return gwerrors.Configurationf("driftCriticalThreshold must be in [0,1], got %f", g.DriftCriticalThreshold)
	}
	if g.DriftCriticalThreshold < g.DriftWarningThreshold {
		return gwerrors.Configurationf("driftCriticalThreshold (%f) must be >= driftWarningThreshold (%f)", g.DriftCriticalThreshold, g.DriftWarningThreshold)
	}
	if g.DriftWindowSize <= 0 {
		return gwerrors.Configurationf("driftWindowSize must be positive, got %d", g.DriftWindowSize)
	}
	if g.MaxDelegationDepth <= 0 {
		return gwerrors.Configurationf("maxDelegationDepth must be positive, got %d", g.MaxDelegationDepth)
	}
	return nil
}

// Cooldown returns CircuitCooldownMs as a time.Duration.
func (g Gateway) Cooldown() time.Duration {
	return time.Duration(g.CircuitCooldownMs) * time.Millisecond
}

// HoldTimeout returns HoldTimeoutMs as a time.Duration.
func (g Gateway) HoldTimeout() time.Duration {
	return time.Duration(g.HoldTimeoutMs) * time.Millisecond
}

// ProposalDefaultTTL returns ProposalDefaultTtlMs as a time.Duration.
func (g Gateway) ProposalDefaultTTL() time.Duration {
	return time.Duration(g.ProposalDefaultTtlMs) * time.Millisecond
}
