package agentregistry

import (
	"fmt"
	"time"
)

// Status is a lifecycle state in the instance state machine (spec §4.H):
//
//	proposed -> pending_approval -> approved -> spawning -> running <-> paused
//	                                                          |          |
//	                                                      reporting   completed | failed | abandoned -> archived
//
// Every transition is monotonic except running<->paused; completed, failed,
// and abandoned are terminal until archived.
type Status string

const (
	StatusProposed        Status = "proposed"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusSpawning        Status = "spawning"
	StatusRunning         Status = "running"
	StatusPaused          Status = "paused"
	StatusReporting       Status = "reporting"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
	StatusAbandoned       Status = "abandoned"
	StatusArchived        Status = "archived"
)

var transitions = map[Status][]Status{
	StatusProposed:        {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved},
	StatusApproved:        {StatusSpawning},
	StatusSpawning:        {StatusRunning},
	StatusRunning:         {StatusPaused, StatusReporting, StatusFailed, StatusAbandoned},
	StatusPaused:          {StatusRunning, StatusAbandoned},
	StatusReporting:       {StatusCompleted, StatusFailed},
	StatusCompleted:       {StatusArchived},
	StatusFailed:          {StatusArchived},
	StatusAbandoned:       {StatusArchived},
}

// IsTerminal reports whether a status has no outgoing transitions other than
// archival.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAbandoned || s == StatusArchived
}

// CanTransition reports whether from -> to is a legal edge in the state
// machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ResourceUsage holds the running counters checked against ResourceLimits.
type ResourceUsage struct {
	SymbolsCreated int
	TokensUsed     int
	ElapsedMs      int
	// RateWindow is the rolling 60s request timestamp log used by the rate
	// limit check; not persisted, rebuilt from recent audit events on
	// rehydration if needed.
	RateWindow []time.Time
}

// Instance is a runtime actor (spec §3 AgentInstance). Instances are the
// sole mutable runtime entities in the registry.
type Instance struct {
	InstanceID       string
	DefinitionID     string
	CampaignID       string
	ParentInstanceID string
	Status           Status
	Scope            Scope
	ResourceUsage    ResourceUsage
	DelegationChain  []string
	Metrics          map[string]float64
	GoverningFrame   string
	Enabled          bool
	CreatedAt        time.Time
}

// Transition moves an instance to a new status, validating the edge against
// the lifecycle state machine.
func (inst *Instance) Transition(to Status) error {
	if !CanTransition(inst.Status, to) {
		return fmt.Errorf("illegal transition %s -> %s for instance %s", inst.Status, to, inst.InstanceID)
	}
	inst.Status = to
	return nil
}
