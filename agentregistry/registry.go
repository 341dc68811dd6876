package agentregistry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentgov/gatekeeper/audit"
)

// instanceEntry pairs an Instance with its own lock, so concurrent
// operations on different instances never contend (spec §5 "per-instance
// lock during quota update").
type instanceEntry struct {
	mu       sync.Mutex
	instance Instance
}

// Registry is the Agent Registry (component H): definitions plus
// instances, scope construction, quota enforcement, and the campaign
// breaker.
type Registry struct {
	auditLog audit.Recorder
	breaker  *CampaignBreaker
	capMap   map[string][]string

	mu          sync.RWMutex
	definitions map[string]Definition
	instances   map[string]*instanceEntry
}

// NewRegistry builds an empty Agent Registry.
func NewRegistry(rec audit.Recorder) *Registry {
	if rec == nil {
		rec = audit.NewNoopRecorder()
	}
	return &Registry{
		auditLog:    rec,
		breaker:     NewCampaignBreaker(),
		capMap:      defaultCapabilityToolMap,
		definitions: make(map[string]Definition),
		instances:   make(map[string]*instanceEntry),
	}
}

// RegisterDefinition catalogues an immutable definition. Re-registering the
// same AgentID replaces the prior version; callers are expected to bump
// Version when doing so.
func (r *Registry) RegisterDefinition(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.AgentID] = def
}

// Definition retrieves a catalogued definition by id.
func (r *Registry) Definition(agentID string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[agentID]
	return def, ok
}

// Spawn creates a new instance from a definition. If campaignID is
// non-empty, the campaign breaker must currently allow spawning. If
// parentInstanceID is non-empty, the child's scope is intersected with the
// parent's per BuildScope.
func (r *Registry) Spawn(definitionID, campaignID, parentInstanceID string, maxDelegationDepth int) (*Instance, error) {
	def, ok := r.Definition(definitionID)
	if !ok {
		return nil, fmt.Errorf("unknown definition %s", definitionID)
	}
	if campaignID != "" && !r.breaker.AllowSpawn(campaignID) {
		return nil, fmt.Errorf("campaign %s circuit breaker is open", campaignID)
	}

	var parentScope *Scope
	var chain []string
	if parentInstanceID != "" {
		parent, ok := r.Instance(parentInstanceID)
		if !ok {
			return nil, fmt.Errorf("unknown parent instance %s", parentInstanceID)
		}
		parentScope = &parent.Scope
		chain = append(append([]string(nil), parent.DelegationChain...), parentInstanceID)
		if len(chain) >= parent.Scope.MaxDelegationDepth && parent.Scope.MaxDelegationDepth > 0 {
			return nil, fmt.Errorf("max delegation depth %d exceeded", parent.Scope.MaxDelegationDepth)
		}
	}

	scope := BuildScope(def, r.capMap, parentScope, maxDelegationDepth)
	inst := Instance{
		InstanceID:       "inst_" + uuid.NewString(),
		DefinitionID:     definitionID,
		CampaignID:       campaignID,
		ParentInstanceID: parentInstanceID,
		Status:           StatusProposed,
		Scope:            scope,
		DelegationChain:  chain,
		Metrics:          make(map[string]float64),
		GoverningFrame:   def.GoverningFrame,
		Enabled:          true,
		CreatedAt:        time.Now(),
	}

	r.mu.Lock()
	r.instances[inst.InstanceID] = &instanceEntry{instance: inst}
	r.mu.Unlock()

	r.auditLog.Record(audit.Event{
		EventType:  "agent_instance.spawned",
		InstanceID: inst.InstanceID,
		CampaignID: campaignID,
		Details:    map[string]any{"definition_id": definitionID},
	})
	return &inst, nil
}

// Instance retrieves a snapshot of an instance by id.
func (r *Registry) Instance(instanceID string) (*Instance, bool) {
	r.mu.RLock()
	e, ok := r.instances[instanceID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	inst := e.instance
	return &inst, true
}

// Transition moves an instance's lifecycle status, recording an audit event
// and updating the campaign breaker on terminal outcomes.
func (r *Registry) Transition(instanceID string, to Status) error {
	r.mu.RLock()
	e, ok := r.instances[instanceID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown instance %s", instanceID)
	}

	e.mu.Lock()
	err := e.instance.Transition(to)
	campaignID := e.instance.CampaignID
	e.mu.Unlock()
	if err != nil {
		return err
	}

	r.auditLog.Record(audit.Event{
		EventType:  "agent_instance.transitioned",
		InstanceID: instanceID,
		CampaignID: campaignID,
		Details:    map[string]any{"to": string(to)},
	})

	if campaignID != "" && IsTerminal(to) {
		r.breaker.RecordInstanceOutcome(campaignID, to == StatusCompleted)
	}
	return nil
}

// CheckQuota checks a resource quota for an instance without consuming it.
func (r *Registry) CheckQuota(instanceID string, def Definition, resource Resource, amount int, now time.Time) (QuotaResult, error) {
	r.mu.RLock()
	e, ok := r.instances[instanceID]
	r.mu.RUnlock()
	if !ok {
		return QuotaResult{}, fmt.Errorf("unknown instance %s", instanceID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return CheckQuota(&e.instance, def.ResourceLimits, resource, amount, now), nil
}

// RecordUsage atomically records resource consumption for an instance.
func (r *Registry) RecordUsage(instanceID string, resource Resource, amount int, now time.Time) error {
	r.mu.RLock()
	e, ok := r.instances[instanceID]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown instance %s", instanceID)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	RecordUsage(&e.instance, resource, amount, now)
	return nil
}

// CampaignBreakerState exposes the campaign breaker's current state.
func (r *Registry) CampaignBreakerState(campaignID string) CampaignBreakerState {
	return r.breaker.State(campaignID)
}
