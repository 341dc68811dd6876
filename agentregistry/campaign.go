package agentregistry

import "sync"

// CampaignBreakerState mirrors the drift engine's three-state breaker, but
// is evaluated on a simpler rule: three consecutive failed instances trips
// it (spec §4.H "Campaign-level circuit breaker").
type CampaignBreakerState string

const (
	CampaignClosed   CampaignBreakerState = "closed"
	CampaignOpen     CampaignBreakerState = "open"
	CampaignHalfOpen CampaignBreakerState = "half-open"
)

type campaignState struct {
	consecutiveFailures int
	breaker             CampaignBreakerState
}

// CampaignBreaker tracks one breaker per campaign. Unlike the per-agent
// drift breaker, a campaign breaker has no time-based cooldown: an operator
// (or the next successful instance) must move it out of open explicitly by
// spawning into a half-open probe.
type CampaignBreaker struct {
	mu        sync.Mutex
	campaigns map[string]*campaignState
}

// NewCampaignBreaker builds an empty breaker tracker.
func NewCampaignBreaker() *CampaignBreaker {
	return &CampaignBreaker{campaigns: make(map[string]*campaignState)}
}

func (b *CampaignBreaker) entry(campaignID string) *campaignState {
	s, ok := b.campaigns[campaignID]
	if !ok {
		s = &campaignState{breaker: CampaignClosed}
		b.campaigns[campaignID] = s
	}
	return s
}

// RecordInstanceOutcome updates a campaign's breaker after an instance
// reaches a terminal status. success=false three times in a row opens the
// breaker; a success while half-open closes it; a success while closed
// resets the consecutive-failure counter.
func (b *CampaignBreaker) RecordInstanceOutcome(campaignID string, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.entry(campaignID)

	if success {
		s.consecutiveFailures = 0
		if s.breaker == CampaignHalfOpen {
			s.breaker = CampaignClosed
		}
		return
	}

	s.consecutiveFailures++
	if s.consecutiveFailures >= 3 {
		s.breaker = CampaignOpen
	}
}

// AllowSpawn reports whether a new instance may be spawned for campaignID.
// Open refuses; half-open and closed allow (half-open permits exactly one
// probing instance at a time in the intended usage, enforced by the caller
// transitioning the breaker before the probe's outcome is known).
func (b *CampaignBreaker) AllowSpawn(campaignID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entry(campaignID).breaker != CampaignOpen
}

// BeginProbe moves an open campaign breaker to half-open so the caller can
// attempt a single spawn. No-op if the breaker is not open.
func (b *CampaignBreaker) BeginProbe(campaignID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.entry(campaignID)
	if s.breaker == CampaignOpen {
		s.breaker = CampaignHalfOpen
	}
}

// State returns the current breaker state for a campaign.
func (b *CampaignBreaker) State(campaignID string) CampaignBreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entry(campaignID).breaker
}
