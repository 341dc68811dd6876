package agentregistry

import "time"

// Resource names a quota-checked dimension.
type Resource string

const (
	ResourceRateLimit     Resource = "rateLimitPerMinute"
	ResourceTokenBudget   Resource = "tokenBudget"
	ResourceTimeout       Resource = "timeoutMs"
	ResourceMaxSymbols    Resource = "maxSymbolsCreated"
)

// QuotaResult is the outcome of a quota check.
type QuotaResult struct {
	Allowed   bool
	Remaining int
	Reason    string
}

// CheckQuota verifies whether amount more of resource may be consumed by
// inst without exceeding limits. The rate limit check uses a rolling 60s
// window over inst.ResourceUsage.RateWindow; every other resource is a
// cumulative counter (spec §4.H "Quota enforcement").
func CheckQuota(inst *Instance, limits ResourceLimits, resource Resource, amount int, now time.Time) QuotaResult {
	switch resource {
	case ResourceRateLimit:
		cutoff := now.Add(-60 * time.Second)
		count := 0
		for _, ts := range inst.ResourceUsage.RateWindow {
			if ts.After(cutoff) {
				count++
			}
		}
		if limits.RateLimitPerMinute > 0 && count+amount > limits.RateLimitPerMinute {
			return QuotaResult{Allowed: false, Remaining: limits.RateLimitPerMinute - count, Reason: "rate limit exceeded"}
		}
		return QuotaResult{Allowed: true, Remaining: limits.RateLimitPerMinute - count - amount}

	case ResourceTokenBudget:
		if limits.TokenBudget > 0 && inst.ResourceUsage.TokensUsed+amount > limits.TokenBudget {
			return QuotaResult{Allowed: false, Remaining: limits.TokenBudget - inst.ResourceUsage.TokensUsed, Reason: "token budget exceeded"}
		}
		return QuotaResult{Allowed: true, Remaining: limits.TokenBudget - inst.ResourceUsage.TokensUsed - amount}

	case ResourceTimeout:
		if limits.TimeoutMs > 0 && inst.ResourceUsage.ElapsedMs+amount > limits.TimeoutMs {
			return QuotaResult{Allowed: false, Remaining: limits.TimeoutMs - inst.ResourceUsage.ElapsedMs, Reason: "timeout budget exceeded"}
		}
		return QuotaResult{Allowed: true, Remaining: limits.TimeoutMs - inst.ResourceUsage.ElapsedMs - amount}

	case ResourceMaxSymbols:
		if limits.MaxSymbolsCreated > 0 && inst.ResourceUsage.SymbolsCreated+amount > limits.MaxSymbolsCreated {
			return QuotaResult{Allowed: false, Remaining: limits.MaxSymbolsCreated - inst.ResourceUsage.SymbolsCreated, Reason: "symbol creation limit exceeded"}
		}
		return QuotaResult{Allowed: true, Remaining: limits.MaxSymbolsCreated - inst.ResourceUsage.SymbolsCreated - amount}

	default:
		return QuotaResult{Allowed: false, Reason: "unknown resource " + string(resource)}
	}
}

// RecordUsage atomically updates the running counters for resource by
// amount. Callers must hold the instance's lock (see Registry.WithInstance).
func RecordUsage(inst *Instance, resource Resource, amount int, now time.Time) {
	switch resource {
	case ResourceRateLimit:
		inst.ResourceUsage.RateWindow = append(inst.ResourceUsage.RateWindow, now)
		cutoff := now.Add(-60 * time.Second)
		kept := inst.ResourceUsage.RateWindow[:0]
		for _, ts := range inst.ResourceUsage.RateWindow {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		inst.ResourceUsage.RateWindow = kept
	case ResourceTokenBudget:
		inst.ResourceUsage.TokensUsed += amount
	case ResourceTimeout:
		inst.ResourceUsage.ElapsedMs += amount
	case ResourceMaxSymbols:
		inst.ResourceUsage.SymbolsCreated += amount
	}
}
