package proposal

// RiskAssessment is the five-dimension weighted risk score (spec §3
// AgentProposal.riskAssessment).
type RiskAssessment struct {
	DataAccess     float64
	ExternalCalls  float64
	ResourceUsage  float64
	SymbolCreation float64
	PrivilegeLevel float64
}

// weights are fixed per spec §3: 0.25/0.20/0.15/0.20/0.20 for
// data-access/external-calls/resource-usage/symbol-creation/privilege.
const (
	weightDataAccess     = 0.25
	weightExternalCalls  = 0.20
	weightResourceUsage  = 0.15
	weightSymbolCreation = 0.20
	weightPrivilegeLevel = 0.20
)

// Score computes the weighted composite risk score in [0,1].
func (r RiskAssessment) Score() float64 {
	return r.DataAccess*weightDataAccess +
		r.ExternalCalls*weightExternalCalls +
		r.ResourceUsage*weightResourceUsage +
		r.SymbolCreation*weightSymbolCreation +
		r.PrivilegeLevel*weightPrivilegeLevel
}

// Factor is a documented risk-contributing property of a candidate
// definition; each factor present adds its penalty to a named sub-score
// (spec §4.I "the minimum of 1.0 and the sum of documented factor
// penalties").
type Factor struct {
	Name        string
	Penalty     float64
	SubScore    string // "dataAccess" | "externalCalls" | "resourceUsage" | "symbolCreation" | "privilegeLevel"
}

// DefaultFactors is the documented factor table. Concrete instances of this
// system would extend it per domain; these are the factors named in the
// spec's own examples.
func DefaultFactors() []Factor {
	return []Factor{
		{Name: "oauth2", Penalty: 0.3, SubScore: "dataAccess"},
		{Name: "pii_access", Penalty: 0.4, SubScore: "dataAccess"},
		{Name: "web_scraping", Penalty: 0.3, SubScore: "externalCalls"},
		{Name: "third_party_api", Penalty: 0.2, SubScore: "externalCalls"},
		{Name: "high_frequency_polling", Penalty: 0.3, SubScore: "resourceUsage"},
		{Name: "unbounded_output", Penalty: 0.4, SubScore: "symbolCreation"},
		{Name: "delegation_spawn", Penalty: 0.3, SubScore: "privilegeLevel"},
		{Name: "credential_write", Penalty: 0.5, SubScore: "privilegeLevel"},
	}
}

// Assess computes a RiskAssessment from the set of factor names present on
// a candidate definition.
func Assess(factors []Factor, present []string) RiskAssessment {
	presentSet := make(map[string]struct{}, len(present))
	for _, p := range present {
		presentSet[p] = struct{}{}
	}

	sums := map[string]float64{}
	for _, f := range factors {
		if _, ok := presentSet[f.Name]; ok {
			sums[f.SubScore] += f.Penalty
		}
	}

	return RiskAssessment{
		DataAccess:     clamp01(sums["dataAccess"]),
		ExternalCalls:  clamp01(sums["externalCalls"]),
		ResourceUsage:  clamp01(sums["resourceUsage"]),
		SymbolCreation: clamp01(sums["symbolCreation"]),
		PrivilegeLevel: clamp01(sums["privilegeLevel"]),
	}
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// ApprovalLevel is the decision on how a proposal must be approved.
type ApprovalLevel string

const (
	ApprovalAuto     ApprovalLevel = "auto"
	ApprovalHuman    ApprovalLevel = "human"
	ApprovalElevated ApprovalLevel = "elevated"
)

// DecideApproval applies spec §4.I step 4: score >= 0.7 is elevated, >= 0.3
// or requiresApproval is human, otherwise auto.
func DecideApproval(score float64, requiresApproval bool) ApprovalLevel {
	switch {
	case score >= 0.7:
		return ApprovalElevated
	case score >= 0.3 || requiresApproval:
		return ApprovalHuman
	default:
		return ApprovalAuto
	}
}

// HoldSeverityFor maps a risk score to a hold severity (spec §4.I step 6).
func HoldSeverityFor(score float64) string {
	switch {
	case score >= 0.8:
		return "critical"
	case score >= 0.6:
		return "high"
	case score >= 0.3:
		return "medium"
	default:
		return "low"
	}
}
