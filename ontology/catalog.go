package ontology

// DefaultCatalog is the built-in symbol catalog. Codepoints are drawn from
// mathematical/dingbat Unicode blocks so frame strings stay compact and
// visually distinct per category — the example frames in spec §6,
// `⊕◊⛔▶` (strict + financial + forbidden + execute) and `⊘◇▼β`
// (neutral + technical + delegate + secondary entity), are both expressible
// with this catalog.
//
// Mode strengths: smaller is stricter (CH-001 requires
// strength(child.mode) <= strength(parent.mode), i.e. a child may only
// stay as strict or get stricter, never loosen).
func DefaultCatalog() []Symbol {
	return []Symbol{
		// Modes.
		{Codepoint: '⊗', Category: CategoryMode, Attributes: Attributes{
			Name: "forbidden", Strength: 0,
			Description: "The agent may take no action at all; strictest possible mode. Propagates across delegation like the forbidden constraint (CH-006).",
		}},
		{Codepoint: '⊕', Category: CategoryMode, Attributes: Attributes{
			Name: "strict", Strength: 1,
			Description: "Tightest operating mode; no relaxation of constraints permitted.",
		}},
		{Codepoint: '⊘', Category: CategoryMode, Attributes: Attributes{
			Name: "neutral", Strength: 3,
			Description: "Default operating mode with no special tightening or loosening.",
		}},
		{Codepoint: '⊙', Category: CategoryMode, Attributes: Attributes{
			Name: "exploratory", Strength: 4,
			Description: "Open-ended investigative mode; may not combine with execute actions (SM-002).",
		}},
		{Codepoint: '⊖', Category: CategoryMode, Attributes: Attributes{
			Name: "flexible", Strength: 5,
			Description: "Loosest operating mode; weaker than strict and neutral.",
		}},

		// Domains (also occupy the optional "source" slot on a second
		// occurrence — see frame.Resolver.Parse).
		{Codepoint: '◊', Category: CategoryDomain, Attributes: Attributes{
			Name: "financial", Description: "Financial systems and transactions.",
		}},
		{Codepoint: '◇', Category: CategoryDomain, Attributes: Attributes{
			Name: "technical", Description: "Internal technical systems and infrastructure.",
		}},
		{Codepoint: '◈', Category: CategoryDomain, Attributes: Attributes{
			Name: "legal", Description: "Legal and compliance systems.",
		}},
		{Codepoint: '◆', Category: CategoryDomain, Attributes: Attributes{
			Name: "medical", Description: "Health and medical record systems.",
		}},

		// Actions.
		{Codepoint: '▶', Category: CategoryAction, Attributes: Attributes{
			Name: "execute", Description: "Directly invoke a tool or side-effecting operation.",
		}},
		{Codepoint: '▼', Category: CategoryAction, Attributes: Attributes{
			Name: "delegate", Description: "Spawn or hand off work to a child agent.",
		}},
		{Codepoint: '◉', Category: CategoryAction, Attributes: Attributes{
			Name: "observe", Description: "Read-only inspection with no side effects.",
		}},
		{Codepoint: '◎', Category: CategoryAction, Attributes: Attributes{
			Name: "report", Description: "Summarize or publish findings.",
		}},

		// Constraints.
		{Codepoint: '⛔', Category: CategoryConstraint, Attributes: Attributes{
			Name: "forbidden", Inherits: true,
			Description: "Explicit prohibition; must propagate to every descendant frame (CH-003).",
		}},
		{Codepoint: '⚠', Category: CategoryConstraint, Attributes: Attributes{
			Name: "sensitive", Inherits: false,
			Description: "Elevated caution advisory; does not force propagation.",
		}},
		{Codepoint: '🔒', Category: CategoryConstraint, Attributes: Attributes{
			Name: "locked", Inherits: true,
			Description: "Resource is locked for this agent's lifetime; propagates like forbidden.",
		}},
		{Codepoint: '💰', Category: CategoryConstraint, Attributes: Attributes{
			Name: "spend-capped", Inherits: false,
			Description: "A monetary ceiling applies to this operation only.",
		}},

		// Modifiers.
		{Codepoint: '△', Category: CategoryModifier, Attributes: Attributes{
			Name: "high-priority", Description: "Elevates scheduling priority.",
		}},
		{Codepoint: '▽', Category: CategoryModifier, Attributes: Attributes{
			Name: "low-priority", Description: "Lowers scheduling priority.",
		}},
		{Codepoint: '⇈', Category: CategoryModifier, Attributes: Attributes{
			Name: "strict-override", Description: "Requests stricter-than-default handling for this call only.",
		}},
		{Codepoint: '⇊', Category: CategoryModifier, Attributes: Attributes{
			Name: "flexible-override", Description: "Requests looser-than-default handling for this call only.",
		}},

		// Entities. Level orders the delegation hierarchy for CH-005: a
		// parent may only delegate to an entity at the same level or
		// "more junior" (higher level number), never upward.
		{Codepoint: 'α', Category: CategoryEntity, Attributes: Attributes{
			Name: "primary", Level: 1,
			Description: "The top-level principal entity for this campaign.",
		}},
		{Codepoint: 'β', Category: CategoryEntity, Attributes: Attributes{
			Name: "secondary", Level: 5,
			Description: "A subordinate entity acting on the primary's behalf.",
		}},
		{Codepoint: 'γ', Category: CategoryEntity, Attributes: Attributes{
			Name: "tertiary", Level: 9,
			Description: "A deeply delegated, narrowly scoped entity.",
		}},
	}
}
