package agentregistry

import (
	"path"
	"strings"
)

// Scope is the resolved set of symbol patterns and tools an instance may
// touch. Patterns use glob syntax (`*` wildcards), matched with path.Match
// semantics against dot-separated symbol names — e.g. "Ξ.*.recon.*" matches
// "Ξ.v1.recon.hosts".
type Scope struct {
	AllowedSymbolPatterns []string
	DeniedSymbolPatterns  []string
	AllowedTools          []string
	DeniedTools           []string
	Namespace             string
	MaxDelegationDepth    int
}

// defaultCapabilityToolMap is the fixed capability -> tool-name (or glob)
// map used to derive tool allowances from a definition's required
// capabilities (spec §4.H "a fixed capability→tool map"). Globs are
// intended on the allowed list only: a capability that needs a whole tool
// family (e.g. every browser automation tool) is granted via glob, while
// denials are always literal tool names so a deny can never accidentally
// widen by wildcard.
var defaultCapabilityToolMap = map[string][]string{
	"web_fetch":        {"WebFetch"},
	"web_search":       {"WebSearch"},
	"browser_control":  {"mcp__browser__*"},
	"file_read":        {"Read", "Glob", "Grep"},
	"file_write":       {"Write", "Edit"},
	"shell_exec":       {"Bash"},
	"delegation_spawn": {"Task"},
}

// BuildScope constructs the scope for a newly spawning instance (spec
// §4.H "Scope construction at spawn"). namespace comes from the
// definition; if parent is non-nil, the child's allowed symbol patterns are
// intersected with the parent's (a child may only access what the parent
// may) and denied patterns/tools are unioned.
func BuildScope(def Definition, capabilityToolMap map[string][]string, parent *Scope, maxDelegationDepth int) Scope {
	if capabilityToolMap == nil {
		capabilityToolMap = defaultCapabilityToolMap
	}

	namespacePattern := "Ξ.*." + def.Namespace + ".*"
	allowedSymbols := []string{def.ExpectedOutputSymbol, namespacePattern}

	var allowedTools []string
	seen := make(map[string]struct{})
	for _, cap := range def.RequiredCapabilities {
		for _, tool := range capabilityToolMap[cap] {
			if _, ok := seen[tool]; ok {
				continue
			}
			seen[tool] = struct{}{}
			allowedTools = append(allowedTools, tool)
		}
	}

	scope := Scope{
		AllowedSymbolPatterns: allowedSymbols,
		AllowedTools:          allowedTools,
		Namespace:             def.Namespace,
		MaxDelegationDepth:    maxDelegationDepth,
	}

	if parent != nil {
		scope.AllowedSymbolPatterns = intersectPatterns(scope.AllowedSymbolPatterns, parent.AllowedSymbolPatterns)
		scope.DeniedSymbolPatterns = unionPatterns(scope.DeniedSymbolPatterns, parent.DeniedSymbolPatterns)
		scope.DeniedTools = unionPatterns(scope.DeniedTools, parent.DeniedTools)
		if parent.MaxDelegationDepth > 0 && parent.MaxDelegationDepth-1 < scope.MaxDelegationDepth {
			scope.MaxDelegationDepth = parent.MaxDelegationDepth - 1
		}
	}

	return scope
}

// intersectPatterns keeps only patterns present in both lists. Two patterns
// are treated as equal by exact string match — pattern algebra (computing
// the intersection of two globs) is intentionally not attempted; a child
// definition should specify compatible patterns explicitly.
func intersectPatterns(a, b []string) []string {
	if len(b) == 0 {
		return nil
	}
	bSet := make(map[string]struct{}, len(b))
	for _, p := range b {
		bSet[p] = struct{}{}
	}
	var out []string
	for _, p := range a {
		if _, ok := bSet[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func unionPatterns(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, p := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// AllowsTool reports whether a scope permits a tool name: denied (literal
// match) always wins over allowed (glob match).
func (s Scope) AllowsTool(tool string) bool {
	for _, deny := range s.DeniedTools {
		if deny == tool {
			return false
		}
	}
	for _, allow := range s.AllowedTools {
		if matchGlob(allow, tool) {
			return true
		}
	}
	return false
}

// AllowsSymbol reports whether a scope permits a symbol name.
func (s Scope) AllowsSymbol(symbol string) bool {
	for _, deny := range s.DeniedSymbolPatterns {
		if matchGlob(deny, symbol) {
			return false
		}
	}
	for _, allow := range s.AllowedSymbolPatterns {
		if matchGlob(allow, symbol) {
			return true
		}
	}
	return false
}

// matchGlob matches a dot-separated pattern against a dot-separated name,
// segment by segment, so a single "*" only ever stands in for one segment —
// matching the capability map's own glob style ("mcp__browser__*").
func matchGlob(pattern, name string) bool {
	if pattern == name {
		return true
	}
	patSegs := strings.Split(pattern, ".")
	nameSegs := strings.Split(name, ".")
	if len(patSegs) != len(nameSegs) {
		return false
	}
	for i, seg := range patSegs {
		ok, err := path.Match(seg, nameSegs[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}
