package tool

import (
	"strings"

	"github.com/compozy/pieceagent/engine/core"
)

// Rule decides whether a called tool name refers to a declaration.
type Rule interface {
	Match(calledName string, decl *Declaration) bool
}

// ExactName matches declarations whose name equals the called name.
type ExactName struct{}

func (ExactName) Match(calledName string, decl *Declaration) bool {
	return decl.Name == calledName
}

// CompositeSuffix matches tools of Kind invoked as "<called>_<registered>".
type CompositeSuffix struct {
	Kind Kind
}

func (r CompositeSuffix) Match(calledName string, decl *Declaration) bool {
	if decl.Kind != r.Kind || decl.Name == "" {
		return false
	}
	suffix := "_" + decl.Name
	return len(calledName) > len(suffix) && strings.HasSuffix(calledName, suffix)
}

// Matcher applies its rules in order; the first rule with any match wins
// and, within a rule, the first declaration in order.
type Matcher struct {
	rules []Rule
}

func NewMatcher(rules ...Rule) *Matcher {
	return &Matcher{rules: rules}
}

// DefaultMatcher tries exact names for every kind, then composite MCP names.
func DefaultMatcher() *Matcher {
	return NewMatcher(ExactName{}, CompositeSuffix{Kind: KindMCP})
}

// Resolve returns the declaration behind calledName. No match is a wiring
// defect reported as ErrCodeToolNotFound.
func (m *Matcher) Resolve(calledName string, decls []Declaration) (*Declaration, error) {
	for _, rule := range m.rules {
		for i := range decls {
			if rule.Match(calledName, &decls[i]) {
				return &decls[i], nil
			}
		}
	}
	return nil, core.Errorf(core.ErrCodeToolNotFound, map[string]any{"tool": calledName},
		"no declared tool matches %q", calledName)
}

// CalledName strips the registered suffix from a composite MCP invocation
// name. Other names are returned unchanged.
func CalledName(calledName string, decl *Declaration) string {
	if decl == nil || decl.Kind != KindMCP {
		return calledName
	}
	if trimmed, ok := strings.CutSuffix(calledName, "_"+decl.Name); ok && trimmed != "" {
		return trimmed
	}
	return calledName
}
