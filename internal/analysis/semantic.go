package analysis

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/chunker/internal/ast"
)

// Role is a subtree's classified semantic purpose.
type Role string

const (
	RoleInitialization Role = "initialization"
	RoleValidation     Role = "validation"
	RoleComputation    Role = "computation"
	RoleIOOperation    Role = "io_operation"
	RoleLifecycle      Role = "lifecycle"
	RoleErrorHandling  Role = "error_handling"
	RoleStateManagemnt Role = "state_management"
	RoleDataStructure  Role = "data_structure"
	RoleProcedure      Role = "procedure"
	RoleGeneral        Role = "general"
)

// rolePatterns maps a role to the identifier substrings that imply it. The
// first match wins and patterns are checked in this declared order, so a
// name matching keywords of several roles (e.g. "validateConfig") gets the
// role listed earliest.
var rolePatterns = []struct {
	role     Role
	keywords []string
}{
	{RoleInitialization, []string{"constructor", "new", "create", "build", "setup", "initialize", "config", "configure"}},
	{RoleValidation, []string{"validate", "check", "verify", "assert", "ensure", "isvalid", "can", "should", "must"}},
	{RoleComputation, []string{"calculate", "compute", "process", "transform", "convert", "parse", "analyze", "evaluate"}},
	{RoleIOOperation, []string{"read", "write", "load", "save", "fetch", "send", "receive", "get", "put", "post"}},
	{RoleLifecycle, []string{"start", "stop", "begin", "end", "open", "close", "connect", "disconnect", "dispose"}},
	{RoleErrorHandling, []string{"handle", "catch", "error", "exception", "fail", "retry", "recover", "fallback"}},
}

var sideEffectNodeTypes = map[string]bool{
	"assignment_statement":   true,
	"assignment":             true,
	"augmented_assignment":   true,
	"short_var_declaration":  true,
	"call_expression":        true,
	"call":                   true,
	"method_call":            true,
	"expression_statement":   true,
	"return_statement":       true,
	"go_statement":           true,
	"defer_statement":        true,
	"raise_statement":        true,
	"throw_statement":        true,
	"await_expression":       true,
}

var definitionNodeTypes = map[string]bool{
	"function_definition":  true,
	"function_declaration": true,
	"method_definition":    true,
	"method_declaration":   true,
}

var classNodeTypes = map[string]bool{
	"class_definition":  true,
	"class_declaration": true,
}

var ioVerbs = []string{"read", "write", "print", "send", "save", "load", "fetch", "recv", "dial"}

// SemanticMetrics is the per-subtree semantic classification spec.md's
// analyzer produces.
type SemanticMetrics struct {
	Role          Role
	Patterns      []string
	PurityScore   float64
	Cohesion      float64
	SideEffects   int
	IOEffects     int
	StateEffects  int
}

// SemanticAnalyzer classifies a subtree's role and purity by matching
// identifier names against a lexicon and observing side-effecting nodes.
type SemanticAnalyzer struct{}

// NewSemanticAnalyzer constructs a SemanticAnalyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{}
}

type semanticState struct {
	patterns     map[string]bool
	purity       float64
	sideEffects  int
	ioEffects    int
	stateEffects int
}

// Analyze classifies root's subtree, using declName (the function/class
// name, if any) to match against the role lexicon.
func (s *SemanticAnalyzer) Analyze(root *tree_sitter.Node, source []byte, declName string) (SemanticMetrics, error) {
	state := &semanticState{patterns: map[string]bool{}, purity: 1.0}
	visitor := &semanticVisitor{state: state, source: source}
	if _, err := ast.NewWalker(visitor).Walk(root, ast.NewContext()); err != nil {
		return SemanticMetrics{}, err
	}

	role := classifyByName(declName)
	if role == "" {
		for p := range state.patterns {
			role = Role(p)
			break
		}
	}
	if role == "" {
		role = fallbackRole(root, state)
	}
	if role != "" {
		state.patterns[string(role)] = true
	}

	patterns := make([]string, 0, len(state.patterns))
	for p := range state.patterns {
		patterns = append(patterns, p)
	}

	return SemanticMetrics{
		Role:         role,
		Patterns:     patterns,
		PurityScore:  state.purity,
		Cohesion:     cohesion(len(state.patterns)),
		SideEffects:  state.sideEffects,
		IOEffects:    state.ioEffects,
		StateEffects: state.stateEffects,
	}, nil
}

func classifyByName(name string) Role {
	lower := strings.ToLower(name)
	if lower == "" {
		return ""
	}
	for _, rp := range rolePatterns {
		for _, kw := range rp.keywords {
			if strings.Contains(lower, kw) {
				return rp.role
			}
		}
	}
	return ""
}

func fallbackRole(root *tree_sitter.Node, state *semanticState) Role {
	switch {
	case classNodeTypes[root.Kind()]:
		return RoleDataStructure
	case definitionNodeTypes[root.Kind()]:
		if state.purity > 0.8 {
			return RoleComputation
		}
		return RoleProcedure
	default:
		return RoleGeneral
	}
}

// cohesion implements semantic_cohesion = 1 - 0.2*(distinct_patterns - 1),
// floored at 0, with a neutral 0.5 for subtrees matching nothing.
func cohesion(distinctPatterns int) float64 {
	if distinctPatterns == 0 {
		return 0.5
	}
	c := 1.0 - 0.2*float64(distinctPatterns-1)
	if c < 0 {
		return 0
	}
	return c
}

type semanticVisitor struct {
	state  *semanticState
	source []byte
}

func (v *semanticVisitor) Process(node *tree_sitter.Node, ctx *ast.Context) (any, error) {
	kind := node.Kind()

	if sideEffectNodeTypes[kind] {
		v.observeSideEffect(node, kind)
	}

	if definitionNodeTypes[kind] || classNodeTypes[kind] {
		if name := declarationName(node, v.source); name != "" {
			if role := classifyByName(name); role != "" {
				v.state.patterns[string(role)] = true
			}
		}
	}

	return nil, nil
}

func (v *semanticVisitor) ShouldDescend(node *tree_sitter.Node, ctx *ast.Context) bool {
	return true
}

func (v *semanticVisitor) observeSideEffect(node *tree_sitter.Node, kind string) {
	severity := "low"
	isIO := false

	switch kind {
	case "assignment_statement", "assignment", "augmented_assignment", "short_var_declaration":
		severity = "medium"
		v.state.stateEffects++
	case "call_expression", "call", "method_call":
		if name := strings.ToLower(callName(node, v.source)); name != "" {
			for _, verb := range ioVerbs {
				if strings.Contains(name, verb) {
					isIO = true
					break
				}
			}
		}
		if isIO {
			severity = "high"
			v.state.ioEffects++
		} else {
			severity = "medium"
		}
	case "raise_statement", "throw_statement":
		severity = "high"
	default:
		severity = "low"
	}

	v.state.sideEffects++
	penalty := map[string]float64{"low": 0.1, "medium": 0.3, "high": 0.5}[severity]
	v.state.purity -= penalty
	if v.state.purity < 0 {
		v.state.purity = 0
	}
}

func callName(node *tree_sitter.Node, source []byte) string {
	if node.ChildCount() == 0 {
		return ""
	}
	fn := node.Child(0)
	if fn == nil {
		return ""
	}
	return nodeText(fn, source)
}

func declarationName(node *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier", "field_identifier", "type_identifier":
			return nodeText(child, source)
		}
	}
	return ""
}
