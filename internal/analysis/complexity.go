// Package analysis implements the complexity and semantic-role analyzers
// that score AST subtrees for chunk-boundary and quality decisions.
package analysis

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/chunker/internal/ast"
)

// complexityWeight is the cyclomatic-complexity contribution of a node
// type. Node types absent from the table contribute 0.
var complexityWeight = map[string]float64{
	"if_statement":           1,
	"elif_clause":            1,
	"else_clause":            1,
	"while_statement":        1,
	"for_statement":          1,
	"for_in_statement":       1,
	"try_statement":          1,
	"except_clause":          1,
	"finally_clause":         1,
	"switch_statement":       1,
	"case_statement":         1,
	"conditional_expression": 1,
	"binary_expression":      0, // refined to 1 for && / || in Process
	"and":                    1,
	"or":                     1,
	"not":                    0.5,
	"call":                   0.5,
	"call_expression":        0.5,
	"method_call":            0.5,
}

var nestingNodeTypes = map[string]bool{
	"if_statement":          true,
	"elif_clause":           true,
	"else_clause":           true,
	"while_statement":       true,
	"for_statement":         true,
	"for_in_statement":      true,
	"try_statement":         true,
	"except_clause":         true,
	"finally_clause":        true,
	"function_definition":   true,
	"function_declaration":  true,
	"method_definition":     true,
	"method_declaration":    true,
	"class_definition":      true,
	"class_declaration":     true,
	"with_statement":        true,
	"match_statement":       true,
	"case_clause":           true,
}

// ComplexityMetrics is the per-subtree result spec.md's scoring model
// produces.
type ComplexityMetrics struct {
	Score        float64
	Cyclomatic   int
	Cognitive    float64
	MaxNesting   int
	Dependencies []string
	FunctionCall int
	Branches     int
	Loops        int
	Exceptions   int
}

// ComplexityAnalyzer walks a subtree accumulating cyclomatic/cognitive
// complexity, nesting depth, and dependency references.
type ComplexityAnalyzer struct{}

// NewComplexityAnalyzer constructs a ComplexityAnalyzer.
func NewComplexityAnalyzer() *ComplexityAnalyzer {
	return &ComplexityAnalyzer{}
}

type complexityState struct {
	cyclomatic   int
	cognitive    float64
	maxNesting   int
	dependencies map[string]struct{}
	functionCall int
	branches     int
	loops        int
	exceptions   int
}

// nestingDepthAt counts how many ancestors of the node currently being
// processed are themselves nesting-introducing node types.
func nestingDepthAt(ctx *ast.Context) int {
	depth := 0
	for _, t := range ctx.ParentStack() {
		if nestingNodeTypes[t] {
			depth++
		}
	}
	return depth
}

// Analyze computes ComplexityMetrics for root's subtree.
func (c *ComplexityAnalyzer) Analyze(root *tree_sitter.Node, source []byte) (ComplexityMetrics, error) {
	state := &complexityState{
		cyclomatic:   1,
		dependencies: map[string]struct{}{},
	}
	visitor := &complexityVisitor{state: state, source: source}
	if _, err := ast.NewWalker(visitor).Walk(root, ast.NewContext()); err != nil {
		return ComplexityMetrics{}, err
	}

	deps := make([]string, 0, len(state.dependencies))
	for d := range state.dependencies {
		deps = append(deps, d)
	}

	score := float64(state.cyclomatic)*1.0 + state.cognitive*0.5 +
		float64(state.maxNesting)*0.3 + float64(len(deps))*0.2

	return ComplexityMetrics{
		Score:        score,
		Cyclomatic:   state.cyclomatic,
		Cognitive:    state.cognitive,
		MaxNesting:   state.maxNesting,
		Dependencies: deps,
		FunctionCall: state.functionCall,
		Branches:     state.branches,
		Loops:        state.loops,
		Exceptions:   state.exceptions,
	}, nil
}

type complexityVisitor struct {
	state  *complexityState
	source []byte
}

func (v *complexityVisitor) Process(node *tree_sitter.Node, ctx *ast.Context) (any, error) {
	kind := node.Kind()
	if w, ok := complexityWeight[kind]; ok {
		v.state.cyclomatic += int(w)
	}
	if kind == "binary_expression" {
		if op := node.ChildByFieldName("operator"); op != nil && (op.Kind() == "&&" || op.Kind() == "||") {
			v.state.cyclomatic++
		}
	}

	if nestingNodeTypes[kind] {
		depth := nestingDepthAt(ctx) + 1
		if depth > v.state.maxNesting {
			v.state.maxNesting = depth
		}
		v.state.cognitive += float64(depth) * 0.5
	}

	switch kind {
	case "if_statement", "conditional_expression":
		v.state.branches++
	case "while_statement", "for_statement", "for_in_statement":
		v.state.loops++
	case "try_statement", "except_clause":
		v.state.exceptions++
	case "call", "call_expression", "method_call":
		v.state.functionCall++
		if name := v.extractCallName(node); name != "" {
			v.state.dependencies[name] = struct{}{}
		}
	case "identifier":
		if parent := ctx.ImmediateParent(); parent == "type" || parent == "annotation" || parent == "parameter" || parent == "parameter_declaration" {
			v.state.dependencies[nodeText(node, v.source)] = struct{}{}
		}
	}
	return nil, nil
}

func (v *complexityVisitor) ShouldDescend(node *tree_sitter.Node, ctx *ast.Context) bool {
	return true
}

func (v *complexityVisitor) extractCallName(node *tree_sitter.Node) string {
	if node.ChildCount() == 0 {
		return ""
	}
	fn := node.Child(0)
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier", "field_identifier":
		return nodeText(fn, v.source)
	}
	return ""
}

// nodeText slices the node's byte range out of source.
func nodeText(node *tree_sitter.Node, source []byte) string {
	start, end := int(node.StartByte()), int(node.EndByte())
	if start < 0 || end > len(source) || start > end {
		return ""
	}
	return string(source[start:end])
}
