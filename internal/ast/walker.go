package ast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Visitor is the contract every analyzer (complexity, semantic extraction,
// context tagging, query execution) implements. Process is called on every
// node the walker visits and may return a value to accumulate; ShouldDescend
// decides whether the walker recurses into that node's children.
type Visitor interface {
	Process(node *tree_sitter.Node, ctx *Context) (value any, err error)
	ShouldDescend(node *tree_sitter.Node, ctx *Context) bool
}

// Walker drives a depth-first traversal of a syntax tree, delegating all
// per-node decisions to a Visitor.
type Walker struct {
	visitor Visitor
}

// NewWalker builds a Walker bound to visitor.
func NewWalker(visitor Visitor) *Walker {
	return &Walker{visitor: visitor}
}

// Walk traverses root depth-first and returns every non-nil value the
// visitor's Process returned, in visitation order. The walker owns ctx's
// parent-stack bookkeeping; the visitor only reads it.
func (w *Walker) Walk(root *tree_sitter.Node, ctx *Context) ([]any, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	var results []any
	if err := w.walk(root, ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (w *Walker) walk(node *tree_sitter.Node, ctx *Context, results *[]any) error {
	if node == nil {
		return nil
	}

	value, err := w.visitor.Process(node, ctx)
	if err != nil {
		return err
	}
	if value != nil {
		*results = append(*results, value)
	}

	if !w.visitor.ShouldDescend(node, ctx) {
		return nil
	}

	ctx.PushParent(node.Kind())
	defer ctx.PopParent()

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if err := w.walk(child, ctx, results); err != nil {
			return err
		}
	}
	return nil
}

// VisitorFunc adapts two plain functions into a Visitor, for analyzers that
// don't need their own named type.
type VisitorFunc struct {
	ProcessFn       func(node *tree_sitter.Node, ctx *Context) (any, error)
	ShouldDescendFn func(node *tree_sitter.Node, ctx *Context) bool
}

func (f VisitorFunc) Process(node *tree_sitter.Node, ctx *Context) (any, error) {
	return f.ProcessFn(node, ctx)
}

func (f VisitorFunc) ShouldDescend(node *tree_sitter.Node, ctx *Context) bool {
	if f.ShouldDescendFn == nil {
		return true
	}
	return f.ShouldDescendFn(node, ctx)
}
