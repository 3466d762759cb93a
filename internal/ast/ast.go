// Package ast defines the declaration, statement and expression trees handed
// to the lowerer. The translation unit is the root of ownership: it owns the
// type context, the root scope and every declaration subtree. All other
// intra-tree edges (resolved references, parent scopes) are non-owning.
package ast

import (
	"github.com/nwmarino/lovelace/internal/diag"
)

// Node is implemented by every tree node.
type Node interface {
	Span() diag.SourceSpan
}

// baseNode carries the source span shared by all nodes.
type baseNode struct {
	span diag.SourceSpan
}

// Span implements Node.Span.
func (n *baseNode) Span() diag.SourceSpan { return n.span }

// Scope maps names to declarations, chaining to an enclosing scope.
type Scope struct {
	parent *Scope
	names  map[string]NamedDecl
}

// NewScope returns a scope chained to parent (nil for the root scope).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: make(map[string]NamedDecl)}
}

// Parent returns the enclosing scope, or nil.
func (s *Scope) Parent() *Scope { return s.parent }

// Declare binds name to decl in this scope. It reports false if the name is
// already bound here.
func (s *Scope) Declare(decl NamedDecl) bool {
	if _, ok := s.names[decl.Name()]; ok {
		return false
	}
	s.names[decl.Name()] = decl
	return true
}

// Lookup resolves name against this scope and its parents.
func (s *Scope) Lookup(name string) NamedDecl {
	for scope := s; scope != nil; scope = scope.parent {
		if d, ok := scope.names[name]; ok {
			return d
		}
	}
	return nil
}

// LookupLocal resolves name against this scope only.
func (s *Scope) LookupLocal(name string) NamedDecl {
	return s.names[name]
}
