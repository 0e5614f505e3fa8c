package executor

import (
	"fmt"

	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
)

// PatternDocSet is the document set of one triple pattern, either a single
// index result (*LeafDocSet) or the union built by a join step
// (*CompositeDocSet). Every row is a (document, parent binding) pair.
type PatternDocSet interface {
	// Pattern is the triple pattern every document matches
	Pattern() rdf.TriplePattern

	// Size is the exact number of rows
	Size() int

	// IsEmpty reports Size() == 0
	IsEmpty() bool

	// Leaves returns the leaf sets whose rows make up this set, in order
	Leaves() []*LeafDocSet

	patternDocSet()
}

// LeafDocSet is one index result for a pattern, with the binding its
// rows extend
type LeafDocSet struct {
	pattern   rdf.TriplePattern
	predicate *index.Predicate
	docs      *index.DocSet
	parent    *rdf.Binding
}

var (
	_ PatternDocSet = (*LeafDocSet)(nil)
	_ PatternDocSet = (*CompositeDocSet)(nil)
)

// NewLeafDocSet creates a leaf. A nil docs is empty.
func NewLeafDocSet(pattern rdf.TriplePattern, predicate *index.Predicate, docs *index.DocSet, parent *rdf.Binding) *LeafDocSet {
	if docs == nil {
		docs = index.EmptyDocSet()
	}
	return &LeafDocSet{pattern: pattern, predicate: predicate, docs: docs, parent: parent}
}

// emptyLeaf is the result of a pattern that failed to resolve
func emptyLeaf(pattern rdf.TriplePattern, parent *rdf.Binding) *LeafDocSet {
	return NewLeafDocSet(pattern, nil, nil, parent)
}

func (*LeafDocSet) patternDocSet() {}

func (l *LeafDocSet) Pattern() rdf.TriplePattern { return l.pattern }

// Predicate is the index predicate the documents were resolved with, nil
// for a pattern that failed to resolve
func (l *LeafDocSet) Predicate() *index.Predicate { return l.predicate }

func (l *LeafDocSet) Docs() *index.DocSet { return l.docs }

// Parent is the binding every row of the leaf extends
func (l *LeafDocSet) Parent() *rdf.Binding { return l.parent }

func (l *LeafDocSet) Size() int { return l.docs.Size() }

func (l *LeafDocSet) IsEmpty() bool { return l.docs.IsEmpty() }

func (l *LeafDocSet) Leaves() []*LeafDocSet { return []*LeafDocSet{l} }

// withDocs returns a leaf for the same pattern with other documents and
// parent
func (l *LeafDocSet) withDocs(docs *index.DocSet, parent *rdf.Binding) *LeafDocSet {
	return NewLeafDocSet(l.pattern, l.predicate, docs, parent)
}

func (l *LeafDocSet) String() string {
	return fmt.Sprintf("Leaf(%s, %d docs)", l.pattern, l.Size())
}

// CompositeDocSet is the union of the leaves produced by one join step.
// Members keep their own parent bindings, so the same document may appear
// once per member (bag semantics).
type CompositeDocSet struct {
	pattern rdf.TriplePattern
	members []*LeafDocSet
	size    int
}

// NewCompositeDocSet creates an empty composite for pattern
func NewCompositeDocSet(pattern rdf.TriplePattern) *CompositeDocSet {
	return &CompositeDocSet{pattern: pattern}
}

func (*CompositeDocSet) patternDocSet() {}

// Add appends a member. Empty members are dropped.
func (c *CompositeDocSet) Add(member *LeafDocSet) {
	if member == nil || member.IsEmpty() {
		return
	}
	c.members = append(c.members, member)
	c.size += member.Size()
}

func (c *CompositeDocSet) Pattern() rdf.TriplePattern { return c.pattern }

func (c *CompositeDocSet) Size() int { return c.size }

func (c *CompositeDocSet) IsEmpty() bool { return c.size == 0 }

func (c *CompositeDocSet) Leaves() []*LeafDocSet { return c.members }

func (c *CompositeDocSet) String() string {
	return fmt.Sprintf("Composite(%s, %d members, %d docs)", c.pattern, len(c.members), c.size)
}

// varSet is the set of variables collected by the join so far
type varSet map[rdf.Var]struct{}

func newVarSet(vars ...rdf.Var) varSet {
	s := make(varSet, len(vars))
	for _, v := range vars {
		s[v] = struct{}{}
	}
	return s
}

func (s varSet) has(v rdf.Var) bool {
	_, ok := s[v]
	return ok
}

func (s varSet) add(v rdf.Var) {
	s[v] = struct{}{}
}

func (s varSet) merge(other varSet) {
	for v := range other {
		s[v] = struct{}{}
	}
}
