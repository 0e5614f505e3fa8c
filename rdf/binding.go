package rdf

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAlreadyBound is returned when adding a variable that already has a value
var ErrAlreadyBound = errors.New("variable already bound")

// Binding maps variables to terms for one result row. Variables are kept
// in insertion order; lookups fall through to the parent binding. A
// variable visible anywhere in the chain can never be bound again.
type Binding struct {
	parent *Binding
	vars   []Var
	values map[Var]Term
}

// NewBinding creates an empty binding on top of parent (which may be nil)
func NewBinding(parent *Binding) *Binding {
	return &Binding{parent: parent}
}

// Parent returns the parent binding, or nil
func (b *Binding) Parent() *Binding {
	if b == nil {
		return nil
	}
	return b.parent
}

// Add binds v to t
func (b *Binding) Add(v Var, t Term) error {
	if b.Contains(v) {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, v)
	}
	if b.values == nil {
		b.values = make(map[Var]Term, 4)
	}
	b.vars = append(b.vars, v)
	b.values[v] = t
	return nil
}

// Get returns the value of v from this binding or its ancestors
func (b *Binding) Get(v Var) (Term, bool) {
	for cur := b; cur != nil; cur = cur.parent {
		if t, ok := cur.values[v]; ok {
			return t, true
		}
	}
	return Term{}, false
}

// Contains reports whether v is bound anywhere in the chain
func (b *Binding) Contains(v Var) bool {
	_, ok := b.Get(v)
	return ok
}

// Vars returns all bound variables, ancestors first
func (b *Binding) Vars() []Var {
	if b == nil {
		return nil
	}
	vars := b.parent.Vars()
	return append(vars, b.vars...)
}

// Len returns the number of bound variables including ancestors
func (b *Binding) Len() int {
	n := 0
	for cur := b; cur != nil; cur = cur.parent {
		n += len(cur.vars)
	}
	return n
}

// IsEmpty reports a binding with no variables in its chain
func (b *Binding) IsEmpty() bool {
	return b.Len() == 0
}

// Map flattens the chain into a plain map
func (b *Binding) Map() map[Var]Term {
	m := make(map[Var]Term, b.Len())
	for _, v := range b.Vars() {
		m[v], _ = b.Get(v)
	}
	return m
}

func (b *Binding) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, v := range b.Vars() {
		if i > 0 {
			sb.WriteString(", ")
		}
		t, _ := b.Get(v)
		sb.WriteString(v.String())
		sb.WriteByte('=')
		sb.WriteString(t.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
