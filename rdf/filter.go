package rdf

import (
	"fmt"
	"strings"
	"sync"
)

// CompareOp represents comparison operators
type CompareOp string

const (
	OpEQ  CompareOp = "="
	OpNE  CompareOp = "!="
	OpLT  CompareOp = "<"
	OpLTE CompareOp = "<="
	OpGT  CompareOp = ">"
	OpGTE CompareOp = ">="
)

// Comparison is a simple filter of the form ?var op constant
type Comparison struct {
	Op    CompareOp
	Var   Var
	Value Term
}

// Eval evaluates the comparison against a binding. An unbound variable
// is an error; callers treat errors as "does not pass".
func (c Comparison) Eval(b *Binding) (bool, error) {
	val, ok := b.Get(c.Var)
	if !ok {
		return false, fmt.Errorf("cannot resolve %s", c.Var)
	}

	// Ordering only makes sense between numbers or between plain strings
	_, lnum := val.Numeric()
	_, rnum := c.Value.Numeric()
	if c.Op != OpEQ && c.Op != OpNE && lnum != rnum {
		return false, fmt.Errorf("incomparable values %s and %s", val, c.Value)
	}

	cmp := CompareTerms(val, c.Value)
	if val.Kind() != c.Value.Kind() || lnum != rnum {
		cmp = 1
	}
	switch c.Op {
	case OpEQ:
		return cmp == 0, nil
	case OpNE:
		return cmp != 0, nil
	case OpLT:
		return cmp < 0, nil
	case OpLTE:
		return cmp <= 0, nil
	case OpGT:
		return cmp > 0, nil
	case OpGTE:
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("unknown comparison operator: %s", c.Op)
	}
}

func (c Comparison) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Var, c.Op, c.Value)
}

// ParseComparison parses "?var op value", e.g. `?age > 30`
func ParseComparison(s string) (Comparison, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 3 {
		return Comparison{}, fmt.Errorf("%w: expected '?var op value' in %q", ErrSyntax, s)
	}
	v, err := ParseNode(fields[0])
	if err != nil {
		return Comparison{}, err
	}
	if !v.IsVariable() {
		return Comparison{}, fmt.Errorf("%w: left operand must be a variable", ErrSyntax)
	}
	op := CompareOp(fields[1])
	switch op {
	case OpEQ, OpNE, OpLT, OpLTE, OpGT, OpGTE:
	default:
		return Comparison{}, fmt.Errorf("%w: unknown operator %q", ErrSyntax, fields[1])
	}
	// The value may contain spaces (quoted literals)
	rest := strings.TrimSpace(s)
	rest = strings.TrimSpace(rest[strings.Index(rest, fields[1])+len(fields[1]):])
	value, err := ParseTerm(rest)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{Op: op, Var: v.Var(), Value: value}, nil
}

// FilterSet is the mutable collection of pending comparisons shared with
// the outer filter stage. Filters subsumed by index predicates are removed
// with Remove; nothing else mutates it.
type FilterSet struct {
	mu    sync.Mutex
	exprs []Comparison
}

// NewFilterSet creates a filter set
func NewFilterSet(exprs ...Comparison) *FilterSet {
	return &FilterSet{exprs: append([]Comparison(nil), exprs...)}
}

// Comparisons returns a snapshot of the pending comparisons
func (f *FilterSet) Comparisons() []Comparison {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Comparison(nil), f.exprs...)
}

// Len returns the number of pending comparisons
func (f *FilterSet) Len() int {
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exprs)
}

// Add appends a comparison
func (f *FilterSet) Add(c Comparison) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exprs = append(f.exprs, c)
}

// Remove drops every pending comparison equal to one in consumed. The
// retained list is rebuilt rather than edited in place.
func (f *FilterSet) Remove(consumed []Comparison) {
	if f == nil || len(consumed) == 0 {
		return
	}
	drop := make(map[Comparison]bool, len(consumed))
	for _, c := range consumed {
		drop[c] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	retained := make([]Comparison, 0, len(f.exprs))
	for _, c := range f.exprs {
		if !drop[c] {
			retained = append(retained, c)
		}
	}
	f.exprs = retained
}

// Accepts reports whether b passes every pending comparison
func (f *FilterSet) Accepts(b *Binding) bool {
	for _, c := range f.Comparisons() {
		ok, err := c.Eval(b)
		if err != nil || !ok {
			return false
		}
	}
	return true
}
