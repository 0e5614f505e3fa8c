package executor

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
)

// BindingIterator is a forward-only stream of bindings
type BindingIterator interface {
	Next() bool
	Binding() *rdf.Binding
	Err() error
	Close() error
}

// Result lazily expands the terminal document set of an execution into
// bindings. Each row yields a child of the row's parent binding holding
// the terminal pattern's still-unbound variables. Rows whose binding
// chain is empty (fully constant patterns) are skipped.
type Result struct {
	ctx  Context
	idx  index.Index
	docs PatternDocSet
	vars []rdf.Var
	err  error

	leaves  []*LeafDocSet
	leafIdx int
	it      roaring.IntPeekable
	current *rdf.Binding
	count   int
	done    bool
}

var _ BindingIterator = (*Result)(nil)

func newResult(ctx Context, idx index.Index, docs PatternDocSet, vars []rdf.Var, err error) *Result {
	r := &Result{ctx: ctx, idx: idx, docs: docs, vars: vars, err: err}
	if docs != nil && err == nil {
		r.leaves = docs.Leaves()
	} else {
		r.done = true
	}
	return r
}

// Next advances to the next binding
func (r *Result) Next() bool {
	if r.done {
		return false
	}
	for {
		if r.it == nil || !r.it.HasNext() {
			if r.leafIdx >= len(r.leaves) {
				r.finish()
				return false
			}
			r.it = r.leaves[r.leafIdx].Docs().Iterator()
			r.leafIdx++
			continue
		}

		leaf := r.leaves[r.leafIdx-1]
		id := r.it.Next()
		b, err := r.expand(leaf, id)
		if err != nil {
			r.err = err
			r.current = nil
			r.finish()
			return false
		}
		if b.IsEmpty() {
			continue
		}
		r.current = b
		r.count++
		return true
	}
}

func (r *Result) expand(leaf *LeafDocSet, id index.DocID) (*rdf.Binding, error) {
	doc, err := r.idx.Document(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %d: %w", id, err)
	}
	b := rdf.NewBinding(leaf.Parent())
	pattern := leaf.Pattern()
	for _, slot := range rdf.Slots {
		n := pattern.Get(slot)
		if !n.IsVariable() || b.Contains(n.Var()) {
			continue
		}
		if err := b.Add(n.Var(), doc.Term(slot)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (r *Result) finish() {
	if r.done {
		return
	}
	r.done = true
	r.ctx.BindingsCollected(r.vars, r.docs.Size(), r.count)
}

// Binding returns the current binding
func (r *Result) Binding() *rdf.Binding {
	return r.current
}

// Err returns the error that ended the execution or the iteration
func (r *Result) Err() error {
	return r.err
}

// Close stops the iteration. Remaining rows are never read.
func (r *Result) Close() error {
	r.done = true
	r.current = nil
	return nil
}

// All drains the remaining bindings
func (r *Result) All() ([]*rdf.Binding, error) {
	defer r.Close()
	var out []*rdf.Binding
	for r.Next() {
		out = append(out, r.Binding())
	}
	return out, r.Err()
}

// Vars returns every variable a binding of this result may carry:
// upstream variables first, then pattern variables in query order
func (r *Result) Vars() []rdf.Var {
	return r.vars
}

// DocSet returns the terminal document set, nil for an empty BGP or a
// failed execution. It can seed a further execution through Input.
func (r *Result) DocSet() PatternDocSet {
	if r.err != nil {
		return nil
	}
	return r.docs
}

// Size is the number of terminal rows, an upper bound on the number of
// bindings
func (r *Result) Size() int {
	if r.docs == nil {
		return 0
	}
	return r.docs.Size()
}

// ExecutionID identifies the execution in logs and events
func (r *Result) ExecutionID() string {
	return r.ctx.ExecutionID()
}

// Filter applies the comparisons left in filters to the remaining
// bindings
func (r *Result) Filter(filters *rdf.FilterSet) *FilteredBindings {
	return filterBindings(r.ctx, r, filters)
}
