package executor

import (
	"github.com/wbrown/janus-rdf/rdf"
)

// FilteredBindings passes through the bindings that satisfy every
// comparison. A comparison that cannot be evaluated (unbound variable or
// incomparable values) rejects the binding.
type FilteredBindings struct {
	ctx     Context
	in      BindingIterator
	filters []rdf.Comparison
	current *rdf.Binding
	seen    int
	passed  int
	done    bool
}

var _ BindingIterator = (*FilteredBindings)(nil)

// FilterBindings wraps in with the comparisons pending in filters. The
// comparisons are captured when called.
func FilterBindings(in BindingIterator, filters *rdf.FilterSet) *FilteredBindings {
	return filterBindings(NewContext(nil), in, filters)
}

func filterBindings(ctx Context, in BindingIterator, filters *rdf.FilterSet) *FilteredBindings {
	return &FilteredBindings{ctx: ctx, in: in, filters: filters.Comparisons()}
}

// Next advances to the next passing binding
func (f *FilteredBindings) Next() bool {
	if f.done {
		return false
	}
	for f.in.Next() {
		b := f.in.Binding()
		f.seen++
		if f.accepts(b) {
			f.passed++
			f.current = b
			return true
		}
	}
	f.done = true
	f.current = nil
	if len(f.filters) > 0 {
		f.ctx.FilterApplied(f.filters, f.seen, f.passed)
	}
	return false
}

func (f *FilteredBindings) accepts(b *rdf.Binding) bool {
	for _, c := range f.filters {
		ok, err := c.Eval(b)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

func (f *FilteredBindings) Binding() *rdf.Binding { return f.current }

func (f *FilteredBindings) Err() error { return f.in.Err() }

func (f *FilteredBindings) Close() error {
	f.done = true
	f.current = nil
	return f.in.Close()
}

// All drains the remaining bindings
func (f *FilteredBindings) All() ([]*rdf.Binding, error) {
	defer f.Close()
	var out []*rdf.Binding
	for f.Next() {
		out = append(out, f.Binding())
	}
	return out, f.Err()
}
