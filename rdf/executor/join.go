package executor

import (
	"context"
	"fmt"

	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
)

// joinRow is one (document, parent binding) row of the current set
type joinRow struct {
	leaf *LeafDocSet
	id   index.DocID
}

// stepResult is what one row contributes to a join step
type stepResult struct {
	member *LeafDocSet
	bound  varSet
}

// join performs one semi-join step. For every row of current it binds the
// current pattern's new variables from the row's document, narrows next
// to the documents agreeing with every value already bound, and adds the
// narrowed set to the composite under the row's binding. Variables bound
// during the step are merged into collected afterwards.
func (e *Executor) join(ctx context.Context, current PatternDocSet, next *LeafDocSet, collected varSet) (PatternDocSet, error) {
	composite := NewCompositeDocSet(next.Pattern())
	bound := newVarSet()

	if e.opts.ParallelJoin {
		rows := make([]joinRow, 0, current.Size())
		for _, leaf := range current.Leaves() {
			it := leaf.Docs().Iterator()
			for it.HasNext() {
				rows = append(rows, joinRow{leaf: leaf, id: it.Next()})
			}
		}

		results, err := ExecuteParallel(ctx, e.pool, rows, func(_ context.Context, row joinRow) (stepResult, error) {
			return e.joinRow(row, next, collected)
		})
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			composite.Add(r.member)
			bound.merge(r.bound)
		}
	} else {
		for _, leaf := range current.Leaves() {
			it := leaf.Docs().Iterator()
			for it.HasNext() {
				r, err := e.joinRow(joinRow{leaf: leaf, id: it.Next()}, next, collected)
				if err != nil {
					return nil, err
				}
				composite.Add(r.member)
				bound.merge(r.bound)
			}
		}
	}

	collected.merge(bound)
	return composite, nil
}

// joinRow evaluates a single row. collected is only read.
func (e *Executor) joinRow(row joinRow, next *LeafDocSet, collected varSet) (stepResult, error) {
	doc, err := e.idx.Document(row.id)
	if err != nil {
		return stepResult{}, fmt.Errorf("failed to read document %d: %w", row.id, err)
	}

	cur := row.leaf.Pattern()
	nxt := next.Pattern()
	binding := rdf.NewBinding(row.leaf.Parent())
	bound := newVarSet()

	for _, slot := range rdf.Slots {
		cn := cur.Get(slot)
		if !cn.IsVariable() {
			continue
		}
		v := cn.Var()
		if collected.has(v) || binding.Contains(v) {
			continue
		}
		if err := binding.Add(v, doc.Term(slot)); err != nil {
			return stepResult{}, err
		}
		bound.add(v)
	}

	pred := index.NewPredicate()
	for _, slot := range rdf.Slots {
		nn := nxt.Get(slot)
		if !nn.IsVariable() {
			continue
		}
		if value, ok := binding.Get(nn.Var()); ok {
			pred.AddTerm(index.SlotField(slot), value.String())
		}
	}

	if pred.IsEmpty() {
		// No shared variable: cartesian step over next's documents
		return stepResult{member: next.withDocs(next.Docs(), binding), bound: bound}, nil
	}

	docs, err := e.idx.Resolve(pred)
	if err != nil {
		return stepResult{}, fmt.Errorf("failed to resolve %s for %s: %w", pred, nxt, err)
	}
	return stepResult{member: next.withDocs(docs.And(next.Docs()), binding), bound: bound}, nil
}
