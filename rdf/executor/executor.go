// Package executor evaluates basic graph patterns against a triple
// document index: every pattern is resolved to a document set, the sets
// are ordered by size and joined left to right with a semi-join that
// narrows each next pattern by the bindings produced so far, and the
// terminal set is expanded lazily into variable bindings.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
	"github.com/wbrown/janus-rdf/rdf/planner"
)

// Input carries upstream state into an execution
type Input struct {
	// Binding is the parent of every produced binding. Variables it binds
	// are substituted into the patterns before resolution.
	Binding *rdf.Binding

	// DocSet, when set, is the starting pivot: every pattern is joined
	// against it. Typically the DocSet of an earlier Result.
	DocSet PatternDocSet
}

// Executor runs BGP executions against one index. It is safe for
// concurrent use; executions share nothing but the index.
type Executor struct {
	idx     index.Index
	opts    ExecutorOptions
	builder *planner.QueryBuilder
	pool    *WorkerPool
	logger  *slog.Logger
}

// NewExecutor creates an executor over idx
func NewExecutor(idx index.Index, opts ExecutorOptions) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		idx:     idx,
		opts:    opts,
		builder: planner.NewQueryBuilder(opts.FilterPushdown),
		pool:    NewWorkerPool(opts.Workers),
		logger:  logger,
	}
}

// Index returns the index the executor reads
func (e *Executor) Index() index.Index {
	return e.idx
}

// Execute evaluates patterns jointly. Comparisons in filters that the
// index answers exactly are removed from it; the rest are left for
// FilterBindings. Failures never panic: a pattern that cannot be resolved
// contributes no documents, and a join failure yields an empty result
// whose Err reports it.
func (e *Executor) Execute(ctx context.Context, patterns []rdf.TriplePattern, filters *rdf.FilterSet) *Result {
	return e.ExecuteWithInput(ctx, Input{}, patterns, filters)
}

// ExecuteWithInput is Execute starting from upstream bindings or documents
func (e *Executor) ExecuteWithInput(ctx context.Context, input Input, patterns []rdf.TriplePattern, filters *rdf.FilterSet) *Result {
	ectx := NewContext(e.opts.Handler)
	ectx.BGPBegin(patterns, filters.Len())

	vars := resultVars(input.Binding, patterns)
	if len(patterns) == 0 {
		ectx.BGPComplete(0, nil)
		return newResult(ectx, e.idx, nil, vars, nil)
	}

	patterns = substituteAll(patterns, input.Binding)
	leaves, err := e.resolveAll(ctx, ectx, patterns, input.Binding, filters)
	if err != nil {
		return e.fail(ectx, vars, err)
	}

	ordered := planner.OrderBySelectivity(leaves)
	ectx.PlanOrdered(ordered)

	var current PatternDocSet
	rest := ordered
	if input.DocSet != nil {
		current = input.DocSet
	} else {
		current, rest = ordered[0], ordered[1:]
	}

	collected := newVarSet(input.Binding.Vars()...)
	for _, next := range rest {
		if err := ctx.Err(); err != nil {
			return e.fail(ectx, vars, err)
		}
		if current.IsEmpty() {
			// Nothing can join with an empty operand
			current = NewCompositeDocSet(ordered[len(ordered)-1].Pattern())
			break
		}

		step := current
		joined, err := ectx.JoinStep(step, next, func() (PatternDocSet, error) {
			return e.join(ctx, step, next, collected)
		})
		if err != nil {
			e.logger.Error("bgp join failed",
				"execution", ectx.ExecutionID(),
				"pattern", next.Pattern().String(),
				"error", err)
			return e.fail(ectx, vars, err)
		}
		current = joined
	}

	ectx.BGPComplete(current.Size(), nil)
	return newResult(ectx, e.idx, current, vars, nil)
}

func (e *Executor) fail(ectx Context, vars []rdf.Var, err error) *Result {
	ectx.BGPComplete(0, err)
	return newResult(ectx, e.idx, nil, vars, err)
}

// Explain resolves and orders patterns without joining them and renders
// the plan. filters is not modified.
func (e *Executor) Explain(ctx context.Context, patterns []rdf.TriplePattern, filters *rdf.FilterSet) (string, error) {
	pending := rdf.NewFilterSet(filters.Comparisons()...)
	leaves, err := e.resolveAll(ctx, NewContext(nil), patterns, nil, pending)
	if err != nil {
		return "", err
	}
	plan := planner.Explain(planner.OrderBySelectivity(leaves))
	if pending.Len() > 0 {
		plan += fmt.Sprintf("Remaining filters: %v\n", pending.Comparisons())
	}
	return plan, nil
}

// resolution is the outcome of resolving one pattern
type resolution struct {
	leaf     *LeafDocSet
	consumed []rdf.Comparison
}

// resolveAll resolves every pattern on the worker pool. A pattern that
// fails is logged and becomes an empty leaf; the only error returned is
// cancellation. Consumed filters are removed from the shared set once,
// after every pattern is resolved.
func (e *Executor) resolveAll(ctx context.Context, ectx Context, patterns []rdf.TriplePattern, parent *rdf.Binding, filters *rdf.FilterSet) ([]*LeafDocSet, error) {
	pending := filters.Comparisons()

	results, err := ExecuteParallel(ctx, e.pool, patterns, func(ctx context.Context, pattern rdf.TriplePattern) (resolution, error) {
		res, err := ectx.ResolvePattern(pattern, func() (resolution, error) {
			return e.resolveGuarded(pattern, parent, pending)
		})
		if err != nil {
			e.logger.Warn("pattern resolution failed",
				"execution", ectx.ExecutionID(),
				"pattern", pattern.String(),
				"error", err)
			return resolution{leaf: emptyLeaf(pattern, parent)}, nil
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	leaves := make([]*LeafDocSet, len(results))
	var consumed []rdf.Comparison
	for i, r := range results {
		leaves[i] = r.leaf
		consumed = append(consumed, r.consumed...)
	}
	filters.Remove(consumed)
	return leaves, nil
}

// resolvePattern builds the predicate for one pattern and resolves it
// resolveGuarded turns a panicking index backend into a resolution error
// so one bad pattern cannot take down the worker pool.
func (e *Executor) resolveGuarded(pattern rdf.TriplePattern, parent *rdf.Binding, filters []rdf.Comparison) (res resolution, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic resolving %s: %v", pattern, r)
		}
	}()
	return e.resolvePattern(pattern, parent, filters)
}

func (e *Executor) resolvePattern(pattern rdf.TriplePattern, parent *rdf.Binding, filters []rdf.Comparison) (resolution, error) {
	pred, consumed, err := e.builder.Build(pattern, filters)
	if err != nil {
		return resolution{}, err
	}

	docs, err := e.idx.Resolve(pred)
	if err != nil {
		return resolution{}, fmt.Errorf("failed to resolve %s: %w", pattern, err)
	}

	// A variable repeated across slots needs equal field values, which a
	// conjunctive predicate cannot express
	if pairs := pattern.RepeatedSlots(); len(pairs) > 0 && !docs.IsEmpty() {
		docs, err = docs.Filter(func(id index.DocID) (bool, error) {
			doc, err := e.idx.Document(id)
			if err != nil {
				return false, err
			}
			for _, pair := range pairs {
				if doc.Get(index.SlotField(pair[0])) != doc.Get(index.SlotField(pair[1])) {
					return false, nil
				}
			}
			return true, nil
		})
		if err != nil {
			return resolution{}, fmt.Errorf("failed to filter repeated variables of %s: %w", pattern, err)
		}
	}

	return resolution{
		leaf:     NewLeafDocSet(pattern, pred, docs, parent),
		consumed: consumed,
	}, nil
}

func substituteAll(patterns []rdf.TriplePattern, b *rdf.Binding) []rdf.TriplePattern {
	if b.IsEmpty() {
		return patterns
	}
	out := make([]rdf.TriplePattern, len(patterns))
	for i, p := range patterns {
		out[i] = p.Substitute(b)
	}
	return out
}

// resultVars lists the variables a binding of the execution may carry:
// upstream ones first, then pattern variables in query order
func resultVars(parent *rdf.Binding, patterns []rdf.TriplePattern) []rdf.Var {
	vars := parent.Vars()
	seen := newVarSet(vars...)
	for _, p := range patterns {
		for _, v := range p.Variables() {
			if !seen.has(v) {
				seen.add(v)
				vars = append(vars, v)
			}
		}
	}
	return vars
}
