package executor

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/annotations"
	"github.com/wbrown/janus-rdf/rdf/planner"
)

// Context is the set of annotation points of one BGP execution. Each
// wrapper runs fn and reports what it produced.
type Context interface {
	// ExecutionID identifies the execution in events and logs
	ExecutionID() string

	// Lifecycle
	BGPBegin(patterns []rdf.TriplePattern, filterCount int)
	BGPComplete(docs int, err error)

	// Planning
	ResolvePattern(pattern rdf.TriplePattern, fn func() (resolution, error)) (resolution, error)
	PlanOrdered(plan []*LeafDocSet)

	// Join and collection
	JoinStep(left PatternDocSet, right *LeafDocSet, fn func() (PatternDocSet, error)) (PatternDocSet, error)
	BindingsCollected(vars []rdf.Var, docs, count int)
	FilterApplied(filters []rdf.Comparison, input, output int)

	// Collector returns the underlying collector, nil when not annotating
	Collector() *annotations.Collector
}

// NewContext creates an annotated context when handler is set, a no-op
// one otherwise
func NewContext(handler annotations.Handler) Context {
	base := BaseContext{id: uuid.NewString()}
	if handler == nil {
		return &base
	}
	return &AnnotatedContext{
		BaseContext: base,
		collector:   annotations.NewCollector(handler),
	}
}

// BaseContext is the no-op context
type BaseContext struct {
	id string
}

func (c *BaseContext) ExecutionID() string { return c.id }

func (c *BaseContext) BGPBegin(patterns []rdf.TriplePattern, filterCount int) {}

func (c *BaseContext) BGPComplete(docs int, err error) {}

func (c *BaseContext) ResolvePattern(pattern rdf.TriplePattern, fn func() (resolution, error)) (resolution, error) {
	return fn()
}

func (c *BaseContext) PlanOrdered(plan []*LeafDocSet) {}

func (c *BaseContext) JoinStep(left PatternDocSet, right *LeafDocSet, fn func() (PatternDocSet, error)) (PatternDocSet, error) {
	return fn()
}

func (c *BaseContext) BindingsCollected(vars []rdf.Var, docs, count int) {}

func (c *BaseContext) FilterApplied(filters []rdf.Comparison, input, output int) {}

func (c *BaseContext) Collector() *annotations.Collector { return nil }

// AnnotatedContext reports every annotation point to a collector
type AnnotatedContext struct {
	BaseContext
	collector *annotations.Collector
	start     time.Time
}

func (c *AnnotatedContext) BGPBegin(patterns []rdf.TriplePattern, filterCount int) {
	c.start = time.Now()
	c.collector.Add(annotations.Event{
		Name:  annotations.BGPBegin,
		Start: c.start,
		Data: map[string]interface{}{
			"execution.id":  c.id,
			"pattern.count": len(patterns),
			"filter.count":  filterCount,
		},
	})
}

func (c *AnnotatedContext) BGPComplete(docs int, err error) {
	data := map[string]interface{}{
		"execution.id": c.id,
		"docs.count":   docs,
		"success":      err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	c.collector.AddTiming(annotations.BGPComplete, c.start, data)
}

func (c *AnnotatedContext) ResolvePattern(pattern rdf.TriplePattern, fn func() (resolution, error)) (resolution, error) {
	start := time.Now()
	res, err := fn()

	if err != nil {
		c.collector.AddTiming(annotations.ErrorPatternResolution, start, map[string]interface{}{
			"execution.id": c.id,
			"pattern":      pattern.String(),
			"error":        err.Error(),
		})
		return res, err
	}

	c.collector.AddTiming(annotations.PatternResolved, start, map[string]interface{}{
		"execution.id":   c.id,
		"pattern":        pattern.String(),
		"predicate":      res.leaf.Predicate().String(),
		"docs.count":     res.leaf.Size(),
		"filters.pushed": len(res.consumed),
	})
	return res, nil
}

func (c *AnnotatedContext) PlanOrdered(plan []*LeafDocSet) {
	c.collector.Add(annotations.Event{
		Name:  annotations.PlanOrdered,
		Start: time.Now(),
		Data: map[string]interface{}{
			"execution.id":  c.id,
			"pattern.count": len(plan),
			"plan":          planner.Explain(plan),
		},
	})
}

func (c *AnnotatedContext) JoinStep(left PatternDocSet, right *LeafDocSet, fn func() (PatternDocSet, error)) (PatternDocSet, error) {
	start := time.Now()
	leftSize, rightSize := left.Size(), right.Size()

	result, err := fn()
	if err != nil {
		c.collector.AddTiming(annotations.ErrorJoin, start, map[string]interface{}{
			"execution.id": c.id,
			"pattern":      right.Pattern().String(),
			"error":        err.Error(),
		})
		return result, err
	}

	var vars []string
	seen := make(map[rdf.Var]bool)
	for _, p := range []rdf.TriplePattern{left.Pattern(), right.Pattern()} {
		for _, v := range p.Variables() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v.String())
			}
		}
	}

	c.collector.AddTiming(annotations.JoinStep, start, map[string]interface{}{
		"execution.id":  c.id,
		"left.pattern":  left.Pattern().String(),
		"left.size":     leftSize,
		"right.pattern": right.Pattern().String(),
		"right.size":    rightSize,
		"result.vars":   vars,
		"result.size":   result.Size(),
	})
	return result, nil
}

func (c *AnnotatedContext) BindingsCollected(vars []rdf.Var, docs, count int) {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}
	c.collector.AddTiming(annotations.BindingsCollected, c.start, map[string]interface{}{
		"execution.id":  c.id,
		"vars":          names,
		"docs.count":    docs,
		"binding.count": count,
	})
}

func (c *AnnotatedContext) FilterApplied(filters []rdf.Comparison, input, output int) {
	strs := make([]string, len(filters))
	for i, f := range filters {
		strs[i] = f.String()
	}
	c.collector.Add(annotations.Event{
		Name:  annotations.FilterApplied,
		Start: time.Now(),
		Data: map[string]interface{}{
			"execution.id": c.id,
			"filters":      strings.Join(strs, " "),
			"input.size":   input,
			"output.size":  output,
		},
	})
}

func (c *AnnotatedContext) Collector() *annotations.Collector { return c.collector }
