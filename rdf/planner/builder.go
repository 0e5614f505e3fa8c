// Package planner turns triple patterns into index predicates and orders
// the resolved patterns for joining.
package planner

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
)

// ErrMalformedPattern is returned for patterns no index predicate can
// express
var ErrMalformedPattern = errors.New("malformed triple pattern")

// QueryBuilder converts a triple pattern plus pending comparison filters
// into an index predicate
type QueryBuilder struct {
	pushdown bool
}

// NewQueryBuilder creates a builder. With pushdown disabled filters are
// never folded into predicates.
func NewQueryBuilder(pushdown bool) *QueryBuilder {
	return &QueryBuilder{pushdown: pushdown}
}

// Validate checks that a pattern can be matched at all
func Validate(pattern rdf.TriplePattern) error {
	for _, slot := range rdf.Slots {
		if pattern.Get(slot).IsZero() {
			return fmt.Errorf("%w: %s has no %s", ErrMalformedPattern, pattern, slot)
		}
	}
	if s := pattern.S; !s.IsVariable() && s.Term().IsLiteral() {
		return fmt.Errorf("%w: literal subject in %s", ErrMalformedPattern, pattern)
	}
	if p := pattern.P; !p.IsVariable() && !p.Term().IsIRI() {
		return fmt.Errorf("%w: predicate must be an IRI in %s", ErrMalformedPattern, pattern)
	}
	return nil
}

// Build returns the predicate for pattern: one exact term clause per
// constant slot, plus range or term clauses for filters on the object
// variable that the index can answer. The filters folded into the
// predicate are returned so the caller can drop them from the shared
// filter set.
func (b *QueryBuilder) Build(pattern rdf.TriplePattern, filters []rdf.Comparison) (*index.Predicate, []rdf.Comparison, error) {
	if err := Validate(pattern); err != nil {
		return nil, nil, err
	}

	pred := index.NewPredicate()
	for _, slot := range rdf.Slots {
		n := pattern.Get(slot)
		if n.IsVariable() {
			continue
		}
		pred.AddTerm(index.SlotField(slot), n.Term().String())
	}

	if !b.pushdown || !pattern.O.IsVariable() {
		return pred, nil, nil
	}

	var consumed []rdf.Comparison
	for _, c := range filters {
		if c.Var != pattern.O.Var() {
			continue
		}
		if pushComparison(pred, c) {
			consumed = append(consumed, c)
		}
	}
	return pred, consumed, nil
}

// pushComparison adds the clause equivalent to c, reporting whether one
// was added. Only comparisons whose index form selects exactly the
// documents that pass the comparison are pushed.
func pushComparison(pred *index.Predicate, c rdf.Comparison) bool {
	num, isNum := c.Value.Numeric()

	switch c.Op {
	case rdf.OpGT:
		if !isNum {
			return false
		}
		pred.AddRange(index.FieldObjectNumeric, index.Float(num), nil, false, false)
	case rdf.OpLT:
		if !isNum {
			return false
		}
		pred.AddRange(index.FieldObjectNumeric, nil, index.Float(num), false, false)
	case rdf.OpEQ:
		switch {
		case isNum:
			pred.AddRange(index.FieldObjectNumeric, index.Float(num), index.Float(num), true, true)
		case c.Value.IsLiteral():
			// A numeric document can share the lexical form but never
			// equals a non-numeric constant
			if f, err := strconv.ParseFloat(strings.TrimSpace(c.Value.Value()), 64); err == nil && !math.IsNaN(f) {
				return false
			}
			pred.AddTerm(index.FieldObjectString, c.Value.Value())
		default:
			pred.AddTerm(index.FieldObject, c.Value.String())
		}
	default:
		return false
	}
	return true
}
