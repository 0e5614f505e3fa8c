package index

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Clause is one constraint of a conjunctive predicate
type Clause interface {
	clause()
	String() string
}

// TermClause requires an exact field value
type TermClause struct {
	Field Field
	Value string
}

func (TermClause) clause() {}

func (c TermClause) String() string {
	return fmt.Sprintf("+%s:%s", c.Field, strconv.Quote(c.Value))
}

// RangeClause bounds a numeric field. Nil bounds are open.
type RangeClause struct {
	Field        Field
	Min, Max     *float64
	MinInclusive bool
	MaxInclusive bool
}

func (RangeClause) clause() {}

// Contains reports whether v falls inside the range
func (c RangeClause) Contains(v float64) bool {
	if c.Min != nil {
		if v < *c.Min || (v == *c.Min && !c.MinInclusive) {
			return false
		}
	}
	if c.Max != nil {
		if v > *c.Max || (v == *c.Max && !c.MaxInclusive) {
			return false
		}
	}
	return true
}

func (c RangeClause) String() string {
	lo, hi := "*", "*"
	open, shut := "{", "}"
	if c.Min != nil {
		lo = formatFloat(*c.Min)
		if c.MinInclusive {
			open = "["
		}
	}
	if c.Max != nil {
		hi = formatFloat(*c.Max)
		if c.MaxInclusive {
			shut = "]"
		}
	}
	return fmt.Sprintf("+%s:%s%s TO %s%s", c.Field, open, lo, hi, shut)
}

// Predicate is a conjunction of clauses. The zero value matches everything.
type Predicate struct {
	clauses []Clause
}

// NewPredicate creates an empty predicate
func NewPredicate() *Predicate {
	return &Predicate{}
}

// AddTerm adds an exact-match clause
func (p *Predicate) AddTerm(field Field, value string) *Predicate {
	p.clauses = append(p.clauses, TermClause{Field: field, Value: value})
	return p
}

// AddRange adds a numeric range clause. A negative zero bound is stored
// as zero.
func (p *Predicate) AddRange(field Field, min, max *float64, minInclusive, maxInclusive bool) *Predicate {
	p.clauses = append(p.clauses, RangeClause{
		Field:        field,
		Min:          positiveZero(min),
		Max:          positiveZero(max),
		MinInclusive: minInclusive,
		MaxInclusive: maxInclusive,
	})
	return p
}

// Clauses returns the clauses in insertion order
func (p *Predicate) Clauses() []Clause {
	if p == nil {
		return nil
	}
	return p.clauses
}

// Len returns the number of clauses
func (p *Predicate) Len() int {
	if p == nil {
		return 0
	}
	return len(p.clauses)
}

// IsEmpty reports a predicate without clauses
func (p *Predicate) IsEmpty() bool {
	return p.Len() == 0
}

// String renders the predicate in Lucene-like syntax
func (p *Predicate) String() string {
	if p.IsEmpty() {
		return "*:*"
	}
	parts := make([]string, len(p.clauses))
	for i, c := range p.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Key returns an order-independent cache key
func (p *Predicate) Key() string {
	if p.IsEmpty() {
		return "*:*"
	}
	parts := make([]string, len(p.clauses))
	for i, c := range p.clauses {
		parts[i] = c.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// Matches evaluates the predicate against a stored document
func (p *Predicate) Matches(doc Document) bool {
	for _, c := range p.Clauses() {
		switch c := c.(type) {
		case TermClause:
			v, ok := doc[c.Field]
			if !ok || v != c.Value {
				return false
			}
		case RangeClause:
			raw, ok := doc[c.Field]
			if !ok {
				return false
			}
			f, ok := parseFloat(raw)
			if !ok || !c.Contains(f) {
				return false
			}
		}
	}
	return true
}

func positiveZero(f *float64) *float64 {
	if f != nil && *f == 0 {
		return Float(0)
	}
	return f
}

// Float returns a pointer to f, for building range clauses
func Float(f float64) *float64 {
	return &f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
