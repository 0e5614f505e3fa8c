package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
)

// Sized is anything with an exact cardinality
type Sized interface {
	Size() int
}

// OrderBySelectivity returns a new slice sorted by ascending Size. Ties
// keep their input order, so the result is deterministic.
func OrderBySelectivity[T Sized](items []T) []T {
	ordered := make([]T, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Size() < ordered[j].Size()
	})
	return ordered
}

// Step is one resolved pattern in a plan
type Step interface {
	Sized
	Pattern() rdf.TriplePattern
	Predicate() *index.Predicate
}

// Explain renders an ordered plan, one line per step
func Explain[T Step](steps []T) string {
	var sb strings.Builder
	sb.WriteString("BGP Plan:\n")
	for i, s := range steps {
		pred := "<unresolved>"
		if p := s.Predicate(); p != nil {
			pred = p.String()
		}
		sb.WriteString(fmt.Sprintf("  %d. %s [%s, docs=%d]\n", i+1, s.Pattern(), pred, s.Size()))
	}
	return sb.String()
}
