package executor

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/annotations"
	"github.com/wbrown/janus-rdf/rdf/index"
	"github.com/wbrown/janus-rdf/rdf/search"
	"github.com/wbrown/janus-rdf/rdf/storage"
)

const xsdInt = "^^<http://www.w3.org/2001/XMLSchema#integer>"

var socialNT = strings.Join([]string{
	`<alice> <name> "Alice" .`,
	`<alice> <age> "30"` + xsdInt + ` .`,
	`<alice> <knows> <bob> .`,
	`<alice> <knows> <carol> .`,
	`<bob> <name> "Bob" .`,
	`<bob> <age> "25"` + xsdInt + ` .`,
	`<bob> <knows> <carol> .`,
	`<carol> <name> "Carol" .`,
	`<carol> <age> "35"` + xsdInt + ` .`,
	`<carol> <knows> <alice> .`,
	`<dave> <name> "Dave" .`,
	`<dave> <sameAs> <dave> .`,
	`<dave> <sameAs> <david> .`,
}, "\n")

func parseTriples(t *testing.T, nt string) []rdf.Triple {
	t.Helper()
	var triples []rdf.Triple
	for _, line := range strings.Split(nt, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tr, err := rdf.ParseTriple(line)
		require.NoError(t, err)
		triples = append(triples, tr)
	}
	return triples
}

func newIndex(t *testing.T, nt string) (*index.MemoryIndex, []rdf.Triple) {
	t.Helper()
	triples := parseTriples(t, nt)
	return index.NewMemoryIndex(triples...), triples
}

// edgeNT holds objects whose numeric reading is unusual
var edgeNT = strings.Join([]string{
	`<m1> <v> "NaN"^^<http://www.w3.org/2001/XMLSchema#double> .`,
	`<m2> <v> "-0"` + xsdInt + ` .`,
	`<m3> <v> "0"` + xsdInt + ` .`,
	`<m4> <v> "5"` + xsdInt + ` .`,
	`<m5> <v> "5.0"^^<http://www.w3.org/2001/XMLSchema#decimal> .`,
	`<m6> <v> "-2.5"^^<http://www.w3.org/2001/XMLSchema#decimal> .`,
	`<m7> <v> "five" .`,
	`<m8> <v> "5"@en .`,
	`<m1> <label> "nan" .`,
	`<m2> <label> "negative zero" .`,
	`<m3> <label> "zero" .`,
	`<m4> <label> "five" .`,
	`<m5> <label> "five point oh" .`,
	`<m6> <label> "minus two and a half" .`,
	`<m7> <label> "word" .`,
	`<m8> <label> "tagged" .`,
}, "\n")

type backend struct {
	name string
	idx  index.Index
}

// backends loads nt into every index implementation
func backends(t *testing.T, nt string) []backend {
	t.Helper()
	mem, triples := newIndex(t, nt)

	store, err := storage.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	_, _, err = storage.LoadNTriples(strings.NewReader(nt), store, 4)
	require.NoError(t, err)

	bleveIdx, err := search.NewMemIndex()
	require.NoError(t, err)
	t.Cleanup(func() { bleveIdx.Close() })
	_, err = bleveIdx.Add(triples...)
	require.NoError(t, err)

	return []backend{
		{"memory", mem},
		{"badger", store},
		{"bleve", bleveIdx},
	}
}

func parsePatterns(t *testing.T, text string) []rdf.TriplePattern {
	t.Helper()
	patterns, err := rdf.ParsePatterns(text)
	require.NoError(t, err)
	return patterns
}

func parseFilters(t *testing.T, exprs ...string) *rdf.FilterSet {
	t.Helper()
	fs := rdf.NewFilterSet()
	for _, e := range exprs {
		c, err := rdf.ParseComparison(e)
		require.NoError(t, err)
		fs.Add(c)
	}
	return fs
}

// canonical renders a variable map with sorted variables, so results can
// be compared independent of binding chain order
func canonical(m map[rdf.Var]rdf.Term) string {
	parts := make([]string, 0, len(m))
	for v, t := range m {
		parts = append(parts, v.String()+"="+t.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func collect(t *testing.T, it BindingIterator) []string {
	t.Helper()
	var out []string
	for it.Next() {
		out = append(out, canonical(it.Binding().Map()))
	}
	require.NoError(t, it.Err())
	return out
}

// bruteForce joins patterns by enumerating every combination of triples
func bruteForce(triples []rdf.Triple, patterns []rdf.TriplePattern) []string {
	var out []string
	var rec func(i int, b map[rdf.Var]rdf.Term)
	rec = func(i int, b map[rdf.Var]rdf.Term) {
		if i == len(patterns) {
			out = append(out, canonical(b))
			return
		}
		for _, tr := range triples {
			nb := make(map[rdf.Var]rdf.Term, len(b)+3)
			for k, v := range b {
				nb[k] = v
			}
			ok := true
			for _, slot := range rdf.Slots {
				n := patterns[i].Get(slot)
				val := tr.Get(slot)
				if !n.IsVariable() {
					ok = ok && n.Term() == val
					continue
				}
				if prev, bound := nb[n.Var()]; bound {
					ok = ok && prev == val
				} else {
					nb[n.Var()] = val
				}
			}
			if ok {
				rec(i+1, nb)
			}
		}
	}
	rec(0, map[rdf.Var]rdf.Term{})
	return out
}

func permutations(patterns []rdf.TriplePattern) [][]rdf.TriplePattern {
	if len(patterns) <= 1 {
		return [][]rdf.TriplePattern{append([]rdf.TriplePattern(nil), patterns...)}
	}
	var out [][]rdf.TriplePattern
	for i := range patterns {
		rest := make([]rdf.TriplePattern, 0, len(patterns)-1)
		rest = append(rest, patterns[:i]...)
		rest = append(rest, patterns[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]rdf.TriplePattern{patterns[i]}, p...))
		}
	}
	return out
}

// failingIndex wraps an index and fails selected operations
type failingIndex struct {
	inner       index.Index
	failResolve string // substring of predicate strings to fail on
	failDocs    bool
}

func (f *failingIndex) Resolve(pred *index.Predicate) (*index.DocSet, error) {
	if f.failResolve != "" && strings.Contains(pred.String(), f.failResolve) {
		return nil, fmt.Errorf("%w: disk unavailable", index.ErrIndexAccess)
	}
	return f.inner.Resolve(pred)
}

func (f *failingIndex) Document(id index.DocID) (index.Document, error) {
	if f.failDocs {
		return nil, fmt.Errorf("%w: read %d", index.ErrIndexAccess, id)
	}
	return f.inner.Document(id)
}

// crashingIndex panics when resolving predicates that mention on
type crashingIndex struct {
	inner index.Index
	on    string
}

func (c *crashingIndex) Resolve(pred *index.Predicate) (*index.DocSet, error) {
	if strings.Contains(pred.String(), c.on) {
		panic("corrupt posting list")
	}
	return c.inner.Resolve(pred)
}

func (c *crashingIndex) Document(id index.DocID) (index.Document, error) {
	return c.inner.Document(id)
}

// panickyIndex proves no index call happens
type panickyIndex struct{}

func (panickyIndex) Resolve(*index.Predicate) (*index.DocSet, error) {
	return nil, errors.New("unexpected resolve")
}

func (panickyIndex) Document(index.DocID) (index.Document, error) {
	return nil, errors.New("unexpected document read")
}

// eventRecorder is a concurrency-safe annotations handler
type eventRecorder struct {
	mu     sync.Mutex
	events []annotations.Event
}

func (r *eventRecorder) handle(e annotations.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

func (r *eventRecorder) count(name string) int {
	n := 0
	for _, got := range r.names() {
		if got == name {
			n++
		}
	}
	return n
}
