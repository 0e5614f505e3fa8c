package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/annotations"
	"github.com/wbrown/janus-rdf/rdf/index"
)

func TestTwoDocumentScenario(t *testing.T) {
	idx, _ := newIndex(t, `
<x> <p1> "a" .
<x> <p2> "b" .
`)
	exec := NewExecutor(idx, DefaultOptions())
	patterns := parsePatterns(t, `
?s <p1> "a"
?s <p2> ?o
`)

	got := collect(t, exec.Execute(context.Background(), patterns, nil))
	assert.Equal(t, []string{`?o="b" ?s=<x>`}, got)
}

func TestSinglePatternPassThrough(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())
	patterns := parsePatterns(t, "?p <knows> ?f")

	res := exec.Execute(context.Background(), patterns, nil)
	got := collect(t, res)

	// Expand the pattern's own documents directly
	docs, err := idx.Resolve(index.NewPredicate().AddTerm(index.FieldPredicate, "<knows>"))
	require.NoError(t, err)
	var want []string
	for _, id := range docs.IDs() {
		doc, err := idx.Document(id)
		require.NoError(t, err)
		want = append(want, canonical(map[rdf.Var]rdf.Term{
			"p": doc.Term(rdf.Subject),
			"f": doc.Term(rdf.Object),
		}))
	}
	assert.Equal(t, want, got)
	assert.Equal(t, docs.Size(), res.Size())
}

func TestJoinMatchesBruteForce(t *testing.T) {
	idx, triples := newIndex(t, socialNT)

	queries := map[string]string{
		"star": `
?p <knows> ?f
?f <name> ?n
?f <age> ?a`,
		"chain": `
?a <knows> ?b
?b <knows> ?c
?c <name> ?n`,
		"cycle": `
?x <knows> ?y
?y <knows> ?x`,
		"object to subject": `
?p <name> "Bob"
?q <knows> ?p
?q <age> ?age`,
		"shared predicate": `
<alice> ?rel ?o
?s ?rel <carol>`,
		"repeated variable": `
?x <sameAs> ?x
?x <name> ?n`,
	}

	for name, text := range queries {
		t.Run(name, func(t *testing.T) {
			patterns := parsePatterns(t, text)
			want := bruteForce(triples, patterns)
			require.NotEmpty(t, want)

			for _, parallel := range []bool{false, true} {
				opts := DefaultOptions()
				opts.ParallelJoin = parallel
				got := collect(t, NewExecutor(idx, opts).Execute(context.Background(), patterns, nil))
				assert.ElementsMatch(t, want, got, "parallel=%v", parallel)
			}
		})
	}
}

func TestOrderIndependence(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())
	patterns := parsePatterns(t, `
?a <knows> ?b
?b <knows> ?c
?c <age> ?age`)

	var reference []string
	for i, perm := range permutations(patterns) {
		got := collect(t, exec.Execute(context.Background(), perm, nil))
		if i == 0 {
			reference = got
			require.NotEmpty(t, reference)
			continue
		}
		assert.ElementsMatch(t, reference, got, "permutation %d: %v", i, perm)
	}
}

func TestOnceOnlyBinding(t *testing.T) {
	idx, triples := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())
	patterns := parsePatterns(t, `
?p <knows> ?f
?f <knows> ?g
?p <name> ?n`)

	res := exec.Execute(context.Background(), patterns, nil)
	present := make(map[rdf.Triple]bool, len(triples))
	for _, tr := range triples {
		present[tr] = true
	}

	n := 0
	for res.Next() {
		b := res.Binding()
		n++
		// Every variable is bound exactly once in the chain
		seen := make(map[rdf.Var]bool)
		for _, v := range b.Vars() {
			assert.False(t, seen[v], "%s bound twice in %s", v, b)
			seen[v] = true
		}
		// And the single value satisfies every pattern
		for _, p := range patterns {
			sub := p.Substitute(b)
			tr := rdf.Triple{S: sub.S.Term(), P: sub.P.Term(), O: sub.O.Term()}
			assert.True(t, present[tr], "%s not in data for %s", tr, b)
		}
	}
	require.NoError(t, res.Err())
	assert.Equal(t, 5, n)
}

func TestEmptyOperand(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())

	patterns := parsePatterns(t, `
?p <knows> ?f
?f <salary> ?s
?f <name> ?n`)
	for _, perm := range permutations(patterns) {
		res := exec.Execute(context.Background(), perm, nil)
		assert.Empty(t, collect(t, res))
		assert.Equal(t, 0, res.Size())
	}
}

func TestCartesianProduct(t *testing.T) {
	idx, _ := newIndex(t, `
<a1> <p> "1" .
<a2> <p> "2" .
<b1> <q> "x" .
<b2> <q> "y" .
<b3> <q> "z" .
`)
	exec := NewExecutor(idx, DefaultOptions())
	patterns := parsePatterns(t, `
?a <p> ?b
?c <q> ?d`)

	left := collect(t, exec.Execute(context.Background(), patterns[:1], nil))
	right := collect(t, exec.Execute(context.Background(), patterns[1:], nil))
	var want []string
	for _, l := range left {
		for _, r := range right {
			want = append(want, l+" "+r)
		}
	}

	got := collect(t, exec.Execute(context.Background(), patterns, nil))
	assert.Len(t, got, 6)
	// ?a ?b sort before ?c ?d, so concatenation is canonical
	assert.ElementsMatch(t, want, got)
}

func TestPatternFailureYieldsNoBindings(t *testing.T) {
	mem, _ := newIndex(t, `
<x> <p1> "a" .
<x> <p2> "b" .
`)
	idx := &failingIndex{inner: mem, failResolve: "<p2>"}
	rec := &eventRecorder{}
	opts := DefaultOptions()
	opts.Handler = rec.handle
	exec := NewExecutor(idx, opts)

	patterns := parsePatterns(t, `
?s <p1> "a"
?s <p2> ?o`)

	var res *Result
	require.NotPanics(t, func() {
		res = exec.Execute(context.Background(), patterns, nil)
	})
	assert.Empty(t, collect(t, res))
	assert.NoError(t, res.Err())
	assert.Equal(t, 1, rec.count(annotations.ErrorPatternResolution))
}

func TestPatternPanicYieldsNoBindings(t *testing.T) {
	mem, _ := newIndex(t, `
<x> <p1> "a" .
<x> <p2> "b" .
`)
	idx := &crashingIndex{inner: mem, on: "<p2>"}
	rec := &eventRecorder{}
	opts := DefaultOptions()
	opts.Handler = rec.handle
	exec := NewExecutor(idx, opts)

	patterns := parsePatterns(t, `
?s <p1> "a"
?s <p2> ?o`)

	var res *Result
	require.NotPanics(t, func() {
		res = exec.Execute(context.Background(), patterns, nil)
	})
	assert.Empty(t, collect(t, res))
	assert.NoError(t, res.Err())
	assert.Equal(t, 1, rec.count(annotations.ErrorPatternResolution))

	// The other pattern still resolves on its own
	res = exec.Execute(context.Background(), patterns[:1], nil)
	assert.Len(t, collect(t, res), 1)
}

func TestMalformedPatternYieldsNoBindings(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())

	patterns := []rdf.TriplePattern{
		rdf.NewTriplePattern(rdf.VarNode("p"), rdf.TermNode(rdf.NewIRI("name")), rdf.VarNode("n")),
		rdf.NewTriplePattern(rdf.VarNode("p"), rdf.TermNode(rdf.NewLiteral("age")), rdf.VarNode("a")),
	}
	res := exec.Execute(context.Background(), patterns, nil)
	assert.Empty(t, collect(t, res))
}

func TestDocumentFailureEndsExecution(t *testing.T) {
	mem, _ := newIndex(t, socialNT)
	idx := &failingIndex{inner: mem, failDocs: true}
	exec := NewExecutor(idx, DefaultOptions())

	patterns := parsePatterns(t, `
?p <knows> ?f
?f <name> ?n`)
	res := exec.Execute(context.Background(), patterns, nil)
	assert.False(t, res.Next())
	assert.ErrorIs(t, res.Err(), index.ErrIndexAccess)
	assert.Nil(t, res.DocSet())

	bindings, err := res.All()
	assert.Empty(t, bindings)
	assert.Error(t, err)
}

func TestPushdownIdempotence(t *testing.T) {
	tables := []struct {
		name     string
		nt       string
		patterns string
		filters  []string
	}{
		{
			name: "social",
			nt:   socialNT,
			patterns: `
?p <age> ?a
?p <name> ?n`,
			filters: []string{
				"?a > 26",
				"?a < 31",
				"?a = 30",
				"?a = 30.0",
				`?n = "Bob"`,
				"?a >= 30",
				"?a != 25",
				`?a > "x"`,
			},
		},
		{
			name: "edge values",
			nt:   edgeNT,
			patterns: `
?m <v> ?o
?m <label> ?l`,
			filters: []string{
				"?o = 5",
				"?o >= 5",
				"?o <= 5",
				"?o > -1",
				"?o < 0",
				"?o = 0",
				"?o = -0",
				"?o = 0.0",
				"?o != 5",
				`?o = "five"`,
				`?o = "5"@en`,
				`?o = "NaN"^^<http://www.w3.org/2001/XMLSchema#double>`,
				`?o > "NaN"^^<http://www.w3.org/2001/XMLSchema#double>`,
			},
		},
	}
	for _, table := range tables {
		patterns := parsePatterns(t, table.patterns)
		for _, be := range backends(t, table.nt) {
			for _, f := range table.filters {
				t.Run(table.name+"/"+be.name+"/"+f, func(t *testing.T) {
					off := DefaultOptions()
					off.FilterPushdown = false
					plain := parseFilters(t, f)
					unpushed := NewExecutor(be.idx, off).Execute(context.Background(), patterns, plain)
					require.Equal(t, 1, plain.Len())
					want := collect(t, unpushed.Filter(plain))

					pushed := parseFilters(t, f)
					res := NewExecutor(be.idx, DefaultOptions()).Execute(context.Background(), patterns, pushed)
					got := collect(t, res.Filter(pushed))

					assert.ElementsMatch(t, want, got)
				})
			}
		}
	}
}

func TestFilterEdgeValues(t *testing.T) {
	patterns := parsePatterns(t, "?m <v> ?o")
	tests := []struct {
		filter string
		want   []string
	}{
		{"?o = 0", []string{"<m2>", "<m3>"}},
		{"?o = -0", []string{"<m2>", "<m3>"}},
		{"?o = 5", []string{"<m4>", "<m5>"}},
		{"?o >= 5", []string{"<m4>", "<m5>"}},
		{"?o < 0", []string{"<m6>"}},
		{"?o != 5", []string{"<m1>", "<m2>", "<m3>", "<m6>", "<m7>", "<m8>"}},
		{`?o = "NaN"^^<http://www.w3.org/2001/XMLSchema#double>`, []string{"<m1>"}},
		{`?o = "5"@en`, []string{"<m8>"}},
	}
	for _, be := range backends(t, edgeNT) {
		for _, tt := range tests {
			t.Run(be.name+"/"+tt.filter, func(t *testing.T) {
				filters := parseFilters(t, tt.filter)
				res := NewExecutor(be.idx, DefaultOptions()).Execute(context.Background(), patterns, filters)
				var got []string
				for res.Next() {
					b := res.Binding()
					if filters.Accepts(b) {
						m, _ := b.Get("m")
						got = append(got, m.String())
					}
				}
				require.NoError(t, res.Err())
				assert.ElementsMatch(t, tt.want, got)
			})
		}
	}
}

func TestPushdownConsumesFilters(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())
	patterns := parsePatterns(t, `
?p <age> ?a
?p <name> ?n`)

	filters := parseFilters(t, "?a > 26", "?a >= 30", `?n = "Alice"`)
	res := exec.Execute(context.Background(), patterns, filters)

	remaining := filters.Comparisons()
	require.Len(t, remaining, 1)
	assert.Equal(t, rdf.OpGTE, remaining[0].Op)

	// Pushed filters already narrowed the documents
	assert.Equal(t, []string{`?a="30"^^<http://www.w3.org/2001/XMLSchema#integer> ?n="Alice" ?p=<alice>`},
		collect(t, res.Filter(filters)))
}

func TestEmptyBGP(t *testing.T) {
	exec := NewExecutor(panickyIndex{}, DefaultOptions())
	res := exec.Execute(context.Background(), nil, nil)
	assert.False(t, res.Next())
	assert.NoError(t, res.Err())
	assert.Nil(t, res.DocSet())
}

func TestFullyConstantBGP(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())
	patterns := parsePatterns(t, `
<alice> <knows> <bob>
<bob> <knows> <carol>`)

	res := exec.Execute(context.Background(), patterns, nil)
	assert.Empty(t, collect(t, res))
	assert.Equal(t, 1, res.Size())
}

func TestExecuteWithInputBinding(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())

	parent := rdf.NewBinding(nil)
	require.NoError(t, parent.Add("p", rdf.NewIRI("alice")))

	patterns := parsePatterns(t, `
?p <knows> ?f
?f <name> ?n`)
	res := exec.ExecuteWithInput(context.Background(), Input{Binding: parent}, patterns, nil)

	assert.Equal(t, []rdf.Var{"p", "f", "n"}, res.Vars())
	assert.ElementsMatch(t, []string{
		`?f=<bob> ?n="Bob" ?p=<alice>`,
		`?f=<carol> ?n="Carol" ?p=<alice>`,
	}, collect(t, res))
}

func TestExecuteWithInputDocSet(t *testing.T) {
	idx, triples := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())

	first := parsePatterns(t, "?p <knows> ?f")
	upstream := exec.Execute(context.Background(), first, nil)
	require.NotNil(t, upstream.DocSet())

	second := parsePatterns(t, `
?f <name> ?n
?f <age> ?a`)
	res := exec.ExecuteWithInput(context.Background(), Input{DocSet: upstream.DocSet()}, second, nil)

	want := bruteForce(triples, append(first, second...))
	assert.ElementsMatch(t, want, collect(t, res))
}

func TestExecutionCancelled(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := exec.Execute(ctx, parsePatterns(t, "?p <knows> ?f\n?f <name> ?n"), nil)
	assert.False(t, res.Next())
	assert.ErrorIs(t, res.Err(), context.Canceled)
}

func TestResultCloseStopsIteration(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())
	res := exec.Execute(context.Background(), parsePatterns(t, "?s <name> ?n"), nil)

	require.True(t, res.Next())
	require.NoError(t, res.Close())
	assert.False(t, res.Next())
	assert.Nil(t, res.Binding())
}

func TestExecutionAnnotations(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	rec := &eventRecorder{}
	opts := DefaultOptions()
	opts.Handler = rec.handle
	exec := NewExecutor(idx, opts)

	res := exec.Execute(context.Background(), parsePatterns(t, `
?p <knows> ?f
?f <name> ?n
?f <age> ?a`), parseFilters(t, "?a > 20"))
	_, err := res.All()
	require.NoError(t, err)

	assert.Equal(t, 1, rec.count(annotations.BGPBegin))
	assert.Equal(t, 3, rec.count(annotations.PatternResolved))
	assert.Equal(t, 1, rec.count(annotations.PlanOrdered))
	assert.Equal(t, 2, rec.count(annotations.JoinStep))
	assert.Equal(t, 1, rec.count(annotations.BGPComplete))
	assert.Equal(t, 1, rec.count(annotations.BindingsCollected))

	names := rec.names()
	assert.Equal(t, annotations.BGPBegin, names[0])
	assert.Equal(t, annotations.BindingsCollected, names[len(names)-1])
	for _, e := range rec.events {
		assert.Equal(t, res.ExecutionID(), e.Data["execution.id"], e.Name)
	}
}

func TestExplain(t *testing.T) {
	idx, _ := newIndex(t, socialNT)
	exec := NewExecutor(idx, DefaultOptions())
	filters := parseFilters(t, "?a > 26", "?a != 30")

	plan, err := exec.Explain(context.Background(), parsePatterns(t, `
?p <name> ?n
?p <age> ?a`), filters)
	require.NoError(t, err)

	assert.Equal(t,
		"BGP Plan:\n"+
			"  1. (?p <age> ?a) [+p:\"<age>\" +o_n:{26 TO *}, docs=2]\n"+
			"  2. (?p <name> ?n) [+p:\"<name>\", docs=4]\n"+
			"Remaining filters: [(?a != \"30\"^^<http://www.w3.org/2001/XMLSchema#integer>)]\n",
		plan)
	assert.Equal(t, 2, filters.Len(), "explain must not consume filters")
}
