package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/executor"
	"github.com/wbrown/janus-rdf/rdf/index"
)

func TestParseQuery(t *testing.T) {
	patterns, filters, err := parseQuery(`
# friends over thirty
?p <knows> ?f ; ?f <age> ?a
FILTER ?a > 30
filter (?f != <bob>)
`)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, "(?p <knows> ?f)", patterns[0].String())
	assert.Equal(t, "(?f <age> ?a)", patterns[1].String())

	cmps := filters.Comparisons()
	require.Len(t, cmps, 2)
	assert.Equal(t, rdf.OpGT, cmps[0].Op)
	assert.Equal(t, rdf.Var("f"), cmps[1].Var)
	assert.Equal(t, rdf.NewIRI("bob"), cmps[1].Value)
}

func TestParseQueryQuotedSemicolon(t *testing.T) {
	patterns, filters, err := parseQuery(`?s <p> "a;b" ; ?s <q> "say \"x;y\"" ; FILTER ?o = "c;d"`)
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, `(?s <p> "a;b")`, patterns[0].String())
	assert.Equal(t, rdf.NewLiteral(`say "x;y"`), patterns[1].O.Term())

	cmps := filters.Comparisons()
	require.Len(t, cmps, 1)
	assert.Equal(t, rdf.NewLiteral("c;d"), cmps[0].Value)

	assert.Equal(t, []string{`?s <p> "a;b" `, " ?s <q> ?o", ""}, splitStatements("?s <p> \"a;b\" ; ?s <q> ?o\n"))
}

func TestParseQueryErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"# only a comment",
		"FILTER ?a > 1",
		"?s <p>",
		"?s <p> ?o ; FILTER ?o ~ 3",
	} {
		_, _, err := parseQuery(text)
		assert.Error(t, err, "%q", text)
	}

	// A variable named like the keyword is still a pattern
	patterns, _, err := parseQuery("?FILTER <p> ?o")
	require.NoError(t, err)
	assert.Len(t, patterns, 1)
}

func TestEvaluate(t *testing.T) {
	var triples []rdf.Triple
	for _, line := range []string{
		`<alice> <age> "30"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
		`<bob> <age> "25"^^<http://www.w3.org/2001/XMLSchema#integer> .`,
	} {
		tr, err := rdf.ParseTriple(line)
		require.NoError(t, err)
		triples = append(triples, tr)
	}
	exec := executor.NewExecutor(index.NewMemoryIndex(triples...), executor.DefaultOptions())

	patterns, filters, err := parseQuery("?p <age> ?a ; FILTER ?a >= 26")
	require.NoError(t, err)

	out, err := evaluate(context.Background(), exec, patterns, filters)
	require.NoError(t, err)
	assert.Contains(t, out, "<alice>")
	assert.NotContains(t, out, "<bob>")
	assert.True(t, strings.Contains(out, "_1 rows ("), out)
}
