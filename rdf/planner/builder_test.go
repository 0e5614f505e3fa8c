package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-rdf/rdf"
)

func mustPattern(t *testing.T, s string) rdf.TriplePattern {
	t.Helper()
	p, err := rdf.ParsePattern(s)
	require.NoError(t, err)
	return p
}

func mustComparison(t *testing.T, s string) rdf.Comparison {
	t.Helper()
	c, err := rdf.ParseComparison(s)
	require.NoError(t, err)
	return c
}

func TestBuildConstantSlots(t *testing.T) {
	b := NewQueryBuilder(true)

	tests := []struct {
		pattern string
		want    string
	}{
		{"?s ?p ?o", "*:*"},
		{"<alice> ?p ?o", `+s:"<alice>"`},
		{`?s <name> "Alice"`, `+p:"<name>" +o:"\"Alice\""`},
		{"_:b1 <knows> <bob>", `+s:"_:b1" +p:"<knows>" +o:"<bob>"`},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			pred, consumed, err := b.Build(mustPattern(t, tt.pattern), nil)
			require.NoError(t, err)
			assert.Empty(t, consumed)
			assert.Equal(t, tt.want, pred.String())
		})
	}
}

func TestBuildPushdown(t *testing.T) {
	b := NewQueryBuilder(true)
	pattern := mustPattern(t, "?s <age> ?a")

	tests := []struct {
		name       string
		filter     string
		wantPred   string
		wantPushed bool
	}{
		{"greater than", "?a > 18", `+p:"<age>" +o_n:{18 TO *}`, true},
		{"less than", "?a < 65.5", `+p:"<age>" +o_n:{* TO 65.5}`, true},
		{"numeric equality", "?a = 30", `+p:"<age>" +o_n:[30 TO 30]`, true},
		{"string equality", `?a = "thirty"`, `+p:"<age>" +o_s:"thirty"`, true},
		{"iri equality", "?a = <unknown>", `+p:"<age>" +o:"<unknown>"`, true},
		{"greater than string", `?a > "abc"`, `+p:"<age>"`, false},
		{"at least", "?a >= 18", `+p:"<age>"`, false},
		{"at most", "?a <= 18", `+p:"<age>"`, false},
		{"not equal", "?a != 18", `+p:"<age>"`, false},
		{"other variable", "?s > 18", `+p:"<age>"`, false},
		{"negative zero", "?a = -0", `+p:"<age>" +o_n:[0 TO 0]`, true},
		{"nan equality", `?a = "NaN"^^<http://www.w3.org/2001/XMLSchema#double>`, `+p:"<age>" +o_s:"NaN"`, true},
		{"nan ordering", `?a > "NaN"^^<http://www.w3.org/2001/XMLSchema#double>`, `+p:"<age>"`, false},
		{"tagged number equality", `?a = "30"@en`, `+p:"<age>"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustComparison(t, tt.filter)
			pred, consumed, err := b.Build(pattern, []rdf.Comparison{c})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPred, pred.String())
			if tt.wantPushed {
				assert.Equal(t, []rdf.Comparison{c}, consumed)
			} else {
				assert.Empty(t, consumed)
			}
		})
	}
}

func TestBuildPushdownSeveralFilters(t *testing.T) {
	b := NewQueryBuilder(true)
	gt := mustComparison(t, "?a > 18")
	lt := mustComparison(t, "?a < 65")
	ge := mustComparison(t, "?a >= 21")

	pred, consumed, err := b.Build(mustPattern(t, "?s <age> ?a"), []rdf.Comparison{gt, ge, lt})
	require.NoError(t, err)
	assert.Equal(t, `+p:"<age>" +o_n:{18 TO *} +o_n:{* TO 65}`, pred.String())
	assert.Equal(t, []rdf.Comparison{gt, lt}, consumed)
}

func TestBuildPushdownDisabled(t *testing.T) {
	b := NewQueryBuilder(false)
	pred, consumed, err := b.Build(mustPattern(t, "?s <age> ?a"), []rdf.Comparison{mustComparison(t, "?a > 1")})
	require.NoError(t, err)
	assert.Empty(t, consumed)
	assert.Equal(t, 1, pred.Len())
}

func TestBuildConstantObjectIgnoresFilters(t *testing.T) {
	b := NewQueryBuilder(true)
	pred, consumed, err := b.Build(mustPattern(t, "?s <age> 30"), []rdf.Comparison{mustComparison(t, "?s = <x>")})
	require.NoError(t, err)
	assert.Empty(t, consumed)
	assert.Equal(t, 2, pred.Len())
}

func TestBuildMalformed(t *testing.T) {
	b := NewQueryBuilder(true)

	tests := []struct {
		name    string
		pattern rdf.TriplePattern
	}{
		{"zero node", rdf.NewTriplePattern(rdf.VarNode("s"), rdf.Node{}, rdf.VarNode("o"))},
		{"literal subject", rdf.NewTriplePattern(rdf.TermNode(rdf.NewLiteral("x")), rdf.VarNode("p"), rdf.VarNode("o"))},
		{"literal predicate", rdf.NewTriplePattern(rdf.VarNode("s"), rdf.TermNode(rdf.NewLiteral("p")), rdf.VarNode("o"))},
		{"blank predicate", rdf.NewTriplePattern(rdf.VarNode("s"), rdf.TermNode(rdf.NewBlank("p")), rdf.VarNode("o"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := b.Build(tt.pattern, nil)
			assert.ErrorIs(t, err, ErrMalformedPattern)
		})
	}
}
