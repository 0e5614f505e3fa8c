package storage

import (
	"math"
	"os"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
)

const peopleNT = `
<alice> <name> "Alice" .
<alice> <age> "30"^^<http://www.w3.org/2001/XMLSchema#integer> .
<bob> <name> "Bob" .
<bob> <age> "25"^^<http://www.w3.org/2001/XMLSchema#integer> .
<carol> <age> "-4.5"^^<http://www.w3.org/2001/XMLSchema#decimal> .
<bob> <knows> <alice> .
`

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	read, added, err := LoadNTriples(strings.NewReader(peopleNT), store, 2)
	require.NoError(t, err)
	require.Equal(t, 6, read)
	require.Equal(t, 6, added)
	return store
}

func subjects(t *testing.T, store *BadgerStore, docs *index.DocSet) []string {
	t.Helper()
	var out []string
	for _, id := range docs.IDs() {
		doc, err := store.Document(id)
		require.NoError(t, err)
		out = append(out, doc.Get(index.FieldSubject))
	}
	return out
}

func TestBadgerStoreResolveTerms(t *testing.T) {
	store := newTestStore(t)

	names, err := store.Resolve(index.NewPredicate().AddTerm(index.FieldPredicate, "<name>"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"<alice>", "<bob>"}, subjects(t, store, names))

	bobName, err := store.Resolve(index.NewPredicate().
		AddTerm(index.FieldSubject, "<bob>").
		AddTerm(index.FieldPredicate, "<name>"))
	require.NoError(t, err)
	require.Equal(t, 1, bobName.Size())

	v, err := index.FieldValue(store, bobName.IDs()[0], index.FieldObject)
	require.NoError(t, err)
	assert.Equal(t, `"Bob"`, v)

	none, err := store.Resolve(index.NewPredicate().AddTerm(index.FieldSubject, "<nobody>"))
	require.NoError(t, err)
	assert.True(t, none.IsEmpty())
}

func TestBadgerStoreResolveAll(t *testing.T) {
	store := newTestStore(t)
	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestBadgerStoreResolveRanges(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		pred *index.Predicate
		want []string
	}{
		{
			name: "greater than",
			pred: index.NewPredicate().AddRange(index.FieldObjectNumeric, index.Float(25), nil, false, true),
			want: []string{"<alice>"},
		},
		{
			name: "less than",
			pred: index.NewPredicate().AddRange(index.FieldObjectNumeric, nil, index.Float(30), true, false),
			want: []string{"<bob>", "<carol>"},
		},
		{
			name: "point",
			pred: index.NewPredicate().AddRange(index.FieldObjectNumeric, index.Float(25), index.Float(25), true, true),
			want: []string{"<bob>"},
		},
		{
			name: "negative bound",
			pred: index.NewPredicate().AddRange(index.FieldObjectNumeric, index.Float(-10), index.Float(0), true, true),
			want: []string{"<carol>"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := store.Resolve(tt.pred)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, subjects(t, store, docs))
		})
	}
}

func TestBadgerStoreSignedZero(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, _, err = LoadNTriples(strings.NewReader(`
<neg> <v> "-0"^^<http://www.w3.org/2001/XMLSchema#integer> .
<pos> <v> "0"^^<http://www.w3.org/2001/XMLSchema#integer> .
<nan> <v> "NaN"^^<http://www.w3.org/2001/XMLSchema#double> .
<one> <v> "1"^^<http://www.w3.org/2001/XMLSchema#integer> .
`), store, 10)
	require.NoError(t, err)

	negZero := math.Copysign(0, -1)
	for name, pred := range map[string]*index.Predicate{
		"zero bounds":          index.NewPredicate().AddRange(index.FieldObjectNumeric, index.Float(0), index.Float(0), true, true),
		"negative zero bounds": index.NewPredicate().AddRange(index.FieldObjectNumeric, &negZero, &negZero, true, true),
		"negative zero max":    index.NewPredicate().AddRange(index.FieldObjectNumeric, nil, &negZero, true, true),
	} {
		t.Run(name, func(t *testing.T) {
			docs, err := store.Resolve(pred)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"<neg>", "<pos>"}, subjects(t, store, docs))
		})
	}

	// A raw clause skips predicate normalisation
	err = store.db.View(func(txn *badger.Txn) error {
		bits, err := scanRange(txn, index.RangeClause{
			Field: index.FieldObjectNumeric, Min: &negZero, Max: &negZero,
			MinInclusive: true, MaxInclusive: true,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), bits.GetCardinality())
		return nil
	})
	require.NoError(t, err)

	all, err := store.Resolve(index.NewPredicate().AddRange(index.FieldObjectNumeric, nil, nil, true, true))
	require.NoError(t, err)
	assert.NotContains(t, subjects(t, store, all), "<nan>")
}

func TestBadgerStoreDeduplicatesAndRemoves(t *testing.T) {
	store := newTestStore(t)
	alice, err := rdf.ParseTriple(`<alice> <name> "Alice" .`)
	require.NoError(t, err)

	added, err := store.Add(alice)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	removed, err := store.Remove(alice, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	names, err := store.Resolve(index.NewPredicate().AddTerm(index.FieldPredicate, "<name>"))
	require.NoError(t, err)
	assert.Equal(t, []string{"<bob>"}, subjects(t, store, names))

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestBadgerStoreMissingDocument(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Document(12345)
	assert.ErrorIs(t, err, index.ErrDocumentNotFound)
}

func TestBadgerStorePersistence(t *testing.T) {
	dir, err := os.MkdirTemp("", "badger-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	store, err := NewBadgerStore(dir)
	require.NoError(t, err)
	_, _, err = LoadNTriples(strings.NewReader(peopleNT), store, 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	var triples []rdf.Triple
	require.NoError(t, reopened.Triples(func(tr rdf.Triple) error {
		triples = append(triples, tr)
		return nil
	}))
	assert.Len(t, triples, 6)

	// New documents must not reuse ids handed out before the restart
	extra, err := rdf.ParseTriple(`<dave> <name> "Dave" .`)
	require.NoError(t, err)
	added, err := reopened.Add(extra)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestLoadNTriplesReportsSyntaxErrors(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	read, _, err := LoadNTriples(strings.NewReader("<a> <p> <o> .\n<a> <p> .\n"), store, 10)
	assert.ErrorIs(t, err, rdf.ErrSyntax)
	assert.Equal(t, 1, read)
}
