// Package search is a Bleve-backed triple document index. Term fields use
// the keyword analyzer so term clauses are exact matches; the numeric
// object value is indexed as a Bleve numeric field for range clauses.
package search

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
)

// ErrIndexClosed is returned by operations on a closed index
var ErrIndexClosed = errors.New("bleve index is closed")

// pageSize bounds the hits fetched per search request
const pageSize = 10000

var storedFields = []string{
	string(index.FieldSubject),
	string(index.FieldPredicate),
	string(index.FieldObject),
}

// Options configures a BleveIndex
type Options struct {
	Path     string       // Index directory; empty means memory only
	Logger   *slog.Logger // Optional, uses slog.Default() if nil
	pageSize int
}

// BleveIndex implements index.Index on a Bleve index. Document ids are
// allocated locally and stored as the Bleve document id.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	logger *slog.Logger
	closed bool

	byTriple map[string]index.DocID
	nextID   index.DocID
	pageSize int
}

var _ index.Index = (*BleveIndex)(nil)

// NewMemIndex creates an index that lives only in memory
func NewMemIndex() (*BleveIndex, error) {
	return Open(Options{})
}

// Open opens the index at o.Path, creating it when missing
func Open(o Options) (*BleveIndex, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		idx bleve.Index
		err error
	)
	switch {
	case o.Path == "":
		idx, err = bleve.NewMemOnly(BuildIndexMapping())
	default:
		if _, statErr := os.Stat(o.Path); statErr == nil {
			idx, err = bleve.Open(o.Path)
		} else {
			idx, err = bleve.New(o.Path, BuildIndexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}

	b := &BleveIndex{
		index:    idx,
		logger:   logger,
		byTriple: make(map[string]index.DocID),
		pageSize: o.pageSize,
	}
	if b.pageSize <= 0 {
		b.pageSize = pageSize
	}
	if err := b.loadIDs(); err != nil {
		idx.Close()
		return nil, err
	}
	return b, nil
}

// BuildIndexMapping returns the mapping for triple documents
func BuildIndexMapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false

	for _, f := range []index.Field{
		index.FieldSubject,
		index.FieldPredicate,
		index.FieldObject,
		index.FieldObjectString,
	} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = f != index.FieldObjectString
		fm.Index = true
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(string(f), fm)
	}

	num := bleve.NewNumericFieldMapping()
	num.Store = false
	num.Index = true
	num.IncludeInAll = false
	doc.AddFieldMappingsAt(string(index.FieldObjectNumeric), num)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = keyword.Name
	return m
}

// loadIDs rebuilds the triple to id table from the stored documents
func (b *BleveIndex) loadIDs() error {
	return b.scan(bleve.NewMatchAllQuery(), storedFields, func(id index.DocID, fields map[string]interface{}) {
		b.byTriple[tripleKey(fields)] = id
		if id >= b.nextID {
			b.nextID = id + 1
		}
	})
}

func tripleKey(fields map[string]interface{}) string {
	s, _ := fields[string(index.FieldSubject)].(string)
	p, _ := fields[string(index.FieldPredicate)].(string)
	o, _ := fields[string(index.FieldObject)].(string)
	return s + " " + p + " " + o
}

// bleveDocument is the indexed form of one triple
func bleveDocument(t rdf.Triple) (map[string]interface{}, string) {
	doc := index.NewDocument(t)
	out := make(map[string]interface{}, len(doc))
	for f, v := range doc {
		out[string(f)] = v
	}
	if f, ok := doc.Numeric(); ok {
		out[string(index.FieldObjectNumeric)] = f
	}
	return out, doc.Get(index.FieldSubject) + " " + doc.Get(index.FieldPredicate) + " " + doc.Get(index.FieldObject)
}

// Add indexes triples in one batch, skipping ones already present.
// Returns the number of new documents.
func (b *BleveIndex) Add(triples ...rdf.Triple) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrIndexClosed
	}

	batch := b.index.NewBatch()
	pending := make(map[string]index.DocID)
	next := b.nextID
	for _, t := range triples {
		data, key := bleveDocument(t)
		if _, ok := b.byTriple[key]; ok {
			continue
		}
		if _, ok := pending[key]; ok {
			continue
		}
		if err := batch.Index(docKey(next), data); err != nil {
			return 0, fmt.Errorf("%w: index %s: %w", index.ErrIndexAccess, t, err)
		}
		pending[key] = next
		next++
	}
	if len(pending) == 0 {
		return 0, nil
	}
	if err := b.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("%w: commit batch: %w", index.ErrIndexAccess, err)
	}

	for key, id := range pending {
		b.byTriple[key] = id
	}
	b.nextID = next
	return len(pending), nil
}

// Remove deletes triples. Unknown triples are ignored.
func (b *BleveIndex) Remove(triples ...rdf.Triple) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrIndexClosed
	}

	batch := b.index.NewBatch()
	var keys []string
	for _, t := range triples {
		_, key := bleveDocument(t)
		id, ok := b.byTriple[key]
		if !ok {
			continue
		}
		batch.Delete(docKey(id))
		delete(b.byTriple, key)
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := b.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("%w: commit batch: %w", index.ErrIndexAccess, err)
	}
	return len(keys), nil
}

// Resolve implements index.Index
func (b *BleveIndex) Resolve(pred *index.Predicate) (*index.DocSet, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrIndexClosed
	}

	bits := roaring.New()
	err := b.scan(buildQuery(pred), nil, func(id index.DocID, _ map[string]interface{}) {
		bits.Add(id)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", index.ErrIndexAccess, pred, err)
	}
	return index.FromBitmap(bits), nil
}

// buildQuery translates a predicate into a conjunction of Bleve queries
func buildQuery(pred *index.Predicate) query.Query {
	clauses := pred.Clauses()
	if len(clauses) == 0 {
		return bleve.NewMatchAllQuery()
	}

	conj := bleve.NewConjunctionQuery()
	for _, c := range clauses {
		switch c := c.(type) {
		case index.TermClause:
			tq := bleve.NewTermQuery(c.Value)
			tq.SetField(string(c.Field))
			conj.AddQuery(tq)
		case index.RangeClause:
			minIncl, maxIncl := c.MinInclusive, c.MaxInclusive
			rq := bleve.NewNumericRangeInclusiveQuery(unsigned(c.Min), unsigned(c.Max), &minIncl, &maxIncl)
			rq.SetField(string(c.Field))
			conj.AddQuery(rq)
		}
	}
	return conj
}

// scan pages through every hit of q, calling fn with the parsed id and
// the requested stored fields
func (b *BleveIndex) scan(q query.Query, fields []string, fn func(index.DocID, map[string]interface{})) error {
	for from := 0; ; from += b.pageSize {
		req := bleve.NewSearchRequestOptions(q, b.pageSize, from, false)
		req.Fields = fields
		req.SortBy([]string{"_id"})
		res, err := b.index.Search(req)
		if err != nil {
			return err
		}
		for _, hit := range res.Hits {
			id, err := parseDocKey(hit.ID)
			if err != nil {
				return err
			}
			fn(id, hit.Fields)
		}
		if len(res.Hits) < b.pageSize {
			return nil
		}
	}
}

// Document implements index.Index
func (b *BleveIndex) Document(id index.DocID) (index.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrIndexClosed
	}

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{docKey(id)}))
	req.Size = 1
	req.Fields = storedFields
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: read document %d: %w", index.ErrIndexAccess, id, err)
	}
	if len(res.Hits) == 0 {
		return nil, fmt.Errorf("%w: %d", index.ErrDocumentNotFound, id)
	}

	fields := res.Hits[0].Fields
	var terms [3]rdf.Term
	for i, slot := range rdf.Slots {
		v, ok := fields[string(index.SlotField(slot))].(string)
		if !ok {
			return nil, fmt.Errorf("%w: document %d lacks field %s", index.ErrIndexAccess, id, index.SlotField(slot))
		}
		terms[i] = rdf.AsTerm(v)
	}
	return index.NewDocument(rdf.Triple{S: terms[0], P: terms[1], O: terms[2]}), nil
}

// Count returns the number of indexed documents
func (b *BleveIndex) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, ErrIndexClosed
	}
	n, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", index.ErrIndexAccess, err)
	}
	return int(n), nil
}

// Close closes the underlying index
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.index.Close(); err != nil {
		b.logger.Warn("failed to close bleve index", "error", err)
		return err
	}
	return nil
}

func docKey(id index.DocID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseDocKey(key string) (index.DocID, error) {
	id, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed document id %q: %w", key, err)
	}
	return index.DocID(id), nil
}

// unsigned maps a -0 bound to +0; bleve's numeric encoding orders -0 below +0.
func unsigned(f *float64) *float64 {
	if f == nil || *f != 0 {
		return f
	}
	zero := 0.0
	return &zero
}
