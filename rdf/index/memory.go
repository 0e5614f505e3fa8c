package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/wbrown/janus-rdf/rdf"
)

// MemoryIndex is an in-memory inverted index over triple documents.
// Term clauses are answered from per-field postings; range clauses scan
// the documents holding a numeric object.
type MemoryIndex struct {
	mu       sync.RWMutex
	docs     []Document
	postings map[Field]map[string]*roaring.Bitmap
	numeric  *roaring.Bitmap
	all      *roaring.Bitmap
	seen     map[rdf.Triple]DocID
}

// NewMemoryIndex creates an index holding the given triples
func NewMemoryIndex(triples ...rdf.Triple) *MemoryIndex {
	m := &MemoryIndex{
		postings: make(map[Field]map[string]*roaring.Bitmap),
		numeric:  roaring.New(),
		all:      roaring.New(),
		seen:     make(map[rdf.Triple]DocID),
	}
	m.Add(triples...)
	return m
}

// Add indexes triples, ignoring ones already present
func (m *MemoryIndex) Add(triples ...rdf.Triple) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range triples {
		if _, dup := m.seen[t]; dup {
			continue
		}
		id := DocID(len(m.docs))
		doc := NewDocument(t)
		m.docs = append(m.docs, doc)
		m.seen[t] = id
		m.all.Add(id)

		for field, value := range doc {
			if field == FieldObjectNumeric {
				m.numeric.Add(id)
				continue
			}
			byValue, ok := m.postings[field]
			if !ok {
				byValue = make(map[string]*roaring.Bitmap)
				m.postings[field] = byValue
			}
			bits, ok := byValue[value]
			if !ok {
				bits = roaring.New()
				byValue[value] = bits
			}
			bits.Add(id)
		}
	}
}

// Len returns the number of indexed documents
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Resolve implements Index
func (m *MemoryIndex) Resolve(pred *Predicate) (*DocSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := m.all.Clone()
	for _, c := range pred.Clauses() {
		switch c := c.(type) {
		case TermClause:
			bits, ok := m.postings[c.Field][c.Value]
			if !ok {
				return EmptyDocSet(), nil
			}
			result.And(bits)
		case RangeClause:
			matched := roaring.New()
			it := m.numeric.Iterator()
			for it.HasNext() {
				id := it.Next()
				if f, ok := parseFloat(m.docs[id][c.Field]); ok && c.Contains(f) {
					matched.Add(id)
				}
			}
			result.And(matched)
		}
		if result.IsEmpty() {
			break
		}
	}
	return FromBitmap(result), nil
}

// Document implements Index
func (m *MemoryIndex) Document(id DocID) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(id) >= len(m.docs) {
		return nil, ErrDocumentNotFound
	}
	return m.docs[id], nil
}
