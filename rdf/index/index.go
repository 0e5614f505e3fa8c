// Package index defines the boundary between the join engine and the
// triple document index: document fields, conjunctive predicates, document
// id sets and the Index interface the storage backends implement.
package index

import (
	"errors"
	"fmt"

	"github.com/wbrown/janus-rdf/rdf"
)

// ErrIndexAccess wraps backend I/O failures
var ErrIndexAccess = errors.New("index access failed")

// ErrDocumentNotFound is returned for an unknown document id
var ErrDocumentNotFound = errors.New("document not found")

// Field is a document field name
type Field string

const (
	FieldSubject       Field = "s"
	FieldPredicate     Field = "p"
	FieldObject        Field = "o"
	FieldObjectNumeric Field = "o_n" // numeric object value, numeric literals only
	FieldObjectString  Field = "o_s" // object lexical form, literals only
)

// SlotField maps a triple slot to the field holding its canonical term
func SlotField(slot rdf.Slot) Field {
	switch slot {
	case rdf.Subject:
		return FieldSubject
	case rdf.Predicate:
		return FieldPredicate
	default:
		return FieldObject
	}
}

// DocID identifies one stored triple document
type DocID = uint32

// Document is the stored form of one triple
type Document map[Field]string

// Get returns a field value (empty when absent)
func (d Document) Get(f Field) string {
	return d[f]
}

// Term materializes the term stored for a slot
func (d Document) Term(slot rdf.Slot) rdf.Term {
	return rdf.AsTerm(d[SlotField(slot)])
}

// Triple rebuilds the triple the document was indexed from
func (d Document) Triple() rdf.Triple {
	return rdf.Triple{S: d.Term(rdf.Subject), P: d.Term(rdf.Predicate), O: d.Term(rdf.Object)}
}

// NewDocument builds the indexed document for a triple
func NewDocument(t rdf.Triple) Document {
	doc := Document{
		FieldSubject:   t.S.String(),
		FieldPredicate: t.P.String(),
		FieldObject:    t.O.String(),
	}
	if t.O.IsLiteral() {
		doc[FieldObjectString] = t.O.Value()
	}
	if f, ok := t.O.Numeric(); ok {
		doc[FieldObjectNumeric] = formatFloat(f)
	}
	return doc
}

// Numeric returns the numeric object value, if any
func (d Document) Numeric() (float64, bool) {
	v, ok := d[FieldObjectNumeric]
	if !ok {
		return 0, false
	}
	return parseFloat(v)
}

// Index resolves predicates to document sets and reads stored documents.
// Implementations must be safe for concurrent use.
type Index interface {
	// Resolve returns the documents matching every clause of pred.
	// An empty predicate matches all documents.
	Resolve(pred *Predicate) (*DocSet, error)

	// Document returns the stored fields of one document
	Document(id DocID) (Document, error)
}

// FieldValue reads one stored field of one document
func FieldValue(idx Index, id DocID, field Field) (string, error) {
	doc, err := idx.Document(id)
	if err != nil {
		return "", err
	}
	v, ok := doc[field]
	if !ok {
		return "", fmt.Errorf("document %d has no field %q", id, field)
	}
	return v, nil
}
