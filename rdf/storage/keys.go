package storage

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
)

// KeySpace separates the key namespaces stored in Badger
type KeySpace uint8

const (
	// SpaceDocument: docID -> encoded document
	SpaceDocument KeySpace = iota + 1
	// SpaceTerm: field + value + docID -> nil (postings)
	SpaceTerm
	// SpaceNumeric: sortable float + docID -> nil (numeric object postings)
	SpaceNumeric
	// SpaceTriple: s + p + o -> docID (deduplication)
	SpaceTriple
	// SpaceMeta: sequence counters
	SpaceMeta
)

func (k KeySpace) String() string {
	switch k {
	case SpaceDocument:
		return "document"
	case SpaceTerm:
		return "term"
	case SpaceNumeric:
		return "numeric"
	case SpaceTriple:
		return "triple"
	case SpaceMeta:
		return "meta"
	default:
		return "unknown"
	}
}

const docIDSize = 4

var sequenceKey = []byte{byte(SpaceMeta), 's', 'e', 'q'}

// concatBytes efficiently concatenates byte slices
func concatBytes(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}

	result := make([]byte, size)
	offset := 0
	for _, p := range parts {
		copy(result[offset:], p)
		offset += len(p)
	}

	return result
}

func encodeDocID(id index.DocID) []byte {
	b := make([]byte, docIDSize)
	binary.BigEndian.PutUint32(b, id)
	return b
}

// docIDFromKey reads the document id stored in the last four key bytes
func docIDFromKey(key []byte) (index.DocID, error) {
	if len(key) < 1+docIDSize {
		return 0, fmt.Errorf("key too short: %d bytes", len(key))
	}
	return binary.BigEndian.Uint32(key[len(key)-docIDSize:]), nil
}

// lengthPrefixed encodes s with a 4-byte length so that one encoded value
// is never a prefix of another
func lengthPrefixed(s string) []byte {
	b := make([]byte, 4+len(s))
	binary.BigEndian.PutUint32(b, uint32(len(s)))
	copy(b[4:], s)
	return b
}

func documentKey(id index.DocID) []byte {
	return concatBytes([]byte{byte(SpaceDocument)}, encodeDocID(id))
}

// termPrefix is the posting-list prefix for one field value
func termPrefix(field index.Field, value string) []byte {
	return concatBytes([]byte{byte(SpaceTerm)}, lengthPrefixed(string(field)), lengthPrefixed(value))
}

func termKey(field index.Field, value string, id index.DocID) []byte {
	return concatBytes(termPrefix(field, value), encodeDocID(id))
}

func numericKey(f float64, id index.DocID) []byte {
	return concatBytes([]byte{byte(SpaceNumeric)}, sortableFloat(f), encodeDocID(id))
}

func tripleKey(t rdf.Triple) []byte {
	return concatBytes([]byte{byte(SpaceTriple)},
		lengthPrefixed(t.S.String()),
		lengthPrefixed(t.P.String()),
		lengthPrefixed(t.O.String()))
}

// sortableFloat encodes f so that byte order matches numeric order
func sortableFloat(f float64) []byte {
	if f == 0 {
		f = 0 // -0 and +0 share a key
	}
	bits := math.Float64bits(f)
	if bits&(1<<63) == 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, bits)
	return b
}

func floatFromSortable(b []byte) float64 {
	bits := binary.BigEndian.Uint64(b)
	if bits&(1<<63) != 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// encodeDocument serializes a document as a field count followed by
// length-prefixed field/value pairs
func encodeDocument(doc index.Document) []byte {
	parts := [][]byte{{0}}
	for _, f := range documentFields {
		if v, ok := doc[f]; ok {
			parts = append(parts, lengthPrefixed(string(f)), lengthPrefixed(v))
			parts[0][0]++
		}
	}
	return concatBytes(parts...)
}

var documentFields = []index.Field{
	index.FieldSubject,
	index.FieldPredicate,
	index.FieldObject,
	index.FieldObjectNumeric,
	index.FieldObjectString,
}

func decodeDocument(b []byte) (index.Document, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("empty document value")
	}
	n := int(b[0])
	b = b[1:]
	doc := make(index.Document, n)
	readString := func() (string, error) {
		if len(b) < 4 {
			return "", fmt.Errorf("truncated document value")
		}
		l := int(binary.BigEndian.Uint32(b))
		if len(b) < 4+l {
			return "", fmt.Errorf("truncated document value")
		}
		s := string(b[4 : 4+l])
		b = b[4+l:]
		return s, nil
	}
	for i := 0; i < n; i++ {
		f, err := readString()
		if err != nil {
			return nil, err
		}
		v, err := readString()
		if err != nil {
			return nil, err
		}
		doc[index.Field(f)] = v
	}
	return doc, nil
}
