package index

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// DocSet is an immutable set of document ids backed by a roaring bitmap
type DocSet struct {
	bits *roaring.Bitmap
}

// NewDocSet creates a set from ids
func NewDocSet(ids ...DocID) *DocSet {
	return &DocSet{bits: roaring.BitmapOf(ids...)}
}

// FromBitmap wraps a bitmap. The caller hands over ownership.
func FromBitmap(bits *roaring.Bitmap) *DocSet {
	if bits == nil {
		bits = roaring.New()
	}
	return &DocSet{bits: bits}
}

// EmptyDocSet returns a set with no documents
func EmptyDocSet() *DocSet {
	return &DocSet{bits: roaring.New()}
}

// Size returns the exact number of documents
func (d *DocSet) Size() int {
	if d == nil {
		return 0
	}
	return int(d.bits.GetCardinality())
}

// IsEmpty reports an empty set
func (d *DocSet) IsEmpty() bool {
	return d == nil || d.bits.IsEmpty()
}

// Contains reports membership
func (d *DocSet) Contains(id DocID) bool {
	return d != nil && d.bits.Contains(id)
}

// And returns the intersection
func (d *DocSet) And(other *DocSet) *DocSet {
	if d == nil || other == nil {
		return EmptyDocSet()
	}
	return &DocSet{bits: roaring.And(d.bits, other.bits)}
}

// Or returns the union
func (d *DocSet) Or(other *DocSet) *DocSet {
	switch {
	case d == nil && other == nil:
		return EmptyDocSet()
	case d == nil:
		return &DocSet{bits: other.bits.Clone()}
	case other == nil:
		return &DocSet{bits: d.bits.Clone()}
	}
	return &DocSet{bits: roaring.Or(d.bits, other.bits)}
}

// Filter returns the subset of ids for which keep returns true
func (d *DocSet) Filter(keep func(DocID) (bool, error)) (*DocSet, error) {
	out := roaring.New()
	it := d.Iterator()
	for it.HasNext() {
		id := it.Next()
		ok, err := keep(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Add(id)
		}
	}
	return &DocSet{bits: out}, nil
}

// Iterator walks ids in ascending order
func (d *DocSet) Iterator() roaring.IntPeekable {
	if d == nil {
		return roaring.New().Iterator()
	}
	return d.bits.Iterator()
}

// IDs returns all ids in ascending order
func (d *DocSet) IDs() []DocID {
	if d == nil {
		return nil
	}
	return d.bits.ToArray()
}

func (d *DocSet) String() string {
	if d == nil {
		return "{}"
	}
	return d.bits.String()
}
