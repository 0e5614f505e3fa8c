package rdf

import (
	"math"
	"strconv"
	"strings"
)

// numericDatatypes are the XSD types whose lexical forms are numbers
var numericDatatypes = map[string]bool{
	XSDInteger: true,
	XSDDecimal: true,
	XSDDouble:  true,
	XSDFloat:   true,
	"http://www.w3.org/2001/XMLSchema#int":                true,
	"http://www.w3.org/2001/XMLSchema#long":               true,
	"http://www.w3.org/2001/XMLSchema#short":              true,
	"http://www.w3.org/2001/XMLSchema#byte":               true,
	"http://www.w3.org/2001/XMLSchema#nonNegativeInteger": true,
	"http://www.w3.org/2001/XMLSchema#positiveInteger":    true,
	"http://www.w3.org/2001/XMLSchema#nonPositiveInteger": true,
	"http://www.w3.org/2001/XMLSchema#negativeInteger":    true,
	"http://www.w3.org/2001/XMLSchema#unsignedInt":        true,
	"http://www.w3.org/2001/XMLSchema#unsignedLong":       true,
}

// Numeric returns the numeric interpretation of a literal. Typed numeric
// literals and plain literals that parse as numbers qualify; language
// tagged literals and other datatypes do not. NaN is unordered and never
// numeric; negative zero is returned as zero.
func (t Term) Numeric() (float64, bool) {
	if t.kind != KindLiteral || t.lang != "" {
		return 0, false
	}
	if t.datatype != "" && !numericDatatypes[t.datatype] {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(t.value), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	if f == 0 {
		f = 0
	}
	return f, true
}

// CompareTerms orders two terms for filter evaluation:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Numbers compare numerically when both sides are numeric; everything else
// compares by lexical value.
func CompareTerms(left, right Term) int {
	if l, ok := left.Numeric(); ok {
		if r, ok := right.Numeric(); ok {
			return compareFloats(l, r)
		}
	}
	return strings.Compare(left.value, right.value)
}

func compareFloats(a, b float64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
