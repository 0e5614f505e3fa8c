package rdf

import (
	"fmt"
	"strings"
)

// Well-known datatype IRIs
const (
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble  = "http://www.w3.org/2001/XMLSchema#double"
	XSDFloat   = "http://www.w3.org/2001/XMLSchema#float"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
)

// TermKind identifies the kind of an RDF term
type TermKind uint8

const (
	KindNone TermKind = iota
	KindIRI
	KindBlank
	KindLiteral
)

func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "none"
	}
}

// Term is an RDF value: an IRI, a blank node or a literal.
// Terms are plain values, so two terms are equal exactly when == holds.
type Term struct {
	kind     TermKind
	value    string // IRI, blank label or lexical form
	datatype string // Literal datatype IRI (empty for plain and language literals)
	lang     string // Literal language tag (lowercased)
}

// NewIRI creates an IRI term
func NewIRI(iri string) Term {
	return Term{kind: KindIRI, value: iri}
}

// NewBlank creates a blank node term with the given label
func NewBlank(label string) Term {
	return Term{kind: KindBlank, value: label}
}

// NewLiteral creates a plain literal
func NewLiteral(lexical string) Term {
	return Term{kind: KindLiteral, value: normalizeLexical(lexical)}
}

// NewTypedLiteral creates a literal with a datatype. xsd:string is folded
// into the plain form so "a" and "a"^^xsd:string compare equal.
func NewTypedLiteral(lexical, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{kind: KindLiteral, value: normalizeLexical(lexical), datatype: datatype}
}

// NewLangLiteral creates a language-tagged literal
func NewLangLiteral(lexical, lang string) Term {
	return Term{kind: KindLiteral, value: normalizeLexical(lexical), lang: strings.ToLower(lang)}
}

// Kind returns the term kind
func (t Term) Kind() TermKind { return t.kind }

// Value returns the IRI, blank label or literal lexical form
func (t Term) Value() string { return t.value }

// Datatype returns the datatype IRI of a typed literal
func (t Term) Datatype() string { return t.datatype }

// Lang returns the language tag of a literal
func (t Term) Lang() string { return t.lang }

func (t Term) IsIRI() bool     { return t.kind == KindIRI }
func (t Term) IsBlank() bool   { return t.kind == KindBlank }
func (t Term) IsLiteral() bool { return t.kind == KindLiteral }
func (t Term) IsZero() bool    { return t.kind == KindNone }

// String returns the canonical N-Triples form of the term.
// Stored documents hold exactly this form, so it doubles as the index key.
func (t Term) String() string {
	switch t.kind {
	case KindIRI:
		return "<" + t.value + ">"
	case KindBlank:
		return "_:" + t.value
	case KindLiteral:
		s := `"` + escapeLiteral(t.value) + `"`
		if t.lang != "" {
			return s + "@" + t.lang
		}
		if t.datatype != "" {
			return s + "^^<" + t.datatype + ">"
		}
		return s
	default:
		return ""
	}
}

// Var is a query variable name, without the leading '?'
type Var string

// String returns the variable with its '?' prefix
func (v Var) String() string {
	return "?" + string(v)
}

// Node is one slot of a triple pattern: a constant term or a variable
type Node struct {
	term     Term
	variable Var
}

// TermNode wraps a constant term
func TermNode(t Term) Node {
	return Node{term: t}
}

// VarNode creates a variable node
func VarNode(name string) Node {
	return Node{variable: Var(strings.TrimPrefix(name, "?"))}
}

// IsVariable returns true if the node is a variable
func (n Node) IsVariable() bool { return n.variable != "" }

// IsZero reports a node that is neither a variable nor a term
func (n Node) IsZero() bool { return n.variable == "" && n.term.IsZero() }

// Var returns the variable name (empty for constants)
func (n Node) Var() Var { return n.variable }

// Term returns the constant term (zero for variables)
func (n Node) Term() Term { return n.term }

func (n Node) String() string {
	if n.IsVariable() {
		return n.variable.String()
	}
	if n.term.IsZero() {
		return "ANY"
	}
	return n.term.String()
}

// Slot identifies a triple position
type Slot uint8

const (
	Subject Slot = iota
	Predicate
	Object
)

// Slots lists the triple positions in order
var Slots = [3]Slot{Subject, Predicate, Object}

func (s Slot) String() string {
	switch s {
	case Subject:
		return "subject"
	case Predicate:
		return "predicate"
	default:
		return "object"
	}
}

// TriplePattern is a subject/predicate/object pattern
type TriplePattern struct {
	S, P, O Node
}

// NewTriplePattern creates a pattern from three nodes
func NewTriplePattern(s, p, o Node) TriplePattern {
	return TriplePattern{S: s, P: p, O: o}
}

// Get returns the node at the given slot
func (tp TriplePattern) Get(slot Slot) Node {
	switch slot {
	case Subject:
		return tp.S
	case Predicate:
		return tp.P
	default:
		return tp.O
	}
}

// Variables returns the distinct variables of the pattern in slot order
func (tp TriplePattern) Variables() []Var {
	var vars []Var
	seen := make(map[Var]bool, 3)
	for _, slot := range Slots {
		n := tp.Get(slot)
		if n.IsVariable() && !seen[n.Var()] {
			seen[n.Var()] = true
			vars = append(vars, n.Var())
		}
	}
	return vars
}

// RepeatedSlots returns pairs of slots holding the same variable
func (tp TriplePattern) RepeatedSlots() [][2]Slot {
	var pairs [][2]Slot
	for i := 0; i < len(Slots); i++ {
		for j := i + 1; j < len(Slots); j++ {
			a, b := tp.Get(Slots[i]), tp.Get(Slots[j])
			if a.IsVariable() && a.Var() == b.Var() {
				pairs = append(pairs, [2]Slot{Slots[i], Slots[j]})
			}
		}
	}
	return pairs
}

// Substitute replaces variables bound in b with their values
func (tp TriplePattern) Substitute(b *Binding) TriplePattern {
	if b == nil {
		return tp
	}
	sub := func(n Node) Node {
		if n.IsVariable() {
			if t, ok := b.Get(n.Var()); ok {
				return TermNode(t)
			}
		}
		return n
	}
	return TriplePattern{S: sub(tp.S), P: sub(tp.P), O: sub(tp.O)}
}

func (tp TriplePattern) String() string {
	return fmt.Sprintf("(%s %s %s)", tp.S, tp.P, tp.O)
}

// Triple is a fully bound statement
type Triple struct {
	S, P, O Term
}

// Get returns the term at the given slot
func (t Triple) Get(slot Slot) Term {
	switch slot {
	case Subject:
		return t.S
	case Predicate:
		return t.P
	default:
		return t.O
	}
}

// String returns the N-Triples line for the triple (without newline)
func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.S, t.P, t.O)
}
