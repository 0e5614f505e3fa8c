package rdf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrSyntax is returned for malformed terms, patterns and triples
var ErrSyntax = errors.New("rdf syntax error")

// ParseTerm parses a single term in N-Triples syntax. Bare numbers and
// true/false are accepted as typed literals.
func ParseTerm(s string) (Term, error) {
	s = strings.TrimSpace(s)
	n, next, err := parseNodeAt(s, 0, false)
	if err != nil {
		return Term{}, err
	}
	if next != len(s) {
		return Term{}, fmt.Errorf("%w: trailing input %q", ErrSyntax, s[next:])
	}
	return n.Term(), nil
}

// AsTerm converts a stored field value to a Term. It never fails: index
// contents are written from parsed terms, and anything unparseable is kept
// as a plain literal.
func AsTerm(s string) Term {
	t, err := ParseTerm(s)
	if err != nil {
		return NewLiteral(s)
	}
	return t
}

// ParseNode parses a term or a ?variable
func ParseNode(s string) (Node, error) {
	s = strings.TrimSpace(s)
	n, next, err := parseNodeAt(s, 0, true)
	if err != nil {
		return Node{}, err
	}
	if next != len(s) {
		return Node{}, fmt.Errorf("%w: trailing input %q", ErrSyntax, s[next:])
	}
	return n, nil
}

// ParsePattern parses "s p o" with an optional trailing '.'
func ParsePattern(line string) (TriplePattern, error) {
	nodes, err := parseStatement(line, true)
	if err != nil {
		return TriplePattern{}, err
	}
	return NewTriplePattern(nodes[0], nodes[1], nodes[2]), nil
}

// ParsePatterns parses one pattern per non-empty line; '#' starts a comment
func ParsePatterns(text string) ([]TriplePattern, error) {
	var patterns []TriplePattern
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := ParsePattern(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

// ParseTriple parses one N-Triples statement
func ParseTriple(line string) (Triple, error) {
	nodes, err := parseStatement(line, false)
	if err != nil {
		return Triple{}, err
	}
	t := Triple{S: nodes[0].Term(), P: nodes[1].Term(), O: nodes[2].Term()}
	if t.S.IsLiteral() {
		return Triple{}, fmt.Errorf("%w: literal subject %s", ErrSyntax, t.S)
	}
	if !t.P.IsIRI() {
		return Triple{}, fmt.Errorf("%w: predicate must be an IRI, got %s", ErrSyntax, t.P)
	}
	return t, nil
}

func parseStatement(line string, allowVars bool) ([3]Node, error) {
	var nodes [3]Node
	s := strings.TrimSpace(line)
	i := 0
	for k := 0; k < 3; k++ {
		i = skipSpace(s, i)
		if i >= len(s) {
			return nodes, fmt.Errorf("%w: expected 3 terms in %q", ErrSyntax, line)
		}
		n, next, err := parseNodeAt(s, i, allowVars)
		if err != nil {
			return nodes, err
		}
		nodes[k] = n
		i = next
	}
	i = skipSpace(s, i)
	if i < len(s) && s[i] == '.' {
		i = skipSpace(s, i+1)
	}
	if i < len(s) && s[i] != '#' {
		return nodes, fmt.Errorf("%w: unexpected %q", ErrSyntax, s[i:])
	}
	return nodes, nil
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\r') {
		i++
	}
	return i
}

func isDelimiter(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// parseNodeAt reads one node starting at s[i]
func parseNodeAt(s string, i int, allowVars bool) (Node, int, error) {
	if i >= len(s) {
		return Node{}, i, fmt.Errorf("%w: empty term", ErrSyntax)
	}
	switch c := s[i]; {
	case c == '<':
		end := strings.IndexByte(s[i+1:], '>')
		if end < 0 {
			return Node{}, i, fmt.Errorf("%w: unterminated IRI", ErrSyntax)
		}
		iri := s[i+1 : i+1+end]
		if iri == "" || strings.ContainsAny(iri, " \t\"{}|^`") {
			return Node{}, i, fmt.Errorf("%w: invalid IRI <%s>", ErrSyntax, iri)
		}
		return TermNode(NewIRI(iri)), i + end + 2, nil

	case c == '_' && i+1 < len(s) && s[i+1] == ':':
		j := i + 2
		for j < len(s) && !isDelimiter(s[j]) && !isStatementEnd(s, j) {
			j++
		}
		if j == i+2 {
			return Node{}, i, fmt.Errorf("%w: empty blank node label", ErrSyntax)
		}
		return TermNode(NewBlank(s[i+2 : j])), j, nil

	case c == '"':
		return parseLiteral(s, i)

	case c == '?' || c == '$':
		if !allowVars {
			return Node{}, i, fmt.Errorf("%w: variable not allowed here", ErrSyntax)
		}
		j := i + 1
		for j < len(s) && !isDelimiter(s[j]) && !isStatementEnd(s, j) {
			j++
		}
		if j == i+1 {
			return Node{}, i, fmt.Errorf("%w: empty variable name", ErrSyntax)
		}
		return VarNode(s[i+1 : j]), j, nil

	default:
		j := i
		for j < len(s) && !isDelimiter(s[j]) && !isStatementEnd(s, j) {
			j++
		}
		return parseBare(s[i:j], i, j)
	}
}

// isStatementEnd reports a '.' that terminates a statement rather than
// belonging to a number or label
func isStatementEnd(s string, j int) bool {
	return s[j] == '.' && (j+1 == len(s) || isDelimiter(s[j+1]) || s[j+1] == '#')
}

func parseBare(tok string, start, end int) (Node, int, error) {
	switch tok {
	case "true", "false":
		return TermNode(NewTypedLiteral(tok, XSDBoolean)), end, nil
	}
	if _, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return TermNode(NewTypedLiteral(tok, XSDInteger)), end, nil
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		if strings.ContainsAny(tok, "eE") {
			return TermNode(NewTypedLiteral(tok, XSDDouble)), end, nil
		}
		return TermNode(NewTypedLiteral(tok, XSDDecimal)), end, nil
	}
	return Node{}, start, fmt.Errorf("%w: unrecognised term %q", ErrSyntax, tok)
}

func parseLiteral(s string, i int) (Node, int, error) {
	var sb strings.Builder
	j := i + 1
	closed := false
	for j < len(s) {
		c := s[j]
		if c == '"' {
			closed = true
			j++
			break
		}
		if c != '\\' {
			sb.WriteByte(c)
			j++
			continue
		}
		if j+1 >= len(s) {
			return Node{}, i, fmt.Errorf("%w: dangling escape", ErrSyntax)
		}
		esc := s[j+1]
		j += 2
		switch esc {
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 'f':
			sb.WriteByte('\f')
		case '"', '\'', '\\':
			sb.WriteByte(esc)
		case 'u', 'U':
			width := 4
			if esc == 'U' {
				width = 8
			}
			if j+width > len(s) {
				return Node{}, i, fmt.Errorf("%w: short unicode escape", ErrSyntax)
			}
			code, err := strconv.ParseUint(s[j:j+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return Node{}, i, fmt.Errorf("%w: bad unicode escape %q", ErrSyntax, s[j:j+width])
			}
			sb.WriteRune(rune(code))
			j += width
		default:
			return Node{}, i, fmt.Errorf("%w: unknown escape \\%c", ErrSyntax, esc)
		}
	}
	if !closed {
		return Node{}, i, fmt.Errorf("%w: unterminated literal", ErrSyntax)
	}
	lexical := sb.String()

	if j < len(s) && s[j] == '@' {
		k := j + 1
		for k < len(s) && (isAlnum(s[k]) || s[k] == '-') {
			k++
		}
		if k == j+1 {
			return Node{}, i, fmt.Errorf("%w: empty language tag", ErrSyntax)
		}
		return TermNode(NewLangLiteral(lexical, s[j+1:k])), k, nil
	}
	if strings.HasPrefix(s[j:], "^^") {
		dt, next, err := parseNodeAt(s, j+2, false)
		if err != nil {
			return Node{}, i, err
		}
		if !dt.Term().IsIRI() {
			return Node{}, i, fmt.Errorf("%w: datatype must be an IRI", ErrSyntax)
		}
		return TermNode(NewTypedLiteral(lexical, dt.Term().Value())), next, nil
	}
	return TermNode(NewLiteral(lexical)), j, nil
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// escapeLiteral escapes the characters N-Triples requires inside quotes
func escapeLiteral(s string) string {
	if !strings.ContainsAny(s, "\"\\\n\r") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// normalizeLexical puts literal text in Unicode NFC so that canonically
// equivalent strings index to the same term
func normalizeLexical(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}
