package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TripleReader reads N-Triples statements one line at a time
type TripleReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewTripleReader creates a reader over r
func NewTripleReader(r io.Reader) *TripleReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &TripleReader{scanner: scanner}
}

// Next returns the next triple, or io.EOF at the end of input.
// Blank lines and comments are skipped.
func (r *TripleReader) Next() (Triple, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t, err := ParseTriple(line)
		if err != nil {
			return Triple{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return t, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Triple{}, err
	}
	return Triple{}, io.EOF
}

// WriteTriples writes triples in N-Triples format
func WriteTriples(w io.Writer, triples ...Triple) error {
	for _, t := range triples {
		if _, err := fmt.Fprintln(w, t.String()); err != nil {
			return err
		}
	}
	return nil
}
