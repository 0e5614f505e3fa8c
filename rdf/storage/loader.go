package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/wbrown/janus-rdf/rdf"
)

// DefaultBatchSize is the number of triples written per transaction
const DefaultBatchSize = 1000

// TripleWriter accepts triples and reports how many were new
type TripleWriter interface {
	Add(triples ...rdf.Triple) (int, error)
}

// LoadNTriples streams N-Triples from r into w in batches. It returns the
// number of triples read and the number actually added.
func LoadNTriples(r io.Reader, w TripleWriter, batchSize int) (read, added int, err error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	reader := rdf.NewTripleReader(r)
	batch := make([]rdf.Triple, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := w.Add(batch...)
		if err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
		added += n
		batch = batch[:0]
		return nil
	}

	for {
		t, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return read, added, err
		}
		read++
		batch = append(batch, t)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return read, added, err
			}
		}
	}
	if err := flush(); err != nil {
		return read, added, err
	}
	return read, added, nil
}
