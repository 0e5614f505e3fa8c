package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
)

// Options configures a BadgerStore
type Options struct {
	Path     string       // Directory for the database files
	InMemory bool         // Keep everything in memory (Path is ignored)
	Logger   *slog.Logger // Optional, uses slog.Default() if nil
}

// BadgerStore is a triple document index on BadgerDB. Each triple is one
// document; term and numeric postings are kept as key-only entries so a
// predicate resolves with prefix scans.
type BadgerStore struct {
	db      *badger.DB
	seq     *badger.Sequence
	logger  *slog.Logger
	writeMu sync.Mutex
}

var _ index.Index = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a store at path
func NewBadgerStore(path string) (*BadgerStore, error) {
	return Open(Options{Path: path})
}

// NewMemoryStore creates a store that lives only in memory
func NewMemoryStore() (*BadgerStore, error) {
	return Open(Options{InMemory: true})
}

// Open opens a store with the given options
func Open(o Options) (*BadgerStore, error) {
	var opts badger.Options
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(o.Path)
	}
	opts.Logger = nil // Disable BadgerDB logs

	// Read-heavy workload: large block cache, small values inline
	opts.BlockCacheSize = 64 << 20
	opts.IndexCacheSize = 32 << 20
	opts.ValueThreshold = 1 << 10

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	seq, err := db.GetSequence(sequenceKey, 1000)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open document sequence: %w", err)
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &BadgerStore{db: db, seq: seq, logger: logger}, nil
}

// Add stores triples, skipping ones already present. Returns the number
// of new documents.
func (s *BadgerStore) Add(triples ...rdf.Triple) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	added := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, t := range triples {
			tk := tripleKey(t)
			if _, err := txn.Get(tk); err == nil {
				continue
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			next, err := s.seq.Next()
			if err != nil {
				return fmt.Errorf("failed to allocate document id: %w", err)
			}
			if next > uint64(^index.DocID(0)) {
				return fmt.Errorf("document id space exhausted")
			}
			id := index.DocID(next)

			if err := s.writeDocument(txn, id, t, tk); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", index.ErrIndexAccess, err)
	}
	return added, nil
}

func (s *BadgerStore) writeDocument(txn *badger.Txn, id index.DocID, t rdf.Triple, tk []byte) error {
	doc := index.NewDocument(t)
	if err := txn.Set(documentKey(id), encodeDocument(doc)); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := txn.Set(tk, encodeDocID(id)); err != nil {
		return fmt.Errorf("failed to write %v key: %w", SpaceTriple, err)
	}
	for field, value := range doc {
		if field == index.FieldObjectNumeric {
			continue
		}
		if err := txn.Set(termKey(field, value, id), nil); err != nil {
			return fmt.Errorf("failed to write %v key: %w", SpaceTerm, err)
		}
	}
	if f, ok := doc.Numeric(); ok {
		if err := txn.Set(numericKey(f, id), nil); err != nil {
			return fmt.Errorf("failed to write %v key: %w", SpaceNumeric, err)
		}
	}
	return nil
}

// Remove deletes triples. Unknown triples are ignored. Returns the number
// of removed documents.
func (s *BadgerStore) Remove(triples ...rdf.Triple) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, t := range triples {
			tk := tripleKey(t)
			item, err := txn.Get(tk)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			} else if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			id := binary.BigEndian.Uint32(raw)

			doc := index.NewDocument(t)
			keys := [][]byte{tk, documentKey(id)}
			for field, value := range doc {
				if field != index.FieldObjectNumeric {
					keys = append(keys, termKey(field, value, id))
				}
			}
			if f, ok := doc.Numeric(); ok {
				keys = append(keys, numericKey(f, id))
			}
			for _, k := range keys {
				if err := txn.Delete(k); err != nil {
					return fmt.Errorf("failed to delete key: %w", err)
				}
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", index.ErrIndexAccess, err)
	}
	return removed, nil
}

// Resolve implements index.Index
func (s *BadgerStore) Resolve(pred *index.Predicate) (*index.DocSet, error) {
	var result *roaring.Bitmap

	err := s.db.View(func(txn *badger.Txn) error {
		for _, c := range pred.Clauses() {
			var bits *roaring.Bitmap
			var err error
			switch c := c.(type) {
			case index.TermClause:
				bits, err = scanDocIDs(txn, termPrefix(c.Field, c.Value))
			case index.RangeClause:
				bits, err = scanRange(txn, c)
			default:
				err = fmt.Errorf("unsupported clause %T", c)
			}
			if err != nil {
				return err
			}

			if result == nil {
				result = bits
			} else {
				result.And(bits)
			}
			if result.IsEmpty() {
				return nil
			}
		}

		if result == nil {
			// Empty predicate: every document
			all, err := scanDocIDs(txn, []byte{byte(SpaceDocument)})
			if err != nil {
				return err
			}
			result = all
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", index.ErrIndexAccess, pred, err)
	}
	return index.FromBitmap(result), nil
}

// scanDocIDs collects the document ids of every key under prefix
func scanDocIDs(txn *badger.Txn, prefix []byte) (*roaring.Bitmap, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	bits := roaring.New()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		id, err := docIDFromKey(it.Item().Key())
		if err != nil {
			return nil, err
		}
		bits.Add(id)
	}
	return bits, nil
}

// scanRange walks the numeric postings between the clause bounds
func scanRange(txn *badger.Txn, c index.RangeClause) (*roaring.Bitmap, error) {
	if c.Field != index.FieldObjectNumeric {
		return nil, fmt.Errorf("range on non-numeric field %q", c.Field)
	}
	prefix := []byte{byte(SpaceNumeric)}
	start := prefix
	if c.Min != nil {
		start = concatBytes(prefix, sortableFloat(*c.Min))
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	bits := roaring.New()
	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		if len(key) != 1+8+docIDSize {
			return nil, fmt.Errorf("malformed numeric key of %d bytes", len(key))
		}
		f := floatFromSortable(key[1:9])
		if c.Max != nil && (f > *c.Max || (f == *c.Max && !c.MaxInclusive)) {
			break
		}
		if !c.Contains(f) {
			continue
		}
		id, err := docIDFromKey(key)
		if err != nil {
			return nil, err
		}
		bits.Add(id)
	}
	return bits, nil
}

// Document implements index.Index
func (s *BadgerStore) Document(id index.DocID) (index.Document, error) {
	var doc index.Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			doc, err = decodeDocument(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %d", index.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read document %d: %w", index.ErrIndexAccess, id, err)
	}
	return doc, nil
}

// Count returns the number of stored documents
func (s *BadgerStore) Count() (int, error) {
	all, err := s.Resolve(index.NewPredicate())
	if err != nil {
		return 0, err
	}
	return all.Size(), nil
}

// Triples calls fn for every stored triple in document id order
func (s *BadgerStore) Triples(fn func(rdf.Triple) error) error {
	all, err := s.Resolve(index.NewPredicate())
	if err != nil {
		return err
	}
	it := all.Iterator()
	for it.HasNext() {
		doc, err := s.Document(it.Next())
		if err != nil {
			return err
		}
		if err := fn(doc.Triple()); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the sequence lease and closes the database
func (s *BadgerStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.logger.Warn("failed to release document sequence", "error", err)
	}
	return s.db.Close()
}
