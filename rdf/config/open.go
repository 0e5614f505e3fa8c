package config

import (
	"fmt"
	"log/slog"

	"github.com/wbrown/janus-rdf/rdf"
	"github.com/wbrown/janus-rdf/rdf/index"
	"github.com/wbrown/janus-rdf/rdf/search"
	"github.com/wbrown/janus-rdf/rdf/storage"
)

// Store is a writable triple index
type Store interface {
	index.Index
	Add(triples ...rdf.Triple) (int, error)
	Remove(triples ...rdf.Triple) (int, error)
	Count() (int, error)
	Close() error
}

var (
	_ Store = (*storage.BadgerStore)(nil)
	_ Store = (*search.BleveIndex)(nil)
)

// OpenStore opens the configured backend
func (c *Config) OpenStore(logger *slog.Logger) (Store, error) {
	switch c.Storage.Backend {
	case BackendBleve:
		path := c.Storage.Path
		if c.Storage.InMemory {
			path = ""
		}
		idx, err := search.Open(search.Options{Path: path, Logger: logger})
		if err != nil {
			return nil, err
		}
		return idx, nil
	case BackendBadger:
		store, err := storage.Open(storage.Options{
			Path:     c.Storage.Path,
			InMemory: c.Storage.InMemory,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
}

// QueryIndex wraps store with the configured caches. The returned index
// must only be used for reads; writes go to the store.
func (c *Config) QueryIndex(store Store) (index.Index, func(), error) {
	if c.Cache.Disabled {
		return store, func() {}, nil
	}
	cached, err := index.NewCachedIndex(store, c.IndexCacheConfig())
	if err != nil {
		return nil, nil, err
	}
	return cached, cached.Close, nil
}
