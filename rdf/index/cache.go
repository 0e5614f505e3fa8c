package index

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultResolveEntries  = 4096
	defaultDocumentMaxCost = 64 << 20 // 64MB of field bytes
	documentCostOverhead   = 64
)

// CacheConfig sizes the caches of a CachedIndex
type CacheConfig struct {
	ResolveEntries  int   // LRU entries for predicate results (0 = default)
	DocumentMaxCost int64 // ristretto byte budget for documents (0 = default)
}

// CachedIndex memoizes predicate resolution and document reads of an
// underlying Index. Cached DocSets are shared, so callers must treat them
// as read-only (every DocSet operation returns a new set).
// Call Purge after writing to the underlying index.
type CachedIndex struct {
	inner     Index
	resolved  *lru.Cache[string, *DocSet]
	documents *ristretto.Cache

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedIndex wraps inner with result caches
func NewCachedIndex(inner Index, cfg CacheConfig) (*CachedIndex, error) {
	entries := cfg.ResolveEntries
	if entries <= 0 {
		entries = defaultResolveEntries
	}
	maxCost := cfg.DocumentMaxCost
	if maxCost <= 0 {
		maxCost = defaultDocumentMaxCost
	}

	resolved, err := lru.New[string, *DocSet](entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolve cache: %w", err)
	}
	documents, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost / documentCostOverhead * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	return &CachedIndex{
		inner:     inner,
		resolved:  resolved,
		documents: documents,
	}, nil
}

// Resolve returns a cached result or resolves through the inner index.
// Errors are never cached.
func (c *CachedIndex) Resolve(pred *Predicate) (*DocSet, error) {
	key := pred.Key()
	if docs, ok := c.resolved.Get(key); ok {
		c.hits.Add(1)
		return docs, nil
	}
	c.misses.Add(1)

	docs, err := c.inner.Resolve(pred)
	if err != nil {
		return nil, err
	}
	c.resolved.Add(key, docs)
	return docs, nil
}

// Document returns a cached document or reads it through the inner index
func (c *CachedIndex) Document(id DocID) (Document, error) {
	if v, ok := c.documents.Get(id); ok {
		if doc, ok := v.(Document); ok {
			return doc, nil
		}
	}

	doc, err := c.inner.Document(id)
	if err != nil {
		return nil, err
	}
	c.documents.Set(id, doc, documentCost(doc))
	return doc, nil
}

// Purge drops every cached entry
func (c *CachedIndex) Purge() {
	c.resolved.Purge()
	c.documents.Clear()
}

// Close releases cache resources. The inner index is not closed.
func (c *CachedIndex) Close() {
	c.documents.Close()
}

// Stats returns resolve cache statistics
func (c *CachedIndex) Stats() (hits, misses int64, size int) {
	return c.hits.Load(), c.misses.Load(), c.resolved.Len()
}

func documentCost(doc Document) int64 {
	cost := int64(documentCostOverhead)
	for f, v := range doc {
		cost += int64(len(f) + len(v))
	}
	return cost
}
