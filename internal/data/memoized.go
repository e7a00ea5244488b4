package data

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
)

// memoEntry is a cached answer tagged with the generation it was resolved in.
type memoEntry struct {
	country string
	gen     uint64
}

// Memoized caches successful lookups of another CountryLookup.
type Memoized struct {
	next  CountryLookup
	cache *ristretto.Cache[string, memoEntry]
	// gen is bumped by Clear. Entries from an older generation are misses,
	// so a lookup racing a Clear cannot bring back a stale answer.
	gen atomic.Uint64
}

// NewMemoized wraps next with a cache holding about size addresses.
func NewMemoized(next CountryLookup, size int64) (*Memoized, error) {
	if size <= 0 {
		return nil, fmt.Errorf("lookup cache size must be positive, got %d", size)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, memoEntry]{
		NumCounters: size * 10, // ~10x the expected number of entries
		MaxCost:     size,      // every entry costs 1
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}
	return &Memoized{next: next, cache: cache}, nil
}

// LookupCountry serves ip from the cache or asks the wrapped lookup.
// Errors are never cached.
func (m *Memoized) LookupCountry(ip string) (string, error) {
	gen := m.gen.Load()
	if e, ok := m.cache.Get(ip); ok && e.gen == gen {
		return e.country, nil
	}

	country, err := m.next.LookupCountry(ip)
	if err != nil {
		return "", err
	}
	m.cache.Set(ip, memoEntry{country: country, gen: gen}, 1)
	return country, nil
}

// Clear drops every cached answer. Call it when the underlying tables
// change.
func (m *Memoized) Clear() {
	m.gen.Add(1)
	m.cache.Clear()
}

// Close stops the cache and closes the wrapped lookup.
func (m *Memoized) Close() error {
	m.cache.Close()
	return m.next.Close()
}
