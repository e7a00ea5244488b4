package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/TomasB/geoiplite/internal/ranges"
)

// LoadState is the load progress of one family.
type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// call is a single file read shared by every request that arrived while it
// was in flight. done is closed once table and err are set.
type call[K ranges.Key] struct {
	done    chan struct{}
	table   *ranges.Table[K]
	err     error
	waiters int
	install bool // some waiter asked for the result to be cached
	replace bool // a refresh asked to overwrite the cached table
}

// slot owns the load state, the in-flight call and the cached table of one
// family.
type slot[K ranges.Key] struct {
	family ipaddr.Family
	fetch  func() (*ranges.Table[K], error)
	logger *slog.Logger
	// replaced runs after a refresh swapped the cached table, before any
	// waiter is released.
	replaced func()

	mu       sync.Mutex
	state    LoadState
	cached   *ranges.Table[K]
	inflight *call[K]
}

type mode int

const (
	noCache mode = iota
	useCache
	replaceCache
)

// get returns the cached table, joins the in-flight load or starts a new
// one. ctx bounds the wait only; a started load always runs to completion.
func (s *slot[K]) get(ctx context.Context, m mode) (*ranges.Table[K], error) {
	s.mu.Lock()
	if m == useCache && s.cached != nil {
		t := s.cached
		s.mu.Unlock()
		s.logger.Debug("data served from cache", "family", s.family.String())
		return t, nil
	}

	c := s.inflight
	if c == nil {
		c = &call[K]{done: make(chan struct{})}
		s.state = Loading
		s.inflight = c
		go s.run(c)
	} else {
		s.logger.Debug("joined in-flight load", "family", s.family.String(), "waiters", c.waiters+1)
	}
	c.waiters++
	switch m {
	case useCache:
		c.install = true
	case replaceCache:
		c.replace = true
	}
	s.mu.Unlock()

	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.table, c.err
}

func (s *slot[K]) run(c *call[K]) {
	table, err := s.fetch()

	s.mu.Lock()
	c.table, c.err = table, err
	s.inflight = nil
	switch {
	case err != nil && s.cached == nil:
		s.state = Unloaded
	case err != nil:
		// A failed refresh keeps serving the cached table.
		s.state = Loaded
	default:
		s.state = Loaded
		if c.replace || (c.install && s.cached == nil) {
			s.cached = table
			s.logger.Info("data cached", "family", s.family.String(), "records", table.Len(), "replaced", c.replace)
		}
	}
	swapped := err == nil && c.replace
	s.mu.Unlock()

	if swapped && s.replaced != nil {
		s.replaced()
	}
	close(c.done)
}

func (s *slot[K]) snapshot() (LoadState, *ranges.Table[K]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.cached
}

func (s *slot[K]) waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == nil {
		return 0
	}
	return s.inflight.waiters
}
