// Package loader loads the per-family range tables, coalesces concurrent
// loads of the same family and keeps the process-wide table cache.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/TomasB/geoiplite/internal/ranges"
	"golang.org/x/sync/errgroup"
)

// Options selects the families to load and whether the cache is used.
type Options struct {
	IncludeV4 bool
	IncludeV6 bool
	// UseCache serves cached tables and installs a freshly loaded table
	// when the family has none cached yet.
	UseCache bool
}

// DefaultOptions loads ipv4 only, through the cache.
func DefaultOptions() Options {
	return Options{IncludeV4: true, IncludeV6: false, UseCache: true}
}

// Result holds the tables returned by a load. A family that was not
// requested, or failed, is nil.
type Result struct {
	IPv4 *ranges.Table[uint32]
	IPv6 *ranges.Table[ipaddr.Key6]
}

// Lookup returns the country of ip using the tables held by r.
func (r Result) Lookup(ip string) (string, error) {
	var (
		country string
		ok      bool
	)

	switch family := ipaddr.ParseFamily(ip); family {
	case ipaddr.V6:
		if r.IPv6 == nil {
			return "", &NotLoadedError{Family: family}
		}
		key, err := ipaddr.ToKeyV6(ip)
		if err != nil {
			return "", err
		}
		country, ok = r.IPv6.Country(key)
	default:
		if r.IPv4 == nil {
			return "", &NotLoadedError{Family: family}
		}
		key, err := ipaddr.ToKeyV4(ip)
		if err != nil {
			return "", err
		}
		country, ok = r.IPv4.Country(key)
	}

	if !ok {
		return "", ErrNotFound
	}
	return country, nil
}

// Outcome is delivered by LoadAsync.
type Outcome struct {
	Result Result
	Err    error
}

// Coordinator owns the cache and load state of both families. The zero
// value is not usable; create one with New.
type Coordinator struct {
	source    Source
	logger    *slog.Logger
	strict    bool
	onReplace []func(ipaddr.Family)

	v4 *slot[uint32]
	v6 *slot[ipaddr.Key6]
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithStrict makes every load check the table order after decoding.
func WithStrict(strict bool) Option {
	return func(c *Coordinator) { c.strict = strict }
}

// OnReplace registers fn to run after Refresh swapped a cached table. It
// runs even when the refreshing caller stopped waiting.
func OnReplace(fn func(ipaddr.Family)) Option {
	return func(c *Coordinator) { c.onReplace = append(c.onReplace, fn) }
}

// New creates a Coordinator reading tables from source.
func New(source Source, opts ...Option) *Coordinator {
	c := &Coordinator{source: source, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}

	c.v4 = &slot[uint32]{family: ipaddr.V4, logger: c.logger, replaced: c.replacedHook(ipaddr.V4)}
	c.v4.fetch = func() (*ranges.Table[uint32], error) {
		return fetch(c, ipaddr.V4, ranges.DecodeV4)
	}
	c.v6 = &slot[ipaddr.Key6]{family: ipaddr.V6, logger: c.logger, replaced: c.replacedHook(ipaddr.V6)}
	c.v6.fetch = func() (*ranges.Table[ipaddr.Key6], error) {
		return fetch(c, ipaddr.V6, ranges.DecodeV6)
	}
	return c
}

func (c *Coordinator) replacedHook(family ipaddr.Family) func() {
	return func() {
		for _, fn := range c.onReplace {
			fn(family)
		}
	}
}

func fetch[K ranges.Key](c *Coordinator, family ipaddr.Family, decode func(io.Reader) (*ranges.Table[K], error)) (*ranges.Table[K], error) {
	start := time.Now()
	c.logger.Debug("data load started", "family", family.String())

	rc, err := c.source.Open(family)
	if err != nil {
		c.logger.Error("data load failed", "family", family.String(), "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrIO, family, err)
	}
	defer rc.Close()

	table, err := decode(rc)
	var dfe *ranges.DataFormatError
	if err != nil && !errors.As(err, &dfe) {
		err = fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err == nil && c.strict {
		err = table.Validate()
	}
	if err != nil {
		c.logger.Error("data load failed", "family", family.String(), "error", err)
		return nil, err
	}

	c.logger.Info("data loaded",
		"family", family.String(),
		"records", table.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return table, nil
}

func modeFor(cache bool) mode {
	if cache {
		return useCache
	}
	return noCache
}

// Load loads the requested families and blocks until both are done. The
// families are loaded independently; the first failure is returned along
// with whatever the other family produced.
func (c *Coordinator) Load(ctx context.Context, opts Options) (Result, error) {
	var (
		res Result
		g   errgroup.Group
		m   = modeFor(opts.UseCache)
	)

	if opts.IncludeV4 {
		g.Go(func() error {
			t, err := c.v4.get(ctx, m)
			res.IPv4 = t
			return err
		})
	}
	if opts.IncludeV6 {
		g.Go(func() error {
			t, err := c.v6.get(ctx, m)
			res.IPv6 = t
			return err
		})
	}

	err := g.Wait()
	return res, err
}

// LoadAsync runs Load in the background. Exactly one Outcome is sent before
// the channel is closed.
func (c *Coordinator) LoadAsync(ctx context.Context, opts Options) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		res, err := c.Load(ctx, opts)
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

// Refresh reloads one family and replaces its cached table on success.
// It joins a load already in flight instead of starting another read.
func (c *Coordinator) Refresh(ctx context.Context, family ipaddr.Family) error {
	var err error
	switch family {
	case ipaddr.V4:
		_, err = c.v4.get(ctx, replaceCache)
	case ipaddr.V6:
		_, err = c.v6.get(ctx, replaceCache)
	default:
		return fmt.Errorf("unknown address family %s", family)
	}
	return err
}

// Cached returns the tables currently in the cache.
func (c *Coordinator) Cached() Result {
	_, v4 := c.v4.snapshot()
	_, v6 := c.v6.snapshot()
	return Result{IPv4: v4, IPv6: v6}
}

// IsCached reports whether the cache holds a table for family.
func (c *Coordinator) IsCached(family ipaddr.Family) bool {
	switch family {
	case ipaddr.V4:
		_, t := c.v4.snapshot()
		return t != nil
	case ipaddr.V6:
		_, t := c.v6.snapshot()
		return t != nil
	}
	return false
}

// State returns the load state of family.
func (c *Coordinator) State(family ipaddr.Family) LoadState {
	var s LoadState
	switch family {
	case ipaddr.V4:
		s, _ = c.v4.snapshot()
	case ipaddr.V6:
		s, _ = c.v6.snapshot()
	}
	return s
}

// Lookup returns the country of ip from the cached tables.
func (c *Coordinator) Lookup(ip string) (string, error) {
	return c.Cached().Lookup(ip)
}

// Ready returns a *NotLoadedError for the first of families without a
// cached table.
func (c *Coordinator) Ready(families ...ipaddr.Family) error {
	for _, f := range families {
		if !c.IsCached(f) {
			return &NotLoadedError{Family: f}
		}
	}
	return nil
}
