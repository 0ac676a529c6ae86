// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package connpool

import (
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bufbuild/connpool/conn"
	"github.com/bufbuild/connpool/internal"
	"github.com/bufbuild/connpool/treemap"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultSweepInterval is how often the sweeper looks for unused
// connections. A connection that is reused shortly after it becomes
// unused stays registered, which is desirable when load balancing
// policies are reconfigured and immediately re-request the same
// backends.
const defaultSweepInterval = time.Second

// sweepIntervalEnvVar overrides the sweep interval, in milliseconds.
// It is read once, when a pool is constructed.
const sweepIntervalEnvVar = "CONNPOOL_SWEEP_INTERVAL_MS"

// Option is an option used to customize the behavior of a pool created
// via New or Init.
type Option interface {
	apply(*poolOptions)
}

// WithSweepInterval sets how often the pool sweeps unused connections,
// overriding both the default and the CONNPOOL_SWEEP_INTERVAL_MS
// environment variable.
func WithSweepInterval(interval time.Duration) Option {
	return optionFunc(func(opts *poolOptions) {
		opts.sweepInterval = interval
	})
}

// WithLogger configures the logger used for configuration errors and
// sweep diagnostics. If not specified, logging is disabled.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(opts *poolOptions) {
		opts.logger = logger
	})
}

// WithPollset supplies a custom pollset implementation. If not
// specified, the pool consults the CONNPOOL_POLL_STRATEGY environment
// variable: the value "none" disables background polling, any other
// value (or absence) enables the default backup poller.
func WithPollset(pollset Pollset) Option {
	return optionFunc(func(opts *poolOptions) {
		opts.pollset = pollset
	})
}

// WithMetrics registers the pool's prometheus collectors with the given
// registerer. If not specified, the pool is not instrumented.
func WithMetrics(registerer prometheus.Registerer) Option {
	return optionFunc(func(opts *poolOptions) {
		opts.registerer = registerer
	})
}

func withClock(clock internal.Clock) Option {
	return optionFunc(func(opts *poolOptions) {
		opts.clock = clock
	})
}

type optionFunc func(*poolOptions)

func (f optionFunc) apply(opts *poolOptions) {
	f(opts)
}

type poolOptions struct {
	sweepInterval time.Duration
	logger        *zap.Logger
	pollset       Pollset
	registerer    prometheus.Registerer
	clock         internal.Clock
}

// Pool deduplicates outbound connections by key. Concurrent Register
// calls for the same key converge onto a single shared connection, and
// a background sweeper reclaims connections that no caller holds.
//
// The current key->connection mapping is an immutable snapshot; the
// only mutable shared state is the root pointer, updated with a
// compare-and-swap. Readers never block on writers beyond the atomic
// pointer load.
type Pool struct {
	root    atomic.Pointer[treemap.Map[Key, *Ref]]
	pollset Pollset
	clock   internal.Clock
	logger  *zap.Logger
	metrics *metrics

	sweepInterval time.Duration

	sweepMu sync.Mutex
	// +checklocks:sweepMu
	sweeper *sweeper

	closed atomic.Bool
}

// New constructs a pool and starts its background sweeper. Most
// programs want one pool per process so that independent channels
// deduplicate connections against each other; use Init, Instance, and
// Shutdown for that. Explicit pools are useful for tests and for hosts
// that need isolated pools.
func New(options ...Option) *Pool {
	var opts poolOptions
	for _, opt := range options {
		opt.apply(&opts)
	}
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	if opts.clock == nil {
		opts.clock = internal.NewRealClock()
	}
	if opts.sweepInterval == 0 {
		opts.sweepInterval = sweepIntervalFromEnv(opts.logger)
	}
	if opts.pollset == nil {
		opts.pollset = newPollsetFromEnv(opts.clock, opts.logger)
	}
	pool := &Pool{
		pollset:       opts.pollset,
		clock:         opts.clock,
		logger:        opts.logger,
		metrics:       newMetrics(opts.registerer),
		sweepInterval: opts.sweepInterval,
	}
	pool.root.Store(treemap.New[Key, *Ref](Key.Compare))
	pool.startSweep()
	return pool
}

// Register offers candidate as the connection for key. If a connection
// is already published under key it wins: the candidate is closed,
// never published, and the existing connection is returned. Otherwise
// the candidate becomes the published connection for key and is
// attached to the pool's pollset.
//
// Ownership of candidate transfers to the pool: the caller must not
// use or close it after this call. The returned Ref carries one
// reference owned by the caller, to be dropped with Release. Exactly
// one candidate is ever published for a given key at a time, no matter
// how many callers race.
func (p *Pool) Register(key Key, candidate conn.Conn) *Ref {
	var ref *Ref
	for {
		p.checkOpen()
		base := p.root.Load()
		if existing, ok := base.Get(key); ok {
			if !existing.acquire() {
				// A sweep is tearing this entry down; any newer root
				// no longer contains it.
				continue
			}
			_ = candidate.Close()
			p.metrics.registered(true)
			return existing
		}
		if ref == nil {
			ref = newRef(key, candidate)
		}
		next := base.Set(key, ref)
		if p.root.CompareAndSwap(base, next) {
			p.pollset.Add(candidate)
			p.metrics.registered(false)
			p.metrics.setSize(next.Len())
			return ref
		}
		// Another writer published first; retry against the newer root.
	}
}

// Find returns a handle to the connection published under key, or nil
// if there is none. The returned Ref carries one reference owned by the
// caller, to be dropped with Release.
func (p *Pool) Find(key Key) *Ref {
	p.checkOpen()
	for {
		base := p.root.Load()
		existing, ok := base.Get(key)
		if !ok {
			return nil
		}
		if existing.acquire() {
			return existing
		}
		// Lost a race with a sweep removal. The entry is gone from any
		// newer root, so the retry terminates.
	}
}

type sweepEntry struct {
	key Key
	ref *Ref
}

// unregisterUnused removes the given entries, collected by the sweeper
// as unused. Removal is identity-checked: a key that has since been
// removed, or re-registered to a different connection, is left alone
// and counts as success. Returns how many entries were actually
// removed.
func (p *Pool) unregisterUnused(entries []sweepEntry) int {
	var removed int
	for _, entry := range entries {
		for {
			base := p.root.Load()
			current, ok := base.Get(entry.key)
			if !ok || current != entry.ref {
				break
			}
			next := base.Delete(entry.key)
			if p.root.CompareAndSwap(base, next) {
				p.pollset.Remove(entry.ref.conn)
				entry.ref.Release()
				p.metrics.setSize(next.Len())
				removed++
				break
			}
		}
	}
	return removed
}

// Close stops the sweeper, releases the pool's reference to every
// published connection, and shuts down background polling. Connections
// with no outstanding handles are closed before Close returns; ones
// still held by callers are closed when their last handle is released.
// The pool must not be used after Close.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		panic("connpool: pool closed twice")
	}
	p.stopSweep()
	base := p.root.Swap(treemap.New[Key, *Ref](Key.Compare))
	group := new(errgroup.Group)
	base.Range(func(_ Key, ref *Ref) bool {
		group.Go(func() error {
			p.pollset.Remove(ref.conn)
			ref.Release()
			return nil
		})
		return true
	})
	_ = group.Wait()
	p.metrics.setSize(0)
	return p.pollset.Close()
}

func (p *Pool) checkOpen() {
	if p.closed.Load() {
		panic("connpool: use of closed pool")
	}
}

func (p *Pool) startSweep() {
	p.sweepMu.Lock()
	defer p.sweepMu.Unlock()
	if p.sweeper == nil {
		p.sweeper = newSweeper(p, p.sweepInterval, p.clock, p.logger)
	}
}

func (p *Pool) stopSweep() {
	p.sweepMu.Lock()
	sweeper := p.sweeper
	p.sweeper = nil
	p.sweepMu.Unlock()
	if sweeper != nil {
		sweeper.stop()
	}
}

func sweepIntervalFromEnv(logger *zap.Logger) time.Duration {
	value := os.Getenv(sweepIntervalEnvVar)
	if value == "" {
		return defaultSweepInterval
	}
	millis, err := strconv.Atoi(value)
	if err != nil || millis <= 0 {
		logger.Error("invalid sweep interval override, using default",
			zap.String("var", sweepIntervalEnvVar),
			zap.String("value", value),
			zap.Duration("default", defaultSweepInterval))
		return defaultSweepInterval
	}
	return time.Duration(millis) * time.Millisecond
}
