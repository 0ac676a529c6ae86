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
	"sync"
	"time"

	"github.com/bufbuild/connpool/internal"
	"go.uber.org/zap"
)

// sweeper periodically removes connections that no caller holds.
// Instead of unregistering a connection the moment it becomes unused,
// the pool sweeps unused connections like a garbage collector, which
// alleviates registration churn: a connection reused shortly after it
// becomes unused keeps its pool entry.
//
// A sweeper is either scheduled (timer armed) or stopped; stopped is
// terminal. If stop races with a timer that already fired, the cycle
// observes the stop signal and exits without rescheduling.
type sweeper struct {
	pool     *Pool
	interval time.Duration
	clock    internal.Clock
	logger   *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func newSweeper(pool *Pool, interval time.Duration, clock internal.Clock, logger *zap.Logger) *sweeper {
	s := &sweeper{
		pool:     pool,
		interval: interval,
		clock:    clock,
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *sweeper) run() {
	defer close(s.done)
	timer := s.clock.NewTimer(s.interval)
	defer timer.Stop()
	for {
		select {
		case <-timer.Chan():
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.sweep()
			timer.Reset(s.interval)
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs one collect-then-remove cycle. Collection walks an
// immutable snapshot; mutating during traversal is unsafe, so removal
// is a separate pass. A connection that becomes used between the two
// phases is left alone by the identity check in unregisterUnused and
// at worst survives one extra cycle.
func (s *sweeper) sweep() {
	started := s.clock.Now()
	base := s.pool.root.Load()
	var unused []sweepEntry
	base.Range(func(key Key, ref *Ref) bool {
		if ref.isUnused() {
			unused = append(unused, sweepEntry{key: key, ref: ref})
		}
		return true
	})
	var removed int
	if len(unused) > 0 {
		removed = s.pool.unregisterUnused(unused)
	}
	s.pool.metrics.sweepCycle(removed)
	if removed > 0 {
		s.logger.Debug("swept unused connections",
			zap.Int("collected", len(unused)),
			zap.Int("removed", removed),
			zap.Duration("elapsed", s.clock.Since(started)))
	}
}

// stop cancels the timer and waits for any in-flight cycle to finish.
// Safe to call more than once.
func (s *sweeper) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.done
}
