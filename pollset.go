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
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/bufbuild/connpool/conn"
	"github.com/bufbuild/connpool/internal"
	"go.uber.org/zap"
)

const (
	// defaultBackupPollInterval is how often the backup poller pings
	// each registered connection.
	defaultBackupPollInterval = 5 * time.Second

	// backupPollIntervalEnvVar overrides the backup poll interval, in
	// milliseconds. Read once, when a pool is constructed.
	backupPollIntervalEnvVar = "CONNPOOL_BACKUP_POLL_INTERVAL_MS"

	// pollStrategyEnvVar disables background polling entirely when set
	// to "none". Any other value, or absence, enables it.
	pollStrategyEnvVar = "CONNPOOL_POLL_STRATEGY"
)

// Pollset drives background I/O for pooled connections. Every published
// connection is added to the pool's pollset and removed when it is
// unregistered or the pool shuts down. Add and Remove must be safe for
// concurrent use.
type Pollset interface {
	Add(connection conn.Conn)
	Remove(connection conn.Conn)
	Close() error
}

func newPollsetFromEnv(clock internal.Clock, logger *zap.Logger) Pollset {
	if os.Getenv(pollStrategyEnvVar) == "none" {
		return NopPollset
	}
	return newBackupPoller(backupPollIntervalFromEnv(logger), clock, logger)
}

//nolint:gochecknoglobals
var (
	// NopPollset is a pollset implementation that does nothing. It is
	// what a pool uses when CONNPOOL_POLL_STRATEGY is "none", and is
	// handy with WithPollset for hosts whose connections drive their
	// own I/O.
	NopPollset Pollset = nopPollset{}
)

type nopPollset struct{}

func (nopPollset) Add(conn.Conn) {}

func (nopPollset) Remove(conn.Conn) {}

func (nopPollset) Close() error {
	return nil
}

// backupPoller pings every attached connection on a fixed interval so
// that connections no channel is actively driving still make progress.
type backupPoller struct {
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu sync.Mutex
	// +checklocks:mu
	conns map[conn.Conn]struct{}
}

func newBackupPoller(interval time.Duration, clock internal.Clock, logger *zap.Logger) *backupPoller {
	ctx, cancel := context.WithCancel(context.Background())
	poller := &backupPoller{
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
		conns:  map[conn.Conn]struct{}{},
	}
	go poller.run(ctx, clock, interval)
	return poller
}

func (p *backupPoller) Add(connection conn.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[connection] = struct{}{}
}

func (p *backupPoller) Remove(connection conn.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conns, connection)
}

func (p *backupPoller) Close() error {
	p.cancel()
	<-p.done
	return nil
}

func (p *backupPoller) run(ctx context.Context, clock internal.Clock, interval time.Duration) {
	defer close(p.done)
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			p.pollAll(ctx, interval)
		case <-ctx.Done():
			return
		}
	}
}

func (p *backupPoller) pollAll(ctx context.Context, timeout time.Duration) {
	p.mu.Lock()
	conns := make([]conn.Conn, 0, len(p.conns))
	for connection := range p.conns {
		conns = append(conns, connection)
	}
	p.mu.Unlock()
	for _, connection := range conns {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		if err := connection.Ping(pingCtx); err != nil && ctx.Err() == nil {
			p.logger.Debug("backup poll failed", zap.Error(err))
		}
		cancel()
	}
}

func backupPollIntervalFromEnv(logger *zap.Logger) time.Duration {
	value := os.Getenv(backupPollIntervalEnvVar)
	if value == "" {
		return defaultBackupPollInterval
	}
	millis, err := strconv.Atoi(value)
	if err != nil || millis <= 0 {
		logger.Error("invalid backup poll interval override, using default",
			zap.String("var", backupPollIntervalEnvVar),
			zap.String("value", value),
			zap.Duration("default", defaultBackupPollInterval))
		return defaultBackupPollInterval
	}
	return time.Duration(millis) * time.Millisecond
}
