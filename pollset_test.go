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
	"testing"
	"time"

	"github.com/bufbuild/connpool/internal"
	"github.com/bufbuild/connpool/internal/clocktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBackupPollerPingsRegisteredConnections(t *testing.T) {
	t.Parallel()

	testClock := clocktest.NewFakeClock()
	poller := newBackupPoller(time.Second, testClock, zap.NewNop())
	connection := &testConn{}
	poller.Add(connection)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, testClock.BlockUntilContext(ctx, 1))
	testClock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return connection.pings.Load() >= 1
	}, time.Second, 10*time.Millisecond)

	poller.Remove(connection)
	require.NoError(t, poller.Close())
	// closed poller no longer pings
	pinged := connection.pings.Load()
	testClock.Advance(time.Second)
	assert.Equal(t, pinged, connection.pings.Load())
}

func TestBackupPollerSurvivesPingErrors(t *testing.T) {
	t.Parallel()

	testClock := clocktest.NewFakeClock()
	poller := newBackupPoller(time.Second, testClock, zap.NewNop())
	connection := &testConn{pingErr: context.DeadlineExceeded}
	poller.Add(connection)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, testClock.BlockUntilContext(ctx, 1))
	testClock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return connection.pings.Load() >= 1
	}, time.Second, 10*time.Millisecond)
	// a failed ping doesn't stop polling
	testClock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return connection.pings.Load() >= 2
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, poller.Close())
}

func TestPollsetFromEnv(t *testing.T) { //nolint:paralleltest // mutates env
	t.Setenv(pollStrategyEnvVar, "none")
	pollset := newPollsetFromEnv(internal.NewRealClock(), zap.NewNop())
	assert.Equal(t, NopPollset, pollset)

	t.Setenv(pollStrategyEnvVar, "poll")
	pollset = newPollsetFromEnv(internal.NewRealClock(), zap.NewNop())
	_, ok := pollset.(*backupPoller)
	require.True(t, ok)
	require.NoError(t, pollset.Close())
}

func TestBackupPollIntervalFromEnv(t *testing.T) { //nolint:paralleltest // mutates env
	logger := zap.NewNop()
	assert.Equal(t, defaultBackupPollInterval, backupPollIntervalFromEnv(logger))

	t.Setenv(backupPollIntervalEnvVar, "250")
	assert.Equal(t, 250*time.Millisecond, backupPollIntervalFromEnv(logger))

	t.Setenv(backupPollIntervalEnvVar, "not-a-number")
	assert.Equal(t, defaultBackupPollInterval, backupPollIntervalFromEnv(logger))

	t.Setenv(backupPollIntervalEnvVar, "-5")
	assert.Equal(t, defaultBackupPollInterval, backupPollIntervalFromEnv(logger))
}
