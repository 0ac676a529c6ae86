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

import "github.com/bufbuild/connpool/internal"

// WithClock lets tests drive the sweeper and backup poller with a fake
// clock.
func WithClock(clock internal.Clock) Option {
	return withClock(clock)
}

// StopSweep halts the pool's current sweeper, for tests that need
// deterministic sweep timing.
func (p *Pool) StopSweep() {
	p.stopSweep()
}

// StartSweep arms a fresh sweeper after StopSweep.
func (p *Pool) StartSweep() {
	p.startSweep()
}

// Size reports the number of currently published connections.
func (p *Pool) Size() int {
	return p.root.Load().Len()
}
