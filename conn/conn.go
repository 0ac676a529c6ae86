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

// Package conn defines the connection primitive managed by the
// [github.com/bufbuild/connpool] package. A connection is a *logical*
// connection (often called a subchannel) to a single backend. It may be
// represented by zero or more physical connections (i.e. sockets).
package conn

import "context"

// Conn is a logical connection that can be registered with a pool. The
// pool never constructs connections: callers build one, including its
// transport and health machinery, and offer it for registration.
type Conn interface {
	// Ping drives one round of background I/O on the connection. The
	// pool's backup poller invokes it periodically for every registered
	// connection so that connections no channel is actively driving
	// still make progress (keep-alives, settling handshakes, noticing
	// broken sockets). Implementations for which this is meaningless
	// may return nil without doing anything.
	Ping(ctx context.Context) error
	// Close releases the connection's underlying resources. The pool
	// calls it exactly once, after the pool and every handle holder
	// have released the connection.
	Close() error
}
