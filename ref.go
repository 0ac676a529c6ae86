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
	"sync/atomic"

	"github.com/bufbuild/connpool/conn"
)

// A Ref is a counted handle to a pooled connection. Register and Find
// return a Ref whose reference the caller owns; the caller must call
// Release exactly once when done with it. The pool holds one additional
// reference of its own for as long as the connection's key is
// published, so a connection stays open while either the pool or any
// handle holder still needs it.
type Ref struct {
	key  Key
	conn conn.Conn
	refs atomic.Int64
}

// newRef wraps a just-published connection. The count starts at two:
// the pool's own reference plus the one returned to the registrant.
func newRef(key Key, connection conn.Conn) *Ref {
	ref := &Ref{key: key, conn: connection}
	ref.refs.Store(2)
	return ref
}

// Conn returns the underlying connection. The connection remains valid
// until the Ref is released.
func (r *Ref) Conn() conn.Conn {
	return r.conn
}

// Key returns the identity under which the connection is registered.
func (r *Ref) Key() Key {
	return r.key
}

// Release drops the caller's reference. When the last reference is
// dropped the underlying connection is closed, exactly once.
func (r *Ref) Release() {
	remaining := r.refs.Add(-1)
	if remaining < 0 {
		panic("connpool: Release of an already released handle")
	}
	if remaining == 0 {
		_ = r.conn.Close()
	}
}

// acquire takes an additional reference. It fails when the count has
// already reached zero, which means the connection is being torn down
// and must be treated as absent.
func (r *Ref) acquire() bool {
	for {
		current := r.refs.Load()
		if current == 0 {
			return false
		}
		if r.refs.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// isUnused reports whether only the pool's own reference remains. The
// sweeper collects such connections for removal.
func (r *Ref) isUnused() bool {
	return r.refs.Load() == 1
}
