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

	"github.com/bufbuild/connpool/conn"
)

//nolint:gochecknoglobals
var (
	globalMu sync.Mutex
	// +checklocks:globalMu
	globalPool *Pool
)

// Init constructs the process-wide pool. It must be called once, at
// process startup, before any use of Instance, Register, or Find, and
// must be paired with a Shutdown at process teardown. Calling Init
// while a process-wide pool already exists is a programming error and
// panics.
func Init(options ...Option) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalPool != nil {
		panic("connpool: Init called twice without an intervening Shutdown")
	}
	globalPool = New(options...)
}

// Shutdown tears down the process-wide pool: it stops the sweeper,
// releases the pool's reference to every connection, waits for those
// releases to complete, and stops background polling, so that by the
// time lower-level I/O teardown runs no connection is still attached to
// the pollset. Calling Shutdown without a live pool is a programming
// error and panics.
func Shutdown() {
	globalMu.Lock()
	pool := globalPool
	globalPool = nil
	globalMu.Unlock()
	if pool == nil {
		panic("connpool: Shutdown without a matching Init")
	}
	_ = pool.Close()
}

// Instance returns the process-wide pool. It panics when called outside
// an Init/Shutdown window.
func Instance() *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalPool == nil {
		panic("connpool: Instance called outside an Init/Shutdown window")
	}
	return globalPool
}

// Register calls [Pool.Register] on the process-wide pool.
func Register(key Key, candidate conn.Conn) *Ref {
	return Instance().Register(key, candidate)
}

// Find calls [Pool.Find] on the process-wide pool.
func Find(key Key) *Ref {
	return Instance().Find(key)
}
