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

// Package connpool provides a process-wide pool that deduplicates
// outbound RPC connections ("subchannels") by identity key. Many
// independent call paths, such as load balancing policies across many
// channels, may request a connection to the same backend; the pool
// guarantees that concurrent requests for the same key converge onto a
// single shared connection instead of creating duplicates, while
// connections that fall out of use are reclaimed by a background
// sweeper.
//
// A connection's identity is its [Key]: the target address plus the
// canonical form of the configuration used to dial it. The pool never
// constructs connections. A caller that needs one builds a candidate
// [conn.Conn] and offers it with Register; if another caller won the
// race for that key, the candidate is discarded and everyone shares the
// winner. Register and Find return a counted handle, [Ref], which the
// caller releases when done. A connection is closed exactly once, when
// the pool and every handle holder have released it.
//
// # Concurrency
//
// The key->connection mapping is an immutable snapshot backed by the
// [github.com/bufbuild/connpool/treemap] package. Writers prepare a new
// snapshot off to the side and publish it with an atomic
// compare-and-swap, retrying on contention; readers load the current
// snapshot and traverse it without any locking. A reader therefore
// always sees some fully formed snapshot, never a partially updated
// one.
//
// # Reclamation
//
// There is no external unregister. Once each sweep interval the pool
// walks a snapshot, collects the connections only it still references,
// and removes exactly those entries. A connection that comes back into
// use between collection and removal is left registered; one removed
// while a caller still holds a handle stays open until that handle is
// released. The sweep interval defaults to one second and can be
// overridden with the CONNPOOL_SWEEP_INTERVAL_MS environment variable
// or the [WithSweepInterval] option.
//
// # Lifecycle
//
// Most programs share a single pool per process: call [Init] at
// startup, [Instance] (or the package-level [Register] and [Find]) to
// use it, and [Shutdown] at teardown. Misuse of this window, such as a
// second Init or any use after Shutdown, is a programming error and
// panics. Explicit pools from [New] serve tests and hosts that need
// isolation.
package connpool
