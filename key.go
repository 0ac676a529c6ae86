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

import "strings"

// Key identifies a pooled connection: the target address plus the
// canonical form of the effective configuration used to dial it. Two
// channels that dial the same address with the same configuration share
// a connection; differing configuration yields distinct pool entries
// even for the same address.
//
// Key has value semantics: the pool stores its own copy, independent of
// the caller's. The pool does not interpret either component beyond the
// total order defined by Compare.
type Key struct {
	address string
	config  string
}

// NewKey returns the key for the given target address and canonical
// configuration string. Producing the canonical form (sorting and
// serializing channel arguments, for example) is the caller's concern.
func NewKey(address, config string) Key {
	return Key{address: address, config: config}
}

// Address returns the target address component.
func (k Key) Address() string {
	return k.address
}

// Config returns the canonical configuration component.
func (k Key) Config() string {
	return k.config
}

// Compare defines a strict total order over keys: by address first,
// then by configuration. It returns a negative number, zero, or a
// positive number when k sorts before, equal to, or after other.
func (k Key) Compare(other Key) int {
	if c := strings.Compare(k.address, other.address); c != 0 {
		return c
	}
	return strings.Compare(k.config, other.config)
}

func (k Key) String() string {
	if k.config == "" {
		return k.address
	}
	return k.address + "?" + k.config
}
