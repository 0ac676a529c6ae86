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

// Package treemap provides an immutable ordered map backed by an AVL
// tree. Mutating operations return a new map that shares all untouched
// subtrees with the original, so a map value, once obtained, is a
// consistent snapshot that can be read concurrently with any number of
// readers and writers. Publishing a new snapshot (for example via an
// atomic pointer swap) is the caller's concern.
package treemap

// Map is an immutable ordered map from K to V. The zero value is not
// usable; construct maps with [New]. Keys are stored by value.
type Map[K, V any] struct {
	cmp  func(a, b K) int
	root *node[K, V]
}

type node[K, V any] struct {
	key    K
	value  V
	left   *node[K, V]
	right  *node[K, V]
	height int
	size   int
}

// New returns an empty map ordered by cmp. The comparison must define a
// strict total order: negative when a sorts before b, positive when
// after, zero when equal.
func New[K, V any](cmp func(a, b K) int) *Map[K, V] {
	return &Map[K, V]{cmp: cmp}
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return m.root.sizeOf()
}

// Get returns the value stored under key, if any.
func (m *Map[K, V]) Get(key K) (V, bool) {
	current := m.root
	for current != nil {
		switch c := m.cmp(key, current.key); {
		case c < 0:
			current = current.left
		case c > 0:
			current = current.right
		default:
			return current.value, true
		}
	}
	var zero V
	return zero, false
}

// Set returns a new map in which key maps to value, replacing any
// existing entry for key. The receiver is unchanged.
func (m *Map[K, V]) Set(key K, value V) *Map[K, V] {
	return &Map[K, V]{cmp: m.cmp, root: m.set(m.root, key, value)}
}

// Delete returns a map in which key is absent. Deleting an absent key
// returns the receiver itself.
func (m *Map[K, V]) Delete(key K) *Map[K, V] {
	root, found := m.delete(m.root, key)
	if !found {
		return m
	}
	return &Map[K, V]{cmp: m.cmp, root: root}
}

// Range calls fn for each entry in ascending key order until fn returns
// false.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	m.root.walk(fn)
}

func (m *Map[K, V]) set(current *node[K, V], key K, value V) *node[K, V] {
	if current == nil {
		return join(key, value, nil, nil)
	}
	switch c := m.cmp(key, current.key); {
	case c < 0:
		return join(current.key, current.value, m.set(current.left, key, value), current.right)
	case c > 0:
		return join(current.key, current.value, current.left, m.set(current.right, key, value))
	default:
		return join(key, value, current.left, current.right)
	}
}

func (m *Map[K, V]) delete(current *node[K, V], key K) (*node[K, V], bool) {
	if current == nil {
		return nil, false
	}
	switch c := m.cmp(key, current.key); {
	case c < 0:
		left, found := m.delete(current.left, key)
		if !found {
			return nil, false
		}
		return join(current.key, current.value, left, current.right), true
	case c > 0:
		right, found := m.delete(current.right, key)
		if !found {
			return nil, false
		}
		return join(current.key, current.value, current.left, right), true
	default:
		if current.left == nil {
			return current.right, true
		}
		if current.right == nil {
			return current.left, true
		}
		successorKey, successorValue, right := deleteMin(current.right)
		return join(successorKey, successorValue, current.left, right), true
	}
}

func deleteMin[K, V any](current *node[K, V]) (K, V, *node[K, V]) {
	if current.left == nil {
		return current.key, current.value, current.right
	}
	key, value, left := deleteMin(current.left)
	return key, value, join(current.key, current.value, left, current.right)
}

// join builds a balanced node from two subtrees whose heights differ by
// at most two, which is the worst case after a single insert or delete
// along one search path.
func join[K, V any](key K, value V, left, right *node[K, V]) *node[K, V] {
	switch {
	case left.heightOf() > right.heightOf()+1:
		if left.left.heightOf() >= left.right.heightOf() {
			return mk(left.key, left.value,
				left.left,
				mk(key, value, left.right, right))
		}
		pivot := left.right
		return mk(pivot.key, pivot.value,
			mk(left.key, left.value, left.left, pivot.left),
			mk(key, value, pivot.right, right))
	case right.heightOf() > left.heightOf()+1:
		if right.right.heightOf() >= right.left.heightOf() {
			return mk(right.key, right.value,
				mk(key, value, left, right.left),
				right.right)
		}
		pivot := right.left
		return mk(pivot.key, pivot.value,
			mk(key, value, left, pivot.left),
			mk(right.key, right.value, pivot.right, right.right))
	default:
		return mk(key, value, left, right)
	}
}

func mk[K, V any](key K, value V, left, right *node[K, V]) *node[K, V] {
	height := left.heightOf()
	if h := right.heightOf(); h > height {
		height = h
	}
	return &node[K, V]{
		key:    key,
		value:  value,
		left:   left,
		right:  right,
		height: height + 1,
		size:   left.sizeOf() + right.sizeOf() + 1,
	}
}

func (n *node[K, V]) heightOf() int {
	if n == nil {
		return 0
	}
	return n.height
}

func (n *node[K, V]) sizeOf() int {
	if n == nil {
		return 0
	}
	return n.size
}

func (n *node[K, V]) walk(fn func(K, V) bool) bool {
	if n == nil {
		return true
	}
	return n.left.walk(fn) && fn(n.key, n.value) && n.right.walk(fn)
}
