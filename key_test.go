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

package connpool_test

import (
	"testing"

	"github.com/bufbuild/connpool"
	"github.com/stretchr/testify/assert"
)

func TestKeyCompare(t *testing.T) {
	t.Parallel()

	a := connpool.NewKey("addr1", "")
	b := connpool.NewKey("addr2", "")
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(connpool.NewKey("addr1", "")))

	// same address, ordered by config
	c1 := connpool.NewKey("addr1", "keepalive=10s")
	c2 := connpool.NewKey("addr1", "keepalive=30s")
	assert.Negative(t, c1.Compare(c2))
	assert.Positive(t, c2.Compare(c1))
	assert.NotZero(t, a.Compare(c1))
}

func TestKeyAccessors(t *testing.T) {
	t.Parallel()

	key := connpool.NewKey("dns:///backend:8080", "keepalive=30s")
	assert.Equal(t, "dns:///backend:8080", key.Address())
	assert.Equal(t, "keepalive=30s", key.Config())
	assert.Equal(t, "dns:///backend:8080?keepalive=30s", key.String())
	assert.Equal(t, "addr1", connpool.NewKey("addr1", "").String())
}
