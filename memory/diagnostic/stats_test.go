// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package diagnostic_test

import (
	"testing"

	"github.com/matsaleh13/allok8or/memory/diagnostic"
	"github.com/stretchr/testify/assert"
)

func TestStatsTracker(t *testing.T) {
	foo := diagnostic.SiteOf("Foo", "foo.go", 10)
	bar := diagnostic.SiteOf("Bar", "bar.go", 20)

	st := diagnostic.NewStatsTracker()
	assert.Equal(t, diagnostic.NullStats, st.Stats(foo))
	assert.Zero(t, st.Len(), "lookup must not create a record")

	st.TrackAllocation(bar, 16)
	st.TrackAllocation(foo, 48)
	st.TrackAllocation(foo, 48)
	st.TrackDeallocation(foo, 48)

	assert.Equal(t, []*diagnostic.Site{bar, foo}, st.Sites())
	assert.Equal(t, diagnostic.Stats{
		Allocations:      2,
		BytesAllocated:   96,
		Deallocations:    1,
		BytesDeallocated: 48,
	}, st.Stats(foo))
	assert.EqualValues(t, 1, st.Stats(foo).NetAllocations())
	assert.EqualValues(t, 48, st.Stats(foo).NetBytes())

	total := st.Total()
	assert.EqualValues(t, 3, total.Allocations)
	assert.EqualValues(t, 112, total.BytesAllocated)
	assert.EqualValues(t, 2, total.NetAllocations())
}

func TestStatsTrackerNilSite(t *testing.T) {
	st := diagnostic.NewStatsTracker()
	st.TrackAllocation(nil, 16)
	st.TrackDeallocation(nil, 16)

	assert.Equal(t, 1, st.Len())
	assert.EqualValues(t, 1, st.Stats(nil).Allocations)
	assert.Zero(t, st.Stats(nil).NetBytes())
}

func TestStatsMonotonic(t *testing.T) {
	site := diagnostic.SiteOf("M", "m.go", 1)
	st := diagnostic.NewStatsTracker()

	var prev diagnostic.Stats
	for i := 0; i < 50; i++ {
		if i%3 == 2 {
			st.TrackDeallocation(site, i)
		} else {
			st.TrackAllocation(site, i)
		}
		cur := st.Stats(site)
		assert.GreaterOrEqual(t, cur.Allocations, prev.Allocations)
		assert.GreaterOrEqual(t, cur.BytesAllocated, prev.BytesAllocated)
		assert.GreaterOrEqual(t, cur.Deallocations, prev.Deallocations)
		assert.GreaterOrEqual(t, cur.BytesDeallocated, prev.BytesDeallocated)
		prev = cur
	}
}
