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

package diagnostic

// Stats are the cumulative counters of one call site.
type Stats struct {
	Allocations      int64
	BytesAllocated   int64
	Deallocations    int64
	BytesDeallocated int64
}

// NullStats is returned for sites that were never tracked.
var NullStats Stats

func (s Stats) NetAllocations() int64 { return s.Allocations - s.Deallocations }
func (s Stats) NetBytes() int64       { return s.BytesAllocated - s.BytesDeallocated }

// StatsTracker accumulates Stats per call site. Blocks without a stamped
// site are counted under the nil site. Records are created on first use
// and never removed.
type StatsTracker struct {
	stats map[*Site]*Stats
	order []*Site
}

func NewStatsTracker() *StatsTracker {
	return &StatsTracker{stats: make(map[*Site]*Stats)}
}

func (t *StatsTracker) record(site *Site) *Stats {
	s, ok := t.stats[site]
	if !ok {
		s = &Stats{}
		t.stats[site] = s
		t.order = append(t.order, site)
	}
	return s
}

func (t *StatsTracker) TrackAllocation(site *Site, bytes int) {
	s := t.record(site)
	s.Allocations++
	s.BytesAllocated += int64(bytes)
}

func (t *StatsTracker) TrackDeallocation(site *Site, bytes int) {
	s := t.record(site)
	s.Deallocations++
	s.BytesDeallocated += int64(bytes)
}

// Stats returns the record for site, or NullStats without creating one.
func (t *StatsTracker) Stats(site *Site) Stats {
	if s, ok := t.stats[site]; ok {
		return *s
	}
	return NullStats
}

// Sites returns the tracked sites in the order they were first seen.
func (t *StatsTracker) Sites() []*Site {
	return append([]*Site(nil), t.order...)
}

func (t *StatsTracker) Len() int { return len(t.order) }

// Total sums the records of every site.
func (t *StatsTracker) Total() Stats {
	var total Stats
	for _, s := range t.stats {
		total.Allocations += s.Allocations
		total.BytesAllocated += s.BytesAllocated
		total.Deallocations += s.Deallocations
		total.BytesDeallocated += s.BytesDeallocated
	}
	return total
}
