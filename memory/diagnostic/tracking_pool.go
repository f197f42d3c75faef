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

import (
	"github.com/matsaleh13/allok8or/logging"
	"github.com/matsaleh13/allok8or/memory"
	"golang.org/x/xerrors"
)

// TrackingPool links the headers of live blocks and keeps allocation
// statistics for them. It owns neither the headers nor their memory.
type TrackingPool struct {
	blocks memory.BlockList[BlockHeader, *BlockHeader]
	stats  *StatsTracker
}

func NewTrackingPool() *TrackingPool {
	return &TrackingPool{stats: NewStatsTracker()}
}

// Add links h at the head of the pool and counts it as an allocation from
// its site.
func (p *TrackingPool) Add(h *BlockHeader) error {
	if err := p.blocks.Add(h); err != nil {
		return err
	}
	p.stats.TrackAllocation(h.site, h.userDataSize)
	return nil
}

// Remove unlinks h and counts it as a deallocation from its site.
func (p *TrackingPool) Remove(h *BlockHeader) error {
	if err := p.blocks.Remove(h); err != nil {
		return err
	}
	p.stats.TrackDeallocation(h.site, h.userDataSize)
	return nil
}

func (p *TrackingPool) Contains(h *BlockHeader) bool { return p.blocks.Contains(h) }
func (p *TrackingPool) Head() *BlockHeader           { return p.blocks.Head() }
func (p *TrackingPool) Tail() *BlockHeader           { return p.blocks.Tail() }
func (p *TrackingPool) NumBlocks() int               { return p.blocks.NumBlocks() }
func (p *TrackingPool) NumBytes() int                { return p.blocks.NumBytes() }
func (p *TrackingPool) Stats() *StatsTracker         { return p.stats }

// Each calls fn for every live header, most recent first.
func (p *TrackingPool) Each(fn func(h *BlockHeader)) { p.blocks.Each(fn) }

// LogBlocks writes one info line per live block.
func (p *TrackingPool) LogBlocks() {
	p.blocks.Each(func(h *BlockHeader) {
		logging.Infof("%s", h)
	})
}

// Close reports blocks that are still live. A leak is logged and returned
// as memory.ErrLeak; the blocks stay linked.
func (p *TrackingPool) Close() error {
	err := p.blocks.Close()
	if err == nil {
		return nil
	}
	logging.Errorf("Detected memory leaks when closing tracking pool [%d]; leaking [%d] bytes.",
		p.blocks.NumBlocks(), p.blocks.NumBytes())
	return xerrors.Errorf("tracking pool: %w", err)
}
