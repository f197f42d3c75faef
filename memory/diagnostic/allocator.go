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
	"os"
	"strconv"
	"unsafe"

	"github.com/JohnCGriffin/overflow"
	"github.com/matsaleh13/allok8or/align"
	"github.com/matsaleh13/allok8or/logging"
	"github.com/matsaleh13/allok8or/memory"
	"golang.org/x/xerrors"
)

// callerFrames is how many frames above Allocate or AllocateAligned the
// captured call site is. 1 is the direct caller; wrappers such as the typed
// and buffer adapters need more. Set ALLOK8OR_CALLER_FRAMES to change the
// default.
var callerFrames = 1

func init() {
	if val, ok := os.LookupEnv("ALLOK8OR_CALLER_FRAMES"); ok {
		if f, err := strconv.Atoi(val); err == nil {
			callerFrames = f
		}
	}
}

type config struct {
	captureCaller bool
	callerFrames  int
}

type Option func(*config)

// WithCallerCapture stamps every block with the file and line of the
// allocating call.
func WithCallerCapture(enabled bool) Option {
	return func(c *config) { c.captureCaller = enabled }
}

// WithCallerFrames sets how many frames above Allocate the captured call
// site is, overriding ALLOK8OR_CALLER_FRAMES.
func WithCallerFrames(n int) Option {
	return func(c *config) { c.callerFrames = n }
}

// Allocator tracks every block obtained from a borrowed backing allocator.
// Blocks carry a BlockHeader ahead of the user region; the header is linked
// into a TrackingPool until the block is deallocated.
type Allocator[B memory.Allocator] struct {
	backing B
	pool    *TrackingPool
	cfg     config
}

func NewAllocator[B memory.Allocator](backing B, opts ...Option) *Allocator[B] {
	a := &Allocator[B]{
		backing: backing,
		pool:    NewTrackingPool(),
		cfg:     config{callerFrames: callerFrames},
	}
	for _, opt := range opts {
		opt(&a.cfg)
	}
	return a
}

func (a *Allocator[B]) Backing() B             { return a.backing }
func (a *Allocator[B]) Tracker() *TrackingPool { return a.pool }
func (a *Allocator[B]) Stats() *StatsTracker   { return a.pool.Stats() }

func (a *Allocator[B]) Allocate(size int) ([]byte, error) {
	return a.allocate(size, memory.DefaultAlignment, a.callerSite(1))
}

// AllocateAligned returns size bytes aligned to alignment. The block is
// tracked under its rounded size, AlignedSize(size, alignment), which is
// also the capacity of the returned slice.
func (a *Allocator[B]) AllocateAligned(size, alignment int) ([]byte, error) {
	return a.allocate(size, alignment, a.callerSite(1))
}

// callerSite captures the caller skip frames above the function calling
// callerSite, when enabled.
func (a *Allocator[B]) callerSite(skip int) *Site {
	if !a.cfg.captureCaller {
		return nil
	}
	cd := Caller(skip + a.cfg.callerFrames)
	return SiteOf("", cd.FileName, cd.Line)
}

func (a *Allocator[B]) allocate(size, alignment int, site *Site) ([]byte, error) {
	if size <= 0 {
		return nil, xerrors.Errorf("size %d: %w", size, memory.ErrInvalidSize)
	}
	if !align.IsPowerOfTwo(alignment) {
		return nil, xerrors.Errorf("alignment %d: %w", alignment, memory.ErrInvalidAlignment)
	}

	alignedUser := align.AlignedSize(size, alignment)
	total, ok := overflow.Add(alignedUser, overhead(alignment))
	if alignedUser < size || !ok {
		return nil, xerrors.Errorf("size %d with header: %w", size, memory.ErrOutOfMemory)
	}

	backingAlign := alignment
	if backingAlign < int(unsafe.Alignof(BlockHeader{})) {
		backingAlign = int(unsafe.Alignof(BlockHeader{}))
	}
	block, err := a.backing.AllocateAligned(total, backingAlign)
	if err != nil {
		return nil, err
	}

	h, err := NewBlockHeader(block, alignedUser, alignment, site)
	if err == nil {
		err = a.pool.Add(h)
	}
	if err != nil {
		if ferr := a.backing.Deallocate(block); ferr != nil {
			logging.Errorf("Failed to release block after error [%v]: %v", err, ferr)
		}
		return nil, err
	}

	return unsafe.Slice((*byte)(h.UserData()), alignedUser)[:size], nil
}

// Deallocate releases a block returned by this allocator.
func (a *Allocator[B]) Deallocate(b []byte) error {
	if cap(b) == 0 {
		return memory.ErrNilBlock
	}

	ptr := unsafe.Pointer(unsafe.SliceData(b))
	h := GetHeader(ptr)
	if !h.IsValid() || h.UserData() != ptr {
		logging.Errorf("Invalid block header for user data [%p].", ptr)
		return xerrors.Errorf("user data %p: %w", ptr, memory.ErrCorruptBlock)
	}
	if err := a.pool.Remove(h); err != nil {
		return xerrors.Errorf("user data %p: %w", ptr, err)
	}

	block := h.block()
	h.invalidate()
	return a.backing.Deallocate(block)
}

// Equal reports identity; two diagnostic allocators never share blocks.
func (a *Allocator[B]) Equal(other memory.Allocator) bool {
	o, ok := other.(*Allocator[B])
	return ok && o == a
}

// Close reports live blocks as a leak. The backing allocator is borrowed
// and is left open.
func (a *Allocator[B]) Close() error { return a.pool.Close() }

// AssertSize checks that sz bytes are live. On mismatch every live block is
// reported along with where it was allocated.
func (a *Allocator[B]) AssertSize(t memory.TestingT, sz int) {
	if got := a.pool.NumBytes(); got != sz {
		t.Helper()
		a.pool.Each(func(h *BlockHeader) {
			var file string
			var line int
			if site := h.Site(); site != nil {
				file, line = site.FileName, site.Line
			}
			t.Errorf("LEAK of %d bytes FROM %s line %d\n", h.UserDataSize(), file, line)
		})
		t.Errorf("invalid memory size exp=%d, got=%d", sz, got)
	}
}

// Scope records the live byte count of an allocator so that a test can
// check that a section of code released everything it allocated.
type Scope struct {
	pool *TrackingPool
	sz   int
}

func (a *Allocator[B]) Scope() *Scope {
	return &Scope{pool: a.pool, sz: a.pool.NumBytes()}
}

func (s *Scope) CheckSize(t memory.TestingT) {
	if sz := s.pool.NumBytes(); sz != s.sz {
		t.Helper()
		t.Errorf("invalid memory size exp=%d, got=%d", s.sz, sz)
	}
}

var (
	_ memory.Allocator = (*Allocator[memory.PassThroughAllocator])(nil)
	_ memory.Allocator = (*Allocator[*memory.GoAllocator])(nil)
)
