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

package memory

import (
	"github.com/JohnCGriffin/overflow"
	"github.com/matsaleh13/allok8or/align"
	"golang.org/x/xerrors"
)

// GoAllocator serves blocks from the Go heap. Each block is over-allocated
// and shifted to the requested alignment. Live blocks stay referenced from
// the allocator until they are deallocated, so block headers stored in them
// may link to one another.
type GoAllocator struct {
	live map[uintptr][]byte
}

func NewGoAllocator() *GoAllocator {
	return &GoAllocator{live: make(map[uintptr][]byte)}
}

func (a *GoAllocator) Allocate(size int) ([]byte, error) {
	return a.AllocateAligned(size, DefaultAlignment)
}

func (a *GoAllocator) AllocateAligned(size, alignment int) ([]byte, error) {
	if err := validate(size, alignment); err != nil {
		return nil, err
	}
	if a.live == nil {
		a.live = make(map[uintptr][]byte)
	}

	n, ok := overflow.Add(size, alignment) // padding for alignment
	if !ok {
		return nil, xerrors.Errorf("go allocator: %d bytes aligned to %d: %w", size, alignment, ErrOutOfMemory)
	}
	buf := make([]byte, n)
	addr := addressOf(buf)
	next := align.NextAlignedAddress(addr, uintptr(alignment))
	shift := int(next - addr)
	out := buf[shift : size+shift : size+shift]

	a.live[next] = buf
	return out, nil
}

func (a *GoAllocator) Deallocate(b []byte) error {
	if cap(b) == 0 {
		return ErrNilBlock
	}
	addr := addressOf(b)
	if _, ok := a.live[addr]; !ok {
		return xerrors.Errorf("go allocator: %#x: %w", addr, ErrForeignBlock)
	}
	delete(a.live, addr)
	return nil
}

// NumLive returns the number of blocks not yet deallocated.
func (a *GoAllocator) NumLive() int { return len(a.live) }

var _ Allocator = (*GoAllocator)(nil)
