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
	"fmt"
	"unsafe"

	"github.com/matsaleh13/allok8or/align"
	"github.com/matsaleh13/allok8or/internal/debug"
	"github.com/matsaleh13/allok8or/logging"
	"golang.org/x/xerrors"
)

// BlockAllocator pools fixed-size blocks carved from pages of a borrowed
// PageAllocator. Released blocks go back on the free list and are reused
// before a new page is requested.
//
// BlockAllocator is not safe for concurrent use.
type BlockAllocator struct {
	pages     *PageAllocator
	blockSize int
	alignment int
	stride    int

	free  FixedBlockList
	used  FixedBlockList
	owned [][]byte
}

// NewBlockAllocator returns an allocator of blockSize byte blocks aligned
// to alignment. The alignment may not exceed the page alignment of pages.
func NewBlockAllocator(pages *PageAllocator, blockSize, alignment int) (*BlockAllocator, error) {
	if pages == nil {
		return nil, xerrors.New("memory: nil page allocator")
	}
	if err := validate(blockSize, alignment); err != nil {
		return nil, err
	}
	if alignment > pages.Alignment() {
		return nil, xerrors.Errorf("block alignment %d exceeds page alignment %d: %w",
			alignment, pages.Alignment(), ErrInvalidAlignment)
	}

	a := &BlockAllocator{pages: pages, blockSize: blockSize, alignment: alignment}
	a.stride = FixedBlockOverhead(alignment) + align.AlignedSize(blockSize, a.slotAlignment())
	if a.stride > pages.UserDataSize() {
		return nil, xerrors.Errorf("block stride %d, page holds %d: %w",
			a.stride, pages.UserDataSize(), ErrBlockTooSmall)
	}
	return a, nil
}

func (a *BlockAllocator) slotAlignment() int {
	if a.alignment < int(unsafe.Alignof(FixedBlockHeader{})) {
		return int(unsafe.Alignof(FixedBlockHeader{}))
	}
	return a.alignment
}

func (a *BlockAllocator) BlockSize() int { return a.blockSize }
func (a *BlockAllocator) Alignment() int { return a.alignment }

// BlocksPerPage is the number of blocks carved from each page.
func (a *BlockAllocator) BlocksPerPage() int { return a.pages.UserDataSize() / a.stride }
func (a *BlockAllocator) NumFree() int       { return a.free.NumBlocks() }
func (a *BlockAllocator) NumUsed() int       { return a.used.NumBlocks() }
func (a *BlockAllocator) NumPages() int      { return len(a.owned) }

// Allocate returns a block of BlockSize bytes. The contents are whatever
// the previous user left behind.
func (a *BlockAllocator) Allocate() ([]byte, error) {
	if a.free.Empty() {
		if err := a.grow(); err != nil {
			return nil, err
		}
	}

	h := a.free.Pop()
	debug.Assert(h.state == PageFree, "block allocator: free list holds a used block")
	if err := a.used.Add(h); err != nil {
		return nil, err
	}
	h.state = PageUsed
	return h.Bytes(), nil
}

// Deallocate returns a block to the free list. Releasing a block that is
// not in use, such as a second free, fails with ErrPageState and leaves
// both lists untouched.
func (a *BlockAllocator) Deallocate(b []byte) error {
	if cap(b) == 0 {
		return ErrNilBlock
	}
	ptr := unsafe.Pointer(unsafe.SliceData(b))
	h := GetFixedBlockHeader(ptr)
	if h.UserData() != ptr || h.UserDataSize() != a.blockSize {
		return xerrors.Errorf("block %p: %w", ptr, ErrForeignBlock)
	}
	if h.state != PageUsed {
		logging.Errorf("Deallocating block [%p] in state [%s].", ptr, h.state)
		return xerrors.Errorf("deallocate %s block %p: %w", h.state, ptr, ErrPageState)
	}
	if err := a.used.Remove(h); err != nil {
		return xerrors.Errorf("block %p: %w", ptr, err)
	}
	h.state = PageFree
	return a.free.Add(h)
}

// Close hands every page back to the page allocator. Blocks still in use
// are reported as a leak, and then no page is released.
func (a *BlockAllocator) Close() error {
	if !a.used.Empty() {
		logging.Errorf("Block allocator closed with blocks outstanding [%d], leaking [%d] bytes.",
			a.used.NumBlocks(), a.used.NumBytes())
		return a.used.Close()
	}

	a.free.Reset()
	var firstErr error
	for _, page := range a.owned {
		if err := a.pages.Deallocate(page); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.owned = nil
	return firstErr
}

// grow carves a fresh page into blocks. Blocks are pushed in reverse so
// that they are handed out in address order.
func (a *BlockAllocator) grow() error {
	page, err := a.pages.Allocate()
	if err != nil {
		return err
	}
	a.owned = append(a.owned, page)

	n := len(page) / a.stride
	debug.Log(func() string {
		return fmt.Sprintf("block allocator: page %d carved into %d blocks of %d bytes", len(a.owned), n, a.blockSize)
	})
	for i := n - 1; i >= 0; i-- {
		slot := page[i*a.stride : (i+1)*a.stride]
		h, err := NewFixedBlockHeader(slot, a.blockSize, a.alignment)
		if err != nil {
			return err
		}
		if err := a.free.Add(h); err != nil {
			return err
		}
	}
	return nil
}
