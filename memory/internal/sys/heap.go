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

// Package sys holds the OS-facing primitives behind the allocators: an
// aligned malloc/free pair over an off-heap system heap, anonymous page
// mappings, and CPU cache geometry.
//
// Memory returned from this package is never scanned or moved by the Go
// garbage collector, which is what lets the allocator layers keep raw links
// inside block headers.
package sys

import (
	"sync"
	"unsafe"

	"github.com/JohnCGriffin/overflow"
	"github.com/matsaleh13/allok8or/align"
	"golang.org/x/xerrors"
	"modernc.org/memory"
)

const wordSize = int(unsafe.Sizeof(uintptr(0)))

// ErrTooLarge is returned when a request plus its alignment padding does
// not fit in an int.
var ErrTooLarge = xerrors.New("sys: allocation size overflows")

// heap is shared process-wide. The mutex gives it the same thread safety
// contract as C malloc/free; the layers above it are single threaded.
var heap struct {
	sync.Mutex
	alloc memory.Allocator
	live  int
}

// AlignedAlloc returns size bytes of uninitialized memory whose first byte
// is a multiple of alignment. alignment must be a power of two; 0 means no
// requirement beyond the heap's natural alignment.
//
// Two words ahead of the returned address record the raw allocation so
// that AlignedFree can recover it.
func AlignedAlloc(size, alignment int) ([]byte, error) {
	if size <= 0 {
		return nil, xerrors.Errorf("sys: invalid allocation size %d", size)
	}
	if alignment == 0 {
		alignment = wordSize
	}
	if !align.IsPowerOfTwo(alignment) {
		return nil, xerrors.Errorf("sys: alignment %d is not a power of two", alignment)
	}

	rawLen, ok := overflow.Add(size, alignment)
	if ok {
		rawLen, ok = overflow.Add(rawLen, 2*wordSize)
	}
	if !ok {
		return nil, xerrors.Errorf("%d bytes aligned to %d: %w", size, alignment, ErrTooLarge)
	}

	heap.Lock()
	raw, err := heap.alloc.Malloc(rawLen)
	if err == nil {
		heap.live++
	}
	heap.Unlock()
	if err != nil {
		return nil, xerrors.Errorf("sys: malloc of %d bytes failed: %w", rawLen, err)
	}

	base := unsafe.Pointer(&raw[0])
	start := uintptr(base) + uintptr(2*wordSize)
	offset := align.NextAlignedAddress(start, uintptr(alignment)) - uintptr(base)
	user := unsafe.Add(base, offset)

	*(*unsafe.Pointer)(unsafe.Add(user, -2*wordSize)) = base
	*(*int)(unsafe.Add(user, -wordSize)) = cap(raw)

	return unsafe.Slice((*byte)(user), size), nil
}

// AlignedFree releases memory obtained from AlignedAlloc. b may be resliced
// but must start at the address AlignedAlloc returned.
func AlignedFree(b []byte) error {
	if cap(b) == 0 {
		return xerrors.New("sys: free of empty block")
	}

	user := unsafe.Pointer(unsafe.SliceData(b))
	base := *(*unsafe.Pointer)(unsafe.Add(user, -2*wordSize))
	rawLen := *(*int)(unsafe.Add(user, -wordSize))
	raw := unsafe.Slice((*byte)(base), rawLen)

	heap.Lock()
	defer heap.Unlock()
	if err := heap.alloc.Free(raw); err != nil {
		return xerrors.Errorf("sys: free failed: %w", err)
	}
	heap.live--
	return nil
}

// Live returns the number of AlignedAlloc blocks not yet freed.
func Live() int {
	heap.Lock()
	defer heap.Unlock()
	return heap.live
}
