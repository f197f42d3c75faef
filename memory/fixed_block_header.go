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
	"unsafe"

	"github.com/matsaleh13/allok8or/align"
	"golang.org/x/xerrors"
)

// FixedBlockHeader manages one block of a fixed-size pool. It sits
// immediately in front of the user region it describes. The state word
// reuses the page states: a block is PageFree or PageUsed.
type FixedBlockHeader struct {
	next, prev        *FixedBlockHeader
	userData          unsafe.Pointer
	userDataSize      int
	userDataAlignment int
	state             PageState
}

// FixedBlockHeaderSize is the distance from a header to its user data.
var FixedBlockHeaderSize = int(align.AlignedSize(unsafe.Sizeof(FixedBlockHeader{}), unsafe.Alignof(FixedBlockHeader{})))

// FixedBlockOverhead returns how many bytes of a block precede a user
// region aligned to alignment when the block itself is aligned to it.
func FixedBlockOverhead(alignment int) int {
	a := alignment
	if a < int(unsafe.Alignof(FixedBlockHeader{})) {
		a = int(unsafe.Alignof(FixedBlockHeader{}))
	}
	return align.AlignedSize(FixedBlockHeaderSize, a)
}

// NewFixedBlockHeader constructs a header inside block describing a user
// region of size bytes aligned to alignment. The user region starts at the
// first suitably aligned address at least FixedBlockHeaderSize bytes into
// block, and the header directly precedes it.
func NewFixedBlockHeader(block []byte, size, alignment int) (*FixedBlockHeader, error) {
	if len(block) == 0 {
		return nil, ErrNilBlock
	}
	if err := validate(size, alignment); err != nil {
		return nil, err
	}
	if alignment < int(unsafe.Alignof(FixedBlockHeader{})) {
		alignment = int(unsafe.Alignof(FixedBlockHeader{}))
	}

	start := addressOf(block)
	user := align.NextAlignedAddress(start+uintptr(FixedBlockHeaderSize), uintptr(alignment))
	if need := int(user-start) + size; need > len(block) {
		return nil, xerrors.Errorf("need %d bytes, have %d: %w", need, len(block), ErrBlockTooSmall)
	}

	base := unsafe.Pointer(unsafe.SliceData(block))
	userData := unsafe.Add(base, user-start)
	h := (*FixedBlockHeader)(unsafe.Add(userData, -FixedBlockHeaderSize))
	*h = FixedBlockHeader{
		userData:          userData,
		userDataSize:      size,
		userDataAlignment: alignment,
		state:             PageFree,
	}
	return h, nil
}

// GetFixedBlockHeader recovers the header from the start of its user
// region. userData must have come from a FixedBlockHeader.
func GetFixedBlockHeader(userData unsafe.Pointer) *FixedBlockHeader {
	return (*FixedBlockHeader)(unsafe.Add(userData, -FixedBlockHeaderSize))
}

func (h *FixedBlockHeader) Next() *FixedBlockHeader     { return h.next }
func (h *FixedBlockHeader) Prev() *FixedBlockHeader     { return h.prev }
func (h *FixedBlockHeader) SetNext(n *FixedBlockHeader) { h.next = n }
func (h *FixedBlockHeader) SetPrev(p *FixedBlockHeader) { h.prev = p }
func (h *FixedBlockHeader) UserData() unsafe.Pointer    { return h.userData }
func (h *FixedBlockHeader) UserDataSize() int           { return h.userDataSize }
func (h *FixedBlockHeader) UserDataAlignment() int      { return h.userDataAlignment }
func (h *FixedBlockHeader) State() PageState            { return h.state }

// Bytes returns the user region.
func (h *FixedBlockHeader) Bytes() []byte { return bytesAt(h.userData, h.userDataSize) }

// FixedBlockList is a pool of fixed-size blocks.
type FixedBlockList = BlockList[FixedBlockHeader, *FixedBlockHeader]
