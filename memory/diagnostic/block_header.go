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
	"fmt"
	"unsafe"

	"github.com/matsaleh13/allok8or/align"
	"github.com/matsaleh13/allok8or/memory"
	"golang.org/x/xerrors"
)

// blockSignature marks a live header. The words read ALK8 BLCK HEDR ALK8.
var blockSignature = [4]uint32{
	'A'<<24 | 'L'<<16 | 'K'<<8 | '8',
	'B'<<24 | 'L'<<16 | 'C'<<8 | 'K',
	'H'<<24 | 'E'<<16 | 'D'<<8 | 'R',
	'A'<<24 | 'L'<<16 | 'K'<<8 | '8',
}

// BlockHeader describes one tracked block. It sits directly in front of the
// user region and is exactly HeaderSize bytes, so a user region aligned to
// 64 bytes or less starts HeaderSize bytes into the block.
type BlockHeader struct {
	next, prev        *BlockHeader
	userDataSize      int
	userDataAlignment int
	site              *Site
	signature         [4]uint32
	userData          unsafe.Pointer
}

// HeaderSize is the distance from a header to its user data.
const HeaderSize = int(unsafe.Sizeof(BlockHeader{}))

// overhead returns how many bytes of a block aligned to alignment precede
// its user region.
func overhead(alignment int) int {
	return align.AlignedSize(HeaderSize, alignment)
}

// NewBlockHeader constructs a header in block for a user region of size
// bytes aligned to alignment. The user region starts at the first aligned
// address at least HeaderSize bytes into block. site may be nil and set
// later with SetCallerDetails.
func NewBlockHeader(block []byte, size, alignment int, site *Site) (*BlockHeader, error) {
	if len(block) == 0 {
		return nil, memory.ErrNilBlock
	}
	if size <= 0 {
		return nil, xerrors.Errorf("header size %d: %w", size, memory.ErrInvalidSize)
	}
	if !align.IsPowerOfTwo(alignment) {
		return nil, xerrors.Errorf("header alignment %d: %w", alignment, memory.ErrInvalidAlignment)
	}

	base := unsafe.Pointer(unsafe.SliceData(block))
	start := uintptr(base)
	user := align.NextAlignedAddress(start+uintptr(HeaderSize), uintptr(alignment))
	if need := int(user-start) + size; need > len(block) {
		return nil, xerrors.Errorf("need %d bytes, have %d: %w", need, len(block), memory.ErrBlockTooSmall)
	}

	userData := unsafe.Add(base, user-start)
	h := (*BlockHeader)(unsafe.Add(userData, -HeaderSize))
	*h = BlockHeader{
		userDataSize:      size,
		userDataAlignment: alignment,
		site:              intern(site),
		signature:         blockSignature,
		userData:          userData,
	}
	return h, nil
}

// GetHeader recovers the header from the start of its user region. The
// pointer must have come from a BlockHeader; nothing is checked.
func GetHeader(userData unsafe.Pointer) *BlockHeader {
	return (*BlockHeader)(unsafe.Add(userData, -HeaderSize))
}

func (h *BlockHeader) Next() *BlockHeader     { return h.next }
func (h *BlockHeader) Prev() *BlockHeader     { return h.prev }
func (h *BlockHeader) SetNext(n *BlockHeader) { h.next = n }
func (h *BlockHeader) SetPrev(p *BlockHeader) { h.prev = p }

func (h *BlockHeader) UserData() unsafe.Pointer { return h.userData }
func (h *BlockHeader) UserDataSize() int        { return h.userDataSize }
func (h *BlockHeader) UserDataAlignment() int   { return h.userDataAlignment }

// Site returns the stamped call site, or nil.
func (h *BlockHeader) Site() *Site { return h.site }

// IsValid checks the header signature.
func (h *BlockHeader) IsValid() bool { return h.signature == blockSignature }

// SetCallerDetails stamps the header with its allocation site. It fails,
// leaving the header untouched, when the header is invalid or already
// stamped. Stamp before adding the header to a TrackingPool; see Stamp.
func (h *BlockHeader) SetCallerDetails(fileName string, line int, typeName string) bool {
	if !h.IsValid() || h.site != nil {
		return false
	}
	h.site = SiteOf(typeName, fileName, line)
	return true
}

func (h *BlockHeader) String() string {
	var typeName, fileName string
	var line int
	if h.site != nil {
		typeName, fileName, line = h.site.TypeName, h.site.FileName, h.site.Line
	}
	return fmt.Sprintf("type [%s] file [%s] line [%d] size [%d]", typeName, fileName, line, h.userDataSize)
}

// block returns the whole region the header was constructed in, as handed
// out by a backing allocator.
func (h *BlockHeader) block() []byte {
	off := overhead(h.userDataAlignment)
	return unsafe.Slice((*byte)(unsafe.Add(h.userData, -off)), off+h.userDataSize)
}

func (h *BlockHeader) invalidate() { h.signature = [4]uint32{} }
