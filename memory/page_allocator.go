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
	"os"
	"strconv"
	"unsafe"

	"github.com/matsaleh13/allok8or/align"
	"github.com/matsaleh13/allok8or/internal/debug"
	"github.com/matsaleh13/allok8or/logging"
	"github.com/matsaleh13/allok8or/memory/internal/sys"
	"golang.org/x/xerrors"
)

// PageState tracks a page through its lifetime. The values spell out
// FREE, USED and DLTD when dumped as memory.
type PageState uint32

const (
	PageFree    PageState = 'F'<<24 | 'R'<<16 | 'E'<<8 | 'E'
	PageUsed    PageState = 'U'<<24 | 'S'<<16 | 'E'<<8 | 'D'
	PageDeleted PageState = 'D'<<24 | 'L'<<16 | 'T'<<8 | 'D'
)

func (s PageState) String() string {
	switch s {
	case PageFree:
		return "FREE"
	case PageUsed:
		return "USED"
	case PageDeleted:
		return "DLTD"
	default:
		return "INVALID(" + strconv.FormatUint(uint64(s), 16) + ")"
	}
}

// pageHeader lives at the start of every page.
type pageHeader struct {
	nextPage *pageHeader // free list only
	state    PageState
	userData unsafe.Pointer
}

var pageHeaderSize = unsafe.Sizeof(pageHeader{})

// PageSource supplies raw pages to a PageAllocator. MapPage must return
// size bytes whose first byte is aligned to alignment; UnmapPage is given
// the same slice back.
type PageSource interface {
	MapPage(size, alignment int) ([]byte, error)
	UnmapPage(page []byte) error
}

// HeapPageSource takes pages from the system heap and zeroes them.
type HeapPageSource struct{}

func (HeapPageSource) MapPage(size, alignment int) ([]byte, error) {
	b, err := sys.AlignedAlloc(size, alignment)
	if err != nil {
		return nil, xerrors.Errorf("heap page (%v): %w", err, ErrOutOfMemory)
	}
	Set(b, 0)
	return b, nil
}

func (HeapPageSource) UnmapPage(page []byte) error { return sys.AlignedFree(page) }

// MmapPageSource maps each page as a private anonymous mapping. Mapped
// pages are aligned to the OS page size, so larger alignments are rejected.
type MmapPageSource struct{}

func (MmapPageSource) MapPage(size, alignment int) ([]byte, error) {
	if alignment > sys.OSPageSize {
		return nil, xerrors.Errorf("mmap page alignment %d exceeds os page size %d: %w",
			alignment, sys.OSPageSize, ErrInvalidAlignment)
	}
	b, err := sys.MapPages(size)
	if err != nil {
		return nil, xerrors.Errorf("mmap page (%v): %w", err, ErrOutOfMemory)
	}
	return b, nil
}

func (MmapPageSource) UnmapPage(page []byte) error { return sys.UnmapPages(page) }

// DefaultPageSize is used by NewDefaultPageAllocator. It can be overridden
// with the ALLOK8OR_PAGE_SIZE environment variable.
var DefaultPageSize = 64 << 10

func init() {
	if val, ok := os.LookupEnv("ALLOK8OR_PAGE_SIZE"); ok {
		if sz, err := strconv.Atoi(val); err == nil && sz > 0 {
			DefaultPageSize = sz
		}
	}
}

type PageOption func(*PageAllocator)

// WithPageAlignment sets the alignment of each page's user region. The
// default is the CPU cache line size.
func WithPageAlignment(alignment int) PageOption {
	return func(p *PageAllocator) { p.alignment = alignment }
}

// WithPageSource sets where pages come from. The default is HeapPageSource.
func WithPageSource(src PageSource) PageOption {
	return func(p *PageAllocator) { p.source = src }
}

// PageAllocator hands out fixed-size pages for other allocators to carve
// up. Released pages are kept on a free list and handed out again, most
// recently released first, until Cleanup returns them to the page source.
//
// PageAllocator is not safe for concurrent use.
type PageAllocator struct {
	pageSize  int
	alignment int
	source    PageSource

	numPages     int
	numFreePages int
	freePages    *pageHeader
}

// NewPageAllocator returns an allocator of pages of pageSize bytes,
// header included.
func NewPageAllocator(pageSize int, opts ...PageOption) (*PageAllocator, error) {
	p := &PageAllocator{
		pageSize:  pageSize,
		alignment: sys.CacheLineSize(),
		source:    HeapPageSource{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if !align.IsPowerOfTwo(p.alignment) {
		return nil, xerrors.Errorf("page alignment %d: %w", p.alignment, ErrInvalidAlignment)
	}
	if p.alignment < int(unsafe.Alignof(pageHeader{})) {
		p.alignment = int(unsafe.Alignof(pageHeader{}))
	}
	if p.UserDataSize() <= 0 {
		return nil, xerrors.Errorf("page size %d leaves no room for user data: %w", pageSize, ErrInvalidSize)
	}
	return p, nil
}

// NewDefaultPageAllocator returns a PageAllocator of DefaultPageSize pages.
func NewDefaultPageAllocator(opts ...PageOption) (*PageAllocator, error) {
	return NewPageAllocator(DefaultPageSize, opts...)
}

func (p *PageAllocator) PageSize() int     { return p.pageSize }
func (p *PageAllocator) Alignment() int    { return p.alignment }
func (p *PageAllocator) NumPages() int     { return p.numPages }
func (p *PageAllocator) NumFreePages() int { return p.numFreePages }

// UserDataSize is the number of usable bytes in each page.
func (p *PageAllocator) UserDataSize() int {
	return p.pageSize - p.userDataOffset()
}

// userDataOffset is the distance from a page to its user data. Pages are
// aligned to p.alignment, so the offset is the same for all of them.
func (p *PageAllocator) userDataOffset() int {
	return int(align.NextAlignedAddress(pageHeaderSize, uintptr(p.alignment)))
}

// Allocate returns the user region of a page, reusing a released page when
// one is available.
func (p *PageAllocator) Allocate() ([]byte, error) {
	if p.freePages == nil {
		page, err := p.create()
		if err != nil {
			logging.Errorf("Failed to allocate new page: %v", err)
			return nil, err
		}
		p.addPage(page)
	}

	page := p.removePage()
	debug.Assert(page != nil, "page allocator: empty free list")
	debug.Assert(page.nextPage == nil, "page allocator: used page still linked")
	return bytesAt(page.userData, p.UserDataSize()), nil
}

// Deallocate puts a page returned by Allocate on the free list.
func (p *PageAllocator) Deallocate(userData []byte) error {
	if cap(userData) == 0 {
		return ErrNilBlock
	}
	page := p.pageAddress(unsafe.Pointer(unsafe.SliceData(userData)))
	if page.userData != unsafe.Pointer(unsafe.SliceData(userData)) {
		return xerrors.Errorf("page %p: %w", page, ErrForeignBlock)
	}
	if page.state != PageUsed {
		return xerrors.Errorf("deallocate %s page %p: %w", page.state, page, ErrPageState)
	}
	p.addPage(page)
	return nil
}

// Cleanup returns every free page to the page source and reports how many
// were released. Pages in use are untouched.
func (p *PageAllocator) Cleanup() int {
	n := 0
	for p.freePages != nil {
		page := p.removePage()
		if err := p.destroy(page); err != nil {
			logging.Errorf("Failed to release page [%p]: %v", page, err)
			continue
		}
		n++
	}
	return n
}

// Close releases the free pages. Pages still in use are reported as a leak
// and are not reclaimed.
func (p *PageAllocator) Close() error {
	p.Cleanup()
	if p.numPages != 0 {
		logging.Errorf("Page allocator closed with allocated pages outstanding [%d], leaking [%d] bytes.",
			p.numPages, p.numPages*p.pageSize)
		return xerrors.Errorf("%d pages, %d bytes: %w", p.numPages, p.numPages*p.pageSize, ErrLeak)
	}
	return nil
}

// pageAddress recovers the page header from its user data.
func (p *PageAllocator) pageAddress(userData unsafe.Pointer) *pageHeader {
	unaligned := uintptr(userData) - pageHeaderSize
	back := unaligned - align.PrevAlignedAddress(unaligned, uintptr(p.alignment))
	return (*pageHeader)(unsafe.Add(userData, -int(pageHeaderSize+back)))
}

func (p *PageAllocator) create() (*pageHeader, error) {
	mem, err := p.source.MapPage(p.pageSize, p.alignment)
	if err != nil {
		return nil, err
	}
	debug.Assert(align.IsAligned(addressOf(mem), uintptr(p.alignment)), "page allocator: misaligned page")
	p.numPages++

	base := unsafe.Pointer(unsafe.SliceData(mem))
	page := (*pageHeader)(base)
	*page = pageHeader{userData: unsafe.Add(base, p.userDataOffset())}
	return page, nil
}

func (p *PageAllocator) destroy(page *pageHeader) error {
	page.state = PageDeleted
	if err := p.source.UnmapPage(bytesAt(unsafe.Pointer(page), p.pageSize)); err != nil {
		return err
	}
	p.numPages--
	return nil
}

// addPage pushes page on the free list.
func (p *PageAllocator) addPage(page *pageHeader) {
	debug.Assert(page.nextPage == nil, "page allocator: page already linked")
	debug.Assert(page.state != PageFree, "page allocator: page already free")
	debug.Assert(p.verifyFreePages(), "page allocator: free list out of sync")

	page.nextPage = p.freePages
	p.freePages = page
	page.state = PageFree
	p.numFreePages++
}

// removePage pops the free list.
func (p *PageAllocator) removePage() *pageHeader {
	debug.Assert(p.verifyFreePages(), "page allocator: free list out of sync")

	page := p.freePages
	if page == nil {
		return nil
	}
	p.freePages = page.nextPage
	page.nextPage = nil
	page.state = PageUsed
	p.numFreePages--
	return page
}

func (p *PageAllocator) verifyFreePages() bool {
	return (p.freePages != nil) == (p.numFreePages > 0)
}
