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

package memory_test

import (
	"os"
	"testing"

	"github.com/matsaleh13/allok8or/align"
	"github.com/matsaleh13/allok8or/logging"
	"github.com/matsaleh13/allok8or/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLog registers a callback collecting messages for the rest of the
// test.
func captureLog(t *testing.T) *[]string {
	t.Helper()
	var msgs []string
	require.True(t, logging.RegisterCallback(func(_ logging.Level, msg []byte) {
		msgs = append(msgs, string(msg))
	}))
	t.Cleanup(func() { logging.RegisterCallback(nil) })
	return &msgs
}

func newPageAllocator(t *testing.T, opts ...memory.PageOption) *memory.PageAllocator {
	t.Helper()
	opts = append([]memory.PageOption{memory.WithPageAlignment(64)}, opts...)
	p, err := memory.NewPageAllocator(4096, opts...)
	require.NoError(t, err)
	return p
}

func TestPageAllocatorAccessors(t *testing.T) {
	p := newPageAllocator(t)
	assert.Equal(t, 4096, p.PageSize())
	assert.Equal(t, 64, p.Alignment())
	assert.Equal(t, 4096-64, p.UserDataSize())
	assert.Zero(t, p.NumPages())
	assert.Zero(t, p.NumFreePages())
}

func TestPageAllocatorAllocate(t *testing.T) {
	p := newPageAllocator(t)

	page, err := p.Allocate()
	require.NoError(t, err)
	assert.Len(t, page, p.UserDataSize())
	assert.True(t, isAlignedTo(page, 64))
	assert.Equal(t, make([]byte, len(page)), page, "page not zeroed")
	assert.Equal(t, 1, p.NumPages())
	assert.Zero(t, p.NumFreePages())

	require.NoError(t, p.Deallocate(page))
	assert.Equal(t, 1, p.NumPages())
	assert.Equal(t, 1, p.NumFreePages())
	assert.Equal(t, 1, p.Cleanup())
	assert.Zero(t, p.NumPages())
	assert.NoError(t, p.Close())
}

func TestPageAllocatorRecycles(t *testing.T) {
	p := newPageAllocator(t)
	defer p.Close()

	first, err := p.Allocate()
	require.NoError(t, err)
	first[0] = 0xAB
	require.NoError(t, p.Deallocate(first))

	second, err := p.Allocate()
	require.NoError(t, err)
	assert.Same(t, &first[0], &second[0])
	assert.Equal(t, 1, p.NumPages())
	require.NoError(t, p.Deallocate(second))
}

func TestPageAllocatorFreeListIsLIFO(t *testing.T) {
	p := newPageAllocator(t)
	defer p.Close()

	a, err := p.Allocate()
	require.NoError(t, err)
	b, err := p.Allocate()
	require.NoError(t, err)
	assert.NotSame(t, &a[0], &b[0])

	require.NoError(t, p.Deallocate(a))
	require.NoError(t, p.Deallocate(b))
	assert.Equal(t, 2, p.NumFreePages())

	c, err := p.Allocate()
	require.NoError(t, err)
	assert.Same(t, &b[0], &c[0])
	d, err := p.Allocate()
	require.NoError(t, err)
	assert.Same(t, &a[0], &d[0])

	require.NoError(t, p.Deallocate(c))
	require.NoError(t, p.Deallocate(d))
}

func TestPageAllocatorDeallocateErrors(t *testing.T) {
	p := newPageAllocator(t)
	defer p.Close()

	assert.ErrorIs(t, p.Deallocate(nil), memory.ErrNilBlock)

	page, err := p.Allocate()
	require.NoError(t, err)
	assert.ErrorIs(t, p.Deallocate(page[8:]), memory.ErrForeignBlock)

	require.NoError(t, p.Deallocate(page))
	assert.ErrorIs(t, p.Deallocate(page), memory.ErrPageState)
}

func TestPageAllocatorCleanupNoop(t *testing.T) {
	p := newPageAllocator(t)
	assert.Zero(t, p.Cleanup())

	page, err := p.Allocate()
	require.NoError(t, err)
	assert.Zero(t, p.Cleanup(), "used pages are not released")
	require.NoError(t, p.Deallocate(page))
	assert.NoError(t, p.Close())
}

func TestPageAllocatorCloseLeak(t *testing.T) {
	msgs := captureLog(t)
	p := newPageAllocator(t)

	page, err := p.Allocate()
	require.NoError(t, err)
	spare, err := p.Allocate()
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(spare))

	err = p.Close()
	assert.ErrorIs(t, err, memory.ErrLeak)
	assert.Equal(t, 1, p.NumPages())
	assert.Zero(t, p.NumFreePages())
	require.Len(t, *msgs, 1)
	assert.Equal(t, "Page allocator closed with allocated pages outstanding [1], leaking [4096] bytes.", (*msgs)[0])

	require.NoError(t, p.Deallocate(page))
	assert.NoError(t, p.Close())
}

func TestNewPageAllocatorInvalid(t *testing.T) {
	_, err := memory.NewPageAllocator(4096, memory.WithPageAlignment(48))
	assert.ErrorIs(t, err, memory.ErrInvalidAlignment)

	_, err = memory.NewPageAllocator(16, memory.WithPageAlignment(64))
	assert.ErrorIs(t, err, memory.ErrInvalidSize)
}

func TestPageAllocatorDefaults(t *testing.T) {
	p, err := memory.NewDefaultPageAllocator()
	require.NoError(t, err)
	assert.Equal(t, memory.DefaultPageSize, p.PageSize())
	assert.True(t, align.IsPowerOfTwo(p.Alignment()))
}

func TestPageAllocatorMmapSource(t *testing.T) {
	osPage := os.Getpagesize()
	p, err := memory.NewPageAllocator(4*osPage,
		memory.WithPageSource(memory.MmapPageSource{}), memory.WithPageAlignment(64))
	require.NoError(t, err)

	page, err := p.Allocate()
	require.NoError(t, err)
	assert.Len(t, page, 4*osPage-64)
	assert.True(t, isAlignedTo(page, 64))
	page[len(page)-1] = 1

	require.NoError(t, p.Deallocate(page))
	again, err := p.Allocate()
	require.NoError(t, err)
	assert.Same(t, &page[0], &again[0])
	require.NoError(t, p.Deallocate(again))
	assert.Equal(t, 1, p.Cleanup())
	assert.NoError(t, p.Close())
}

func TestPageAllocatorMmapAlignmentTooLarge(t *testing.T) {
	osPage := os.Getpagesize()
	p, err := memory.NewPageAllocator(4*osPage,
		memory.WithPageSource(memory.MmapPageSource{}), memory.WithPageAlignment(2*osPage))
	require.NoError(t, err)

	_, err = p.Allocate()
	assert.ErrorIs(t, err, memory.ErrInvalidAlignment)
	assert.Zero(t, p.NumPages())
}
