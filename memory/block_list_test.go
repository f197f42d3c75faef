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
	"math/rand"
	"testing"
	"unsafe"

	"github.com/matsaleh13/allok8or/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// makeHeaders constructs n headers of the given user size over one Go
// allocation. The returned buffer must be kept alive while the headers
// are in use.
func makeHeaders(t testing.TB, n, size int) ([]*memory.FixedBlockHeader, []byte) {
	stride := memory.FixedBlockOverhead(8) + size + 8
	buf := make([]byte, n*stride+8)
	out := make([]*memory.FixedBlockHeader, n)
	for i := range out {
		h, err := memory.NewFixedBlockHeader(buf[i*stride:(i+1)*stride], size, 8)
		require.NoError(t, err)
		out[i] = h
	}
	return out, buf
}

type BlockListSuite struct {
	suite.Suite

	list    memory.FixedBlockList
	headers []*memory.FixedBlockHeader
	buf     []byte
}

func (s *BlockListSuite) SetupTest() {
	s.list = memory.FixedBlockList{}
	s.headers, s.buf = makeHeaders(s.T(), 5, 100)
}

func (s *BlockListSuite) TestEmpty() {
	s.True(s.list.Empty())
	s.Nil(s.list.Head())
	s.Nil(s.list.Tail())
	s.Zero(s.list.NumBlocks())
	s.Zero(s.list.NumBytes())
	s.NoError(s.list.Close())
}

func (s *BlockListSuite) TestAddOne() {
	h := s.headers[0]
	s.Require().NoError(s.list.Add(h))

	s.Same(h, s.list.Head())
	s.Same(h, s.list.Tail())
	s.True(s.list.Contains(h))
	s.Equal(1, s.list.NumBlocks())
	s.Equal(100, s.list.NumBytes())
}

func (s *BlockListSuite) TestAddAtHead() {
	for _, h := range s.headers {
		s.Require().NoError(s.list.Add(h))
		s.Same(h, s.list.Head())
	}
	s.Same(s.headers[0], s.list.Tail())
	s.Equal(5, s.list.NumBlocks())
	s.Equal(500, s.list.NumBytes())
}

func (s *BlockListSuite) TestAddInvalid() {
	s.ErrorIs(s.list.Add(nil), memory.ErrNilHeader)

	s.Require().NoError(s.list.Add(s.headers[0]))
	s.ErrorIs(s.list.Add(s.headers[0]), memory.ErrAlreadyLinked)
	s.Equal(1, s.list.NumBlocks())
}

func (s *BlockListSuite) TestRemoveInvalid() {
	s.ErrorIs(s.list.Remove(nil), memory.ErrNilHeader)
	s.ErrorIs(s.list.Remove(s.headers[0]), memory.ErrNotLinked)

	// linked into a different list
	var other memory.FixedBlockList
	s.Require().NoError(other.Add(s.headers[0]))
	s.Require().NoError(other.Add(s.headers[1]))
	s.ErrorIs(s.list.Remove(s.headers[0]), memory.ErrEmptyList)
}

func (s *BlockListSuite) TestRemoveLast() {
	h := s.headers[0]
	s.Require().NoError(s.list.Add(h))
	s.Require().NoError(s.list.Remove(h))

	s.Nil(s.list.Head())
	s.Nil(s.list.Tail())
	s.Nil(h.Next())
	s.Nil(h.Prev())
	s.False(s.list.Contains(h))
	s.Zero(s.list.NumBytes())
}

func (s *BlockListSuite) TestRemoveInterior() {
	for _, h := range s.headers {
		s.Require().NoError(s.list.Add(h))
	}
	// head -> 4 3 2 1 0 <- tail
	s.Require().NoError(s.list.Remove(s.headers[2]))
	s.Nil(s.headers[2].Next())
	s.Nil(s.headers[2].Prev())

	var forward []*memory.FixedBlockHeader
	for h := s.list.Head(); h != nil; h = h.Next() {
		forward = append(forward, h)
	}
	s.Equal([]*memory.FixedBlockHeader{s.headers[4], s.headers[3], s.headers[1], s.headers[0]}, forward)

	var backward []*memory.FixedBlockHeader
	for h := s.list.Tail(); h != nil; h = h.Prev() {
		backward = append(backward, h)
	}
	s.Equal([]*memory.FixedBlockHeader{s.headers[0], s.headers[1], s.headers[3], s.headers[4]}, backward)
	s.Equal(4, s.list.NumBlocks())
	s.Equal(400, s.list.NumBytes())
}

func (s *BlockListSuite) TestRemoveHeadAndTail() {
	for _, h := range s.headers {
		s.Require().NoError(s.list.Add(h))
	}
	s.Require().NoError(s.list.Remove(s.headers[4]))
	s.Same(s.headers[3], s.list.Head())
	s.Nil(s.headers[3].Prev())

	s.Require().NoError(s.list.Remove(s.headers[0]))
	s.Same(s.headers[1], s.list.Tail())
	s.Nil(s.headers[1].Next())
}

func (s *BlockListSuite) TestPop() {
	s.Nil(s.list.Pop())
	for _, h := range s.headers[:2] {
		s.Require().NoError(s.list.Add(h))
	}
	s.Same(s.headers[1], s.list.Pop())
	s.Same(s.headers[0], s.list.Pop())
	s.True(s.list.Empty())
}

func (s *BlockListSuite) TestEach() {
	for _, h := range s.headers {
		s.Require().NoError(s.list.Add(h))
	}
	n := 0
	s.list.Each(func(h *memory.FixedBlockHeader) {
		s.Same(s.headers[len(s.headers)-1-n], h)
		n++
	})
	s.Equal(5, n)
}

func (s *BlockListSuite) TestResetAndClose() {
	for _, h := range s.headers {
		s.Require().NoError(s.list.Add(h))
	}
	s.ErrorIs(s.list.Close(), memory.ErrLeak)

	s.list.Reset()
	s.True(s.list.Empty())
	for _, h := range s.headers {
		s.Nil(h.Next())
		s.Nil(h.Prev())
	}
	s.NoError(s.list.Close())
}

func TestBlockListSuite(t *testing.T) {
	suite.Run(t, new(BlockListSuite))
}

func checkListInvariants(t *testing.T, l *memory.FixedBlockList) {
	t.Helper()
	assert.Equal(t, l.Head() == nil, l.Tail() == nil)
	if l.Head() != nil {
		assert.Nil(t, l.Head().Prev())
		assert.Nil(t, l.Tail().Next())
	}

	count, bytes := 0, 0
	var last *memory.FixedBlockHeader
	for h := l.Head(); h != nil; h = h.Next() {
		if h.Next() != nil {
			assert.Same(t, h, h.Next().Prev())
		}
		count++
		bytes += h.UserDataSize()
		last = h
	}
	assert.Same(t, l.Tail(), last)
	assert.Equal(t, l.NumBlocks(), count)
	assert.Equal(t, l.NumBytes(), bytes)
}

func TestBlockListRandomSequence(t *testing.T) {
	headers, _ := makeHeaders(t, 64, 24)

	var list memory.FixedBlockList
	linked := make(map[*memory.FixedBlockHeader]bool)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		h := headers[rng.Intn(len(headers))]
		if linked[h] {
			require.NoError(t, list.Remove(h))
			delete(linked, h)
		} else {
			require.NoError(t, list.Add(h))
			linked[h] = true
		}
		if i%50 == 0 {
			checkListInvariants(t, &list)
		}
	}
	checkListInvariants(t, &list)
	assert.Equal(t, len(linked), list.NumBlocks())
	assert.Equal(t, 24*len(linked), list.NumBytes())
}

func TestFixedBlockHeaderRoundTrip(t *testing.T) {
	for _, alignment := range []int{1, 8, 16, 64, 256} {
		buf := make([]byte, 1024)
		h, err := memory.NewFixedBlockHeader(buf, 100, alignment)
		require.NoError(t, err)

		assert.Same(t, h, memory.GetFixedBlockHeader(h.UserData()))
		assert.Equal(t, 100, h.UserDataSize())
		assert.Len(t, h.Bytes(), 100)
		assert.Equal(t, uintptr(h.UserData()), uintptr(unsafe.Pointer(h))+uintptr(memory.FixedBlockHeaderSize))
		assert.True(t, isAlignedTo(h.Bytes(), alignment))
		assert.Nil(t, h.Next())
		assert.Nil(t, h.Prev())
	}
}

func TestNewFixedBlockHeaderInvalid(t *testing.T) {
	_, err := memory.NewFixedBlockHeader(nil, 8, 8)
	assert.ErrorIs(t, err, memory.ErrNilBlock)

	_, err = memory.NewFixedBlockHeader(make([]byte, 64), 0, 8)
	assert.ErrorIs(t, err, memory.ErrInvalidSize)

	_, err = memory.NewFixedBlockHeader(make([]byte, 64), 8, 6)
	assert.ErrorIs(t, err, memory.ErrInvalidAlignment)

	_, err = memory.NewFixedBlockHeader(make([]byte, memory.FixedBlockHeaderSize), 8, 8)
	assert.ErrorIs(t, err, memory.ErrBlockTooSmall)
}
