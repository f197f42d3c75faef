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
	"github.com/matsaleh13/allok8or/internal/debug"
	"golang.org/x/xerrors"
)

// Linked is implemented by block headers that carry intrusive list links.
// P is always *H.
type Linked[H any] interface {
	*H
	Next() *H
	Prev() *H
	SetNext(*H)
	SetPrev(*H)
	UserDataSize() int
}

// BlockList is an intrusive doubly linked list of block headers. The list
// owns no memory; its links live inside the headers themselves, so a header
// can be in at most one list at a time.
//
// Membership is read off the header: a header is linked when it is the
// head or the tail, or has a neighbour. Blocks are only ever added at the
// head and may be removed from any position.
//
// The zero value is an empty list. BlockList is not safe for concurrent use.
type BlockList[H any, P Linked[H]] struct {
	head, tail *H
	numBlocks  int
	numBytes   int
}

func (l *BlockList[H, P]) Head() *H       { return l.head }
func (l *BlockList[H, P]) Tail() *H       { return l.tail }
func (l *BlockList[H, P]) NumBlocks() int { return l.numBlocks }

// NumBytes is the sum of UserDataSize over the linked headers.
func (l *BlockList[H, P]) NumBytes() int { return l.numBytes }
func (l *BlockList[H, P]) Empty() bool   { return l.head == nil }

// Contains reports whether h is linked. A header linked into another list
// is reported as linked too.
func (l *BlockList[H, P]) Contains(h *H) bool {
	if h == nil {
		return false
	}
	p := P(h)
	return h == l.head || h == l.tail || p.Next() != nil || p.Prev() != nil
}

// Add links h at the head of the list.
func (l *BlockList[H, P]) Add(h *H) error {
	if h == nil {
		return ErrNilHeader
	}
	if l.Contains(h) {
		return ErrAlreadyLinked
	}

	if l.head != nil {
		P(h).SetNext(l.head)
		P(l.head).SetPrev(h)
	}
	l.head = h
	if l.tail == nil {
		l.tail = h
	}

	l.numBlocks++
	l.numBytes += P(h).UserDataSize()
	return nil
}

// Remove unlinks h from any position in the list and clears its links.
func (l *BlockList[H, P]) Remove(h *H) error {
	switch {
	case h == nil:
		return ErrNilHeader
	case !l.Contains(h):
		return ErrNotLinked
	case l.head == nil:
		return ErrEmptyList
	}

	p := P(h)
	if prev := p.Prev(); prev != nil {
		debug.Assert(P(prev).Next() == h, "block list: broken next link")
		P(prev).SetNext(p.Next())
	}
	if next := p.Next(); next != nil {
		debug.Assert(P(next).Prev() == h, "block list: broken prev link")
		P(next).SetPrev(p.Prev())
	}
	if h == l.head {
		l.head = p.Next()
	}
	if h == l.tail {
		l.tail = p.Prev()
	}
	p.SetNext(nil)
	p.SetPrev(nil)

	l.numBlocks--
	l.numBytes -= p.UserDataSize()
	if l.numBlocks == 0 {
		l.head, l.tail = nil, nil
	}
	debug.Assert(l.numBlocks >= 0, "block list: negative count")
	return nil
}

// Pop removes and returns the head, or nil when the list is empty.
func (l *BlockList[H, P]) Pop() *H {
	h := l.head
	if h == nil {
		return nil
	}
	if err := l.Remove(h); err != nil {
		return nil
	}
	return h
}

// Each calls fn for every header from head to tail. fn must not modify the
// list.
func (l *BlockList[H, P]) Each(fn func(h *H)) {
	for h := l.head; h != nil; h = P(h).Next() {
		fn(h)
	}
}

// Reset unlinks every header and empties the list.
func (l *BlockList[H, P]) Reset() {
	for h := l.head; h != nil; {
		next := P(h).Next()
		P(h).SetNext(nil)
		P(h).SetPrev(nil)
		h = next
	}
	*l = BlockList[H, P]{}
}

// Close reports the headers still linked as a leak.
func (l *BlockList[H, P]) Close() error {
	if l.numBlocks == 0 && l.head == nil && l.tail == nil {
		return nil
	}
	return xerrors.Errorf("%d blocks, %d bytes: %w", l.numBlocks, l.numBytes, ErrLeak)
}
