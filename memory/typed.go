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
	"reflect"
	"unsafe"

	"github.com/JohnCGriffin/overflow"
	"golang.org/x/xerrors"
)

// TypedAllocator allocates arrays of T from a borrowed Allocator. It is the
// element-typed view a container uses; the bytes underneath still belong to
// the backing allocator.
//
// The backing memory may live outside the Go heap, so T must not contain
// Go pointers. NewTypedAllocator rejects such types.
type TypedAllocator[T any] struct {
	mem Allocator
}

func NewTypedAllocator[T any](mem Allocator) (*TypedAllocator[T], error) {
	if mem == nil {
		return nil, xerrors.New("memory: nil backing allocator")
	}
	if t := reflect.TypeOf((*T)(nil)).Elem(); HasPointers(t) {
		return nil, xerrors.Errorf("%s: %w", t, ErrUnsupportedType)
	}
	return &TypedAllocator[T]{mem: mem}, nil
}

// Rebind returns an allocator of U sharing a's backing allocator.
func Rebind[U, T any](a *TypedAllocator[T]) (*TypedAllocator[U], error) {
	return NewTypedAllocator[U](a.mem)
}

func (a *TypedAllocator[T]) Backing() Allocator { return a.mem }

func (a *TypedAllocator[T]) ValueSize() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func (a *TypedAllocator[T]) ValueAlign() int {
	var zero T
	return int(unsafe.Alignof(zero))
}

// Allocate returns count zeroed values of T.
func (a *TypedAllocator[T]) Allocate(count int) ([]T, error) {
	n, err := a.byteCount(count)
	if err != nil {
		return nil, err
	}
	b, err := a.mem.AllocateAligned(n, a.ValueAlign())
	if err != nil {
		return nil, err
	}
	clear(b[:n])
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), count), nil
}

// Deallocate releases count values previously returned by Allocate.
func (a *TypedAllocator[T]) Deallocate(s []T, count int) error {
	if cap(s) == 0 {
		return ErrNilBlock
	}
	n, err := a.byteCount(count)
	if err != nil {
		return err
	}
	return a.mem.Deallocate(bytesAt(unsafe.Pointer(unsafe.SliceData(s)), n))
}

// SelectOnCopy returns the allocator a copy of a container should use: one
// sharing the same backing allocator.
func (a *TypedAllocator[T]) SelectOnCopy() *TypedAllocator[T] {
	return &TypedAllocator[T]{mem: a.mem}
}

// The backing allocator is shared, never copied, so it does not follow a
// container through assignment or swap.
func (a *TypedAllocator[T]) PropagateOnCopyAssignment() bool { return false }
func (a *TypedAllocator[T]) PropagateOnMoveAssignment() bool { return false }
func (a *TypedAllocator[T]) PropagateOnSwap() bool           { return false }

// Equal reports whether other, of any element type, shares an equal
// backing allocator.
func (a *TypedAllocator[T]) Equal(other interface{ Backing() Allocator }) bool {
	return Equal(a.mem, other.Backing())
}

func (a *TypedAllocator[T]) byteCount(count int) (int, error) {
	size := a.ValueSize()
	if size == 0 {
		size = 1
	}
	n, ok := overflow.Mul(count, size)
	if count <= 0 || !ok {
		return 0, xerrors.Errorf("count %d: %w", count, ErrInvalidSize)
	}
	return n, nil
}

// HasPointers reports whether values of type t hold Go pointers, which
// must not be stored in memory the garbage collector cannot see.
func HasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Array:
		return t.Len() > 0 && HasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if HasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.Slice, reflect.String:
		return true
	default:
		return false
	}
}
