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
	"reflect"
	"unsafe"

	"github.com/matsaleh13/allok8or/memory"
	"golang.org/x/xerrors"
)

// New allocates a zeroed T from a and attributes it to the caller and the
// type name of T.
//
//	p, err := diagnostic.New[Point](alloc)
//	...
//	err = diagnostic.Delete(alloc, p)
func New[T any, B memory.Allocator](a *Allocator[B]) (*T, error) {
	if t := reflect.TypeOf((*T)(nil)).Elem(); memory.HasPointers(t) {
		return nil, xerrors.Errorf("%s: %w", t, memory.ErrUnsupportedType)
	}

	var zero T
	size, alignment := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))
	if size == 0 {
		size = 1
	}

	cd := Caller(1)
	b, err := a.allocate(size, alignment, SiteOf(TypeNameOf[T](), cd.FileName, cd.Line))
	if err != nil {
		return nil, err
	}
	clear(b)
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), nil
}

// Delete releases a value allocated with New.
func Delete[T any, B memory.Allocator](a *Allocator[B], p *T) error {
	if p == nil {
		return memory.ErrNilBlock
	}
	return a.Deallocate(unsafe.Slice((*byte)(unsafe.Pointer(p)), 1))
}

// Stamp records cd and the name of T on the header of a block. Call it
// before the header is added to a TrackingPool: the pool counts the
// allocation under the site the header has when added and the
// deallocation under the site it has when removed, so stamping a pooled
// header splits one block across two sites. Stats are never moved between
// sites, since their counters only grow.
func Stamp[T any](h *BlockHeader, cd CallerDetails) bool {
	return h.SetCallerDetails(cd.FileName, cd.Line, TypeNameOf[T]())
}
