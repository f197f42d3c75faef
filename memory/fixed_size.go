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

// FixedSizeAllocator hands out blocks of a single size and alignment.
type FixedSizeAllocator interface {
	Allocate() ([]byte, error)
	Deallocate(b []byte) error
	BlockSize() int
	Alignment() int
}

// FixedSizeAdapter serves fixed-size requests from a general Allocator,
// which it borrows.
type FixedSizeAdapter[A Allocator] struct {
	mem       A
	blockSize int
	alignment int
}

func NewFixedSizeAdapter[A Allocator](mem A, blockSize, alignment int) (*FixedSizeAdapter[A], error) {
	if err := validate(blockSize, alignment); err != nil {
		return nil, err
	}
	return &FixedSizeAdapter[A]{mem: mem, blockSize: blockSize, alignment: alignment}, nil
}

func (f *FixedSizeAdapter[A]) Allocate() ([]byte, error) {
	return f.mem.AllocateAligned(f.blockSize, f.alignment)
}

func (f *FixedSizeAdapter[A]) Deallocate(b []byte) error { return f.mem.Deallocate(b) }
func (f *FixedSizeAdapter[A]) BlockSize() int            { return f.blockSize }
func (f *FixedSizeAdapter[A]) Alignment() int            { return f.alignment }

// Backing returns the borrowed allocator.
func (f *FixedSizeAdapter[A]) Backing() A { return f.mem }

var (
	_ FixedSizeAllocator = (*FixedSizeAdapter[PassThroughAllocator])(nil)
	_ FixedSizeAllocator = (*BlockAllocator)(nil)
)
