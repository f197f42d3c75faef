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
	"github.com/matsaleh13/allok8or/logging"
	"github.com/matsaleh13/allok8or/memory/internal/sys"
	"golang.org/x/xerrors"
)

// PassThroughAllocator allocates directly from the system heap. It holds no
// state, so every instance is equal to every other and the zero value is
// ready to use.
//
// Unlike the rest of the package it is safe for concurrent use; the system
// heap serializes access internally.
type PassThroughAllocator struct{}

func (a PassThroughAllocator) Allocate(size int) ([]byte, error) {
	return a.AllocateAligned(size, DefaultAlignment)
}

// AllocateAligned returns uninitialized memory. Failures are logged and
// reported as ErrOutOfMemory; there is no retry.
func (PassThroughAllocator) AllocateAligned(size, alignment int) ([]byte, error) {
	if err := validate(size, alignment); err != nil {
		return nil, err
	}

	b, err := sys.AlignedAlloc(size, alignment)
	if err != nil {
		logging.Errorf("Failed to allocate [%d] bytes aligned to [%d]: %v", size, alignment, err)
		return nil, xerrors.Errorf("allocate %d bytes (%v): %w", size, err, ErrOutOfMemory)
	}
	return b, nil
}

func (PassThroughAllocator) Deallocate(b []byte) error {
	if cap(b) == 0 {
		return ErrNilBlock
	}
	return sys.AlignedFree(b)
}

func (PassThroughAllocator) Equal(other Allocator) bool {
	switch other.(type) {
	case PassThroughAllocator, *PassThroughAllocator:
		return true
	}
	return false
}

var (
	_ Allocator = PassThroughAllocator{}
	_ Allocator = (*PassThroughAllocator)(nil)
)
