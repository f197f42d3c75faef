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

import "github.com/matsaleh13/allok8or/logging"

// bufferAlignment matches the alignment data buffers are usually expected
// to have for vectorized access.
const bufferAlignment = 64

// BufferAllocator is the allocate/reallocate/free shape used by growable
// byte buffers. Allocate and Reallocate return nil when the request is
// negative or memory cannot be obtained.
type BufferAllocator interface {
	Allocate(size int) []byte
	Reallocate(size int, b []byte) []byte
	Free(b []byte)
}

// BufferAdapter implements BufferAllocator on top of an Allocator. Memory
// it returns is zero initialized. Failures are logged and reported as a nil
// slice; the adapter never panics.
type BufferAdapter struct {
	mem       Allocator
	allocated int64
}

func NewBufferAdapter(mem Allocator) *BufferAdapter {
	return &BufferAdapter{mem: mem}
}

func (a *BufferAdapter) Allocate(size int) []byte {
	if size < 0 {
		logging.Errorf("Invalid buffer size [%d].", size)
		return nil
	}
	if size == 0 {
		return []byte{}
	}

	out, err := a.mem.AllocateAligned(size, bufferAlignment)
	if err != nil {
		logging.Errorf("Failed to allocate buffer of [%d] bytes: %v", size, err)
		return nil
	}
	Set(out, 0)
	a.allocated += int64(size)
	return out
}

// Reallocate resizes b, moving it when it has to grow past its capacity.
// On failure nil is returned and b is still valid.
func (a *BufferAdapter) Reallocate(size int, b []byte) []byte {
	if size < 0 {
		logging.Errorf("Invalid buffer size [%d].", size)
		return nil
	}

	switch {
	case cap(b) == 0:
		return a.Allocate(size)
	case size == 0:
		a.Free(b)
		return []byte{}
	case size <= cap(b):
		oldSize := len(b)
		out := b[:size]
		if size > oldSize {
			// zero initialize the slice like go would do normally
			Set(out[oldSize:], 0)
		}
		a.allocated += int64(size - oldSize)
		return out
	}

	out := a.Allocate(size)
	if out == nil {
		return nil
	}
	copy(out, b)
	a.Free(b)
	return out
}

// Free releases b. Errors from the backing allocator are logged.
func (a *BufferAdapter) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	if err := a.mem.Deallocate(b); err != nil {
		logging.Errorf("Failed to free buffer of [%d] bytes: %v", len(b), err)
		return
	}
	a.allocated -= int64(len(b))
}

// AllocatedBytes is the total length of the live buffers.
func (a *BufferAdapter) AllocatedBytes() int64 { return a.allocated }

func (a *BufferAdapter) AssertSize(t TestingT, sz int) {
	if int64(sz) != a.allocated {
		t.Helper()
		t.Errorf("invalid memory size exp=%d, got=%d", sz, a.allocated)
	}
}

var _ BufferAllocator = (*BufferAdapter)(nil)
