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

// DefaultAlignment is used by Allocate when no alignment is requested.
const DefaultAlignment = 16

// Allocator is the contract shared by every allocator in this module.
//
// AllocateAligned returns a block of size bytes whose first byte is a
// multiple of alignment, which must be a power of two. Deallocate must be
// given a block (or a reslice of it starting at the same element) returned
// by the same allocator.
type Allocator interface {
	Allocate(size int) ([]byte, error)
	AllocateAligned(size, alignment int) ([]byte, error)
	Deallocate(b []byte) error
}

// equaler is implemented by allocators with a notion of equality other
// than identity.
type equaler interface {
	Equal(other Allocator) bool
}

// Equal reports whether memory allocated by a can be deallocated by b.
func Equal(a, b Allocator) bool {
	if e, ok := a.(equaler); ok {
		return e.Equal(b)
	}
	return a == b
}

// TestingT is the subset of testing.T used by leak assertions.
type TestingT interface {
	Errorf(format string, args ...interface{})
	Helper()
}
