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

// Package global holds one process-wide allocator for code that cannot have
// an allocator passed to it. Prefer passing a memory.Allocator explicitly;
// this package is an escape hatch.
//
// The package keeps a reference to the allocator but does not own it: the
// caller creates it before Init and closes it after Cleanup. Nothing here is
// safe for concurrent use, including Init and Cleanup racing with
// allocations.
package global

import (
	"github.com/matsaleh13/allok8or/memory"
	"golang.org/x/xerrors"
)

// ErrNotInitialized is returned when no allocator has been installed.
var ErrNotInitialized = xerrors.New("global: allocator not initialized")

var allocator memory.Allocator

// Init installs a as the global allocator, replacing any previous one.
func Init(a memory.Allocator) { allocator = a }

// Cleanup forgets the global allocator.
func Cleanup() { allocator = nil }

// Get returns the global allocator, or nil.
func Get() memory.Allocator { return allocator }

// As returns the global allocator as its concrete type.
//
//	pa, ok := global.As[*memory.PageAllocator]()
func As[A memory.Allocator]() (A, bool) {
	a, ok := allocator.(A)
	return a, ok
}

func Allocate(size int) ([]byte, error) {
	if allocator == nil {
		return nil, ErrNotInitialized
	}
	return allocator.Allocate(size)
}

func AllocateAligned(size, alignment int) ([]byte, error) {
	if allocator == nil {
		return nil, ErrNotInitialized
	}
	return allocator.AllocateAligned(size, alignment)
}

// Deallocate returns b to the global allocator, which must be the one that
// allocated it.
func Deallocate(b []byte) error {
	if allocator == nil {
		return ErrNotInitialized
	}
	return allocator.Deallocate(b)
}
