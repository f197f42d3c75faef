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

// Package align provides address and size arithmetic for aligned memory.
//
// Alignments passed to the address functions must be powers of two. An
// alignment of 0 means "no alignment requirement" for every function in
// this package: sizes and addresses are returned unchanged.
package align

import "golang.org/x/exp/constraints"

// PrevAlignedAddress returns the highest address <= addr that is a multiple
// of alignment.
func PrevAlignedAddress(addr, alignment uintptr) uintptr {
	if alignment == 0 {
		return addr
	}
	return addr &^ (alignment - 1)
}

// NextAlignedAddress returns the lowest address >= addr that is a multiple
// of alignment.
func NextAlignedAddress(addr, alignment uintptr) uintptr {
	if alignment == 0 {
		return addr
	}
	return PrevAlignedAddress(addr+alignment-1, alignment)
}

// AlignedSize returns the number of bytes needed to hold size bytes when
// rounded up to a multiple of alignment. Unlike the address functions it
// does not require a power of two.
func AlignedSize[T constraints.Integer](size, alignment T) T {
	if alignment == 0 {
		return size
	}
	return size + ((alignment - size%alignment) % alignment)
}

// IsPowerOfTwo reports whether v is a (non-zero) power of two.
func IsPowerOfTwo[T constraints.Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}

// IsAligned reports whether v is a multiple of the power-of-two d.
func IsAligned[T constraints.Integer](v, d T) bool {
	if d == 0 {
		return true
	}
	return v&(d-1) == 0
}
