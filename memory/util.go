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
	"unsafe"

	"github.com/matsaleh13/allok8or/align"
	"golang.org/x/xerrors"
)

func addressOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// validate checks the arguments of an AllocateAligned call.
func validate(size, alignment int) error {
	if size <= 0 {
		return xerrors.Errorf("size %d: %w", size, ErrInvalidSize)
	}
	if !align.IsPowerOfTwo(alignment) {
		return xerrors.Errorf("alignment %d: %w", alignment, ErrInvalidAlignment)
	}
	return nil
}

// bytesAt views n bytes starting at p.
func bytesAt(p unsafe.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(p), n)
}
