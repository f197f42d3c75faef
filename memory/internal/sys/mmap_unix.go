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

//go:build unix

package sys

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// OSPageSize is the granularity of MapPages.
var OSPageSize = os.Getpagesize()

// MapPages maps size bytes of zeroed, private, anonymous memory. The result
// is aligned to OSPageSize.
func MapPages(size int) ([]byte, error) {
	if size <= 0 {
		return nil, xerrors.Errorf("sys: invalid mapping size %d", size)
	}
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, xerrors.Errorf("sys: mmap of %d bytes failed: %w", size, err)
	}
	return b, nil
}

// UnmapPages releases a mapping returned by MapPages. b must span the whole
// mapping (same start and capacity).
func UnmapPages(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return xerrors.Errorf("sys: munmap failed: %w", err)
	}
	return nil
}
