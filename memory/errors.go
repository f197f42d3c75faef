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

import "golang.org/x/xerrors"

// Invalid arguments.
var (
	ErrNilBlock         = xerrors.New("memory: nil or empty block")
	ErrNilHeader        = xerrors.New("memory: nil header")
	ErrInvalidSize      = xerrors.New("memory: invalid size")
	ErrInvalidAlignment = xerrors.New("memory: alignment must be a power of two")
	ErrBlockTooSmall    = xerrors.New("memory: block too small")
	ErrUnsupportedType  = xerrors.New("memory: type contains pointers")
)

// Protocol violations.
var (
	ErrAlreadyLinked = xerrors.New("memory: header already in a list")
	ErrNotLinked     = xerrors.New("memory: header not in a list")
	ErrEmptyList     = xerrors.New("memory: list is empty")
	ErrInvalidHeader = xerrors.New("memory: invalid block header")
	ErrCorruptBlock  = xerrors.New("memory: corrupt block")
	ErrPageState     = xerrors.New("memory: page in wrong state")
	ErrForeignBlock  = xerrors.New("memory: block not owned by this allocator")
)

var (
	ErrOutOfMemory = xerrors.New("memory: out of memory")
	ErrLeak        = xerrors.New("memory: leak detected")
)
