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

/*
Package memory provides composable block allocators.

Allocators implement the small Allocator contract and layer on top of one
another: a diagnostic allocator tracks blocks handed out by a backing
allocator, a BlockAllocator pools fixed-size blocks carved from pages of a
PageAllocator, and PassThroughAllocator goes straight to the system heap.
Typed, buffer and fixed-size adapters expose the same memory through other
call shapes.

Blocks are returned as byte slices whose first element is the start of the
user region. The system heap and page sources live outside the Go heap, so
memory from them is never moved or scanned by the garbage collector. Values
stored in that memory must not contain Go pointers.

None of the allocator types are safe for concurrent use. Callers sharing an
allocator between goroutines must serialize access themselves.
*/
package memory
