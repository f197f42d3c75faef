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

// Package diagnostic provides an allocator that tracks every live block it
// hands out, attributes allocations to call sites, and reports leaks.
//
// Each block carries a 64 byte BlockHeader in front of the user region.
// Headers are linked into a TrackingPool and per-site statistics are kept
// in a StatsTracker, which can be exported with a CSVReporter or a
// JSONReporter.
//
// Nothing in this package is safe for concurrent use.
package diagnostic

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
)

// Site identifies where an allocation came from.
type Site struct {
	TypeName string
	FileName string
	Line     int
}

// sites interns every Site so that equal triples share one pointer. The
// table also keeps sites reachable while they are referenced from block
// headers in memory the garbage collector does not scan.
var sites = struct {
	sync.Mutex
	m map[Site]*Site
}{m: make(map[Site]*Site)}

// SiteOf returns the interned Site for the triple.
func SiteOf(typeName, fileName string, line int) *Site {
	key := Site{TypeName: typeName, FileName: fileName, Line: line}

	sites.Lock()
	defer sites.Unlock()
	if s, ok := sites.m[key]; ok {
		return s
	}
	s := &key
	sites.m[key] = s
	return s
}

func intern(s *Site) *Site {
	if s == nil {
		return nil
	}
	return SiteOf(s.TypeName, s.FileName, s.Line)
}

func (s *Site) String() string {
	if s == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%s %s:%d", s.TypeName, s.FileName, s.Line)
}

// CallerDetails is the source position of an allocation call.
type CallerDetails struct {
	FileName string
	Line     int
}

// Caller returns the position skip frames above its caller; Caller(0) is
// the line calling Caller.
func Caller(skip int) CallerDetails {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return CallerDetails{}
	}
	return CallerDetails{FileName: file, Line: line}
}

// TypeNameOf returns the name used to attribute allocations of T.
func TypeNameOf[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
