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

// Package logging is the error and leak reporting sink used by the
// allocators.
//
// Nothing is emitted until a Callback is registered. At most one callback
// can be registered at a time; RegisterCallback(nil) clears it. Messages are
// formatted printf style into a bounded buffer of MaxMessageSize bytes and
// longer messages are truncated.
//
// The sink is process-wide state and is not safe for concurrent use, in line
// with the allocators that report through it.
package logging

import (
	"fmt"
	"os"
	"strings"
)

// Level is the severity of a log message.
type Level int

const (
	LevelInvalid Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INVALID"
	}
}

// ParseLevel maps a level name (case-insensitive) to a Level. Unknown names
// map to LevelInvalid.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarning
	case "ERROR":
		return LevelError
	default:
		return LevelInvalid
	}
}

// MaxMessageSize bounds the length of a formatted message.
const MaxMessageSize = 512

// Callback receives a formatted message. The slice is only valid for the
// duration of the call.
type Callback func(level Level, msg []byte)

var (
	callback Callback
	minLevel Level
	buffer   [MaxMessageSize]byte
)

func init() {
	if val, ok := os.LookupEnv("ALLOK8OR_LOG_LEVEL"); ok {
		minLevel = ParseLevel(val)
	}
}

// RegisterCallback installs fn as the sink. It returns false if a callback
// is already registered. Passing nil clears the current callback and
// always succeeds.
func RegisterCallback(fn Callback) bool {
	if fn == nil {
		callback = nil
		return true
	}
	if callback != nil {
		return false
	}
	callback = fn
	return true
}

// Registered reports whether a callback is installed.
func Registered() bool { return callback != nil }

// SetLevel drops messages below l. LevelInvalid lets everything through.
func SetLevel(l Level) { minLevel = l }

// CurrentLevel returns the level set by SetLevel.
func CurrentLevel() Level { return minLevel }

// Raw emits a message regardless of the current level.
func Raw(format string, args ...interface{}) {
	emit(LevelInvalid, format, args...)
}

// Logf emits a message at the given level.
func Logf(level Level, format string, args ...interface{}) {
	if level < minLevel {
		return
	}
	emit(level, format, args...)
}

func Tracef(format string, args ...interface{}) { Logf(LevelTrace, format, args...) }
func Debugf(format string, args ...interface{}) { Logf(LevelDebug, format, args...) }
func Infof(format string, args ...interface{})  { Logf(LevelInfo, format, args...) }
func Warnf(format string, args ...interface{})  { Logf(LevelWarning, format, args...) }
func Errorf(format string, args ...interface{}) { Logf(LevelError, format, args...) }

func emit(level Level, format string, args ...interface{}) {
	if callback == nil {
		return
	}
	msg := fmt.Appendf(buffer[:0], format, args...)
	if len(msg) > MaxMessageSize {
		msg = msg[:MaxMessageSize]
	}
	callback(level, msg)
}
