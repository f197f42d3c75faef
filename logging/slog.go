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

package logging

import (
	"context"

	"golang.org/x/exp/slog"
)

// SlogLevel maps a Level onto the closest slog level. Trace maps below
// slog.LevelDebug and LevelInvalid (raw messages) maps to slog.LevelInfo.
func SlogLevel(l Level) slog.Level {
	switch l {
	case LevelTrace:
		return slog.LevelDebug - 4
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarning:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SlogCallback returns a Callback that forwards messages to logger. A nil
// logger uses slog.Default().
//
//	logging.RegisterCallback(logging.SlogCallback(slog.New(slog.NewTextHandler(os.Stderr, nil))))
func SlogCallback(logger *slog.Logger) Callback {
	if logger == nil {
		logger = slog.Default()
	}
	return func(level Level, msg []byte) {
		logger.Log(context.Background(), SlogLevel(level), string(msg),
			slog.String("component", "allok8or"))
	}
}
