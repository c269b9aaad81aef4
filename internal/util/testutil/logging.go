// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package testutil

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger returns a development logger writing to tb.
//
// The level is taken from DOCMAP_TEST_LOG_LEVEL, debug by default.
func Logger(tb testing.TB) *zap.Logger {
	tb.Helper()

	level := zapcore.DebugLevel
	if s := os.Getenv("DOCMAP_TEST_LOG_LEVEL"); s != "" {
		var err error
		if level, err = zapcore.ParseLevel(s); err != nil {
			tb.Fatalf("DOCMAP_TEST_LOG_LEVEL: %s", err)
		}
	}

	return zaptest.NewLogger(tb,
		zaptest.Level(level),
		zaptest.WrapOptions(zap.AddCaller(), zap.Development()),
	)
}
