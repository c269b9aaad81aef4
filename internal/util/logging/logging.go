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

// Package logging configures zap loggers for docmap binaries.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// encoderConfig uses short keys so console lines stay compact.
var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "T",
	LevelKey:       "L",
	NameKey:        "N",
	CallerKey:      "C",
	FunctionKey:    zapcore.OmitKey,
	MessageKey:     "M",
	StacktraceKey:  "S",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalLevelEncoder,
	EncodeTime:     zapcore.ISO8601TimeEncoder,
	EncodeDuration: zapcore.StringDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// New returns a logger writing to w in the given format ("console" or "json").
//
// Debug level enables development mode: DPanic panics and warnings get stack traces.
func New(level zapcore.Level, format string, w zapcore.WriteSyncer) (*zap.Logger, error) {
	var enc zapcore.Encoder

	switch format {
	case "console":
		enc = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		enc = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("logging.New: unknown format %q", format)
	}

	opts := []zap.Option{zap.AddCaller(), zap.ErrorOutput(w)}

	if level == zapcore.DebugLevel {
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return zap.New(zapcore.NewCore(enc, w, level), opts...), nil
}

// Setup creates a stderr logger and installs it as zap's global logger
// and as the standard library logger's output.
func Setup(level zapcore.Level, format string) (*zap.Logger, error) {
	l, err := New(level, format, zapcore.Lock(os.Stderr))
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(l)

	if _, err = zap.RedirectStdLogAt(l, zapcore.InfoLevel); err != nil {
		return nil, err
	}

	return l, nil
}
