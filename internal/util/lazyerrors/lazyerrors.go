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

// Package lazyerrors adds the call site to errors that are not expected to be handled
// by callers, only logged or returned to the user.
package lazyerrors

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// located is an error annotated with the location where it was created or wrapped.
type located struct {
	err error
	loc string
}

// Error implements error interface.
func (e *located) Error() string {
	return "[" + e.loc + "] " + e.err.Error()
}

// Unwrap returns the wrapped error.
func (e *located) Unwrap() error {
	return e.err
}

// New returns a new error with the given text and the caller's location.
func New(s string) error {
	return &located{err: errors.New(s), loc: caller()}
}

// Error wraps err with the caller's location.
// It panics if err is nil.
func Error(err error) error {
	if err == nil {
		panic("lazyerrors.Error: err is nil")
	}

	return &located{err: err, loc: caller()}
}

// Errorf is like fmt.Errorf, but adds the caller's location.
func Errorf(format string, a ...any) error {
	return &located{err: fmt.Errorf(format, a...), loc: caller()}
}

// caller returns "file.go:line pkg.Func" for the function that called New, Error or Errorf.
func caller() string {
	pc := make([]uintptr, 1)
	if runtime.Callers(3, pc) == 0 {
		return "unknown"
	}

	f, _ := runtime.CallersFrames(pc).Next()
	if f.File == "" {
		return "unknown"
	}

	_, file := filepath.Split(f.File)
	res := file + ":" + strconv.Itoa(f.Line)

	if f.Function != "" {
		res += " " + f.Function[strings.LastIndex(f.Function, "/")+1:]
	}

	return res
}
