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

package backends

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/FerretDB/docmap/internal/util/debugbuild"
)

// ErrorCode represent a backend error code.
type ErrorCode int

// Error codes.
const (
	_ ErrorCode = iota

	ErrorCodeCollectionNameIsInvalid
	ErrorCodeCollectionDoesNotExist
	ErrorCodeInsertDuplicateID
	ErrorCodePipelineIsInvalid
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCodeCollectionNameIsInvalid: "CollectionNameIsInvalid",
	ErrorCodeCollectionDoesNotExist:  "CollectionDoesNotExist",
	ErrorCodeInsertDuplicateID:       "InsertDuplicateID",
	ErrorCodePipelineIsInvalid:       "PipelineIsInvalid",
}

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	if n, ok := errorCodeNames[c]; ok {
		return "ErrorCode" + n
	}

	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// Error represents a backend error with a code.
//
// Callers act on codes only; the wrapped error is shown in messages and logs.
type Error struct {
	code ErrorCode
	err  error // may be nil
}

// NewError creates a new backend error.
//
// Code must not be 0. Err may be nil.
func NewError(code ErrorCode, err error) *Error {
	if code == 0 {
		panic("backends.NewError: code must not be 0")
	}

	return &Error{
		code: code,
		err:  err,
	}
}

// Code returns the error code.
func (err *Error) Code() ErrorCode {
	return err.code
}

// Error implements error interface.
func (err *Error) Error() string {
	if err.err == nil {
		return err.code.String()
	}

	return err.code.String() + ": " + err.err.Error()
}

// ErrorCodeIs returns true if err itself (not something in its chain) is *Error
// with one of the given codes.
func ErrorCodeIs(err error, code ErrorCode, codes ...ErrorCode) bool {
	e, ok := err.(*Error) //nolint:errorlint // backends never wrap *Error
	if !ok {
		return false
	}

	return e.code == code || slices.Contains(codes, e.code)
}

// checkError panics in debug builds if err breaks the Backend contract:
// *Error must not be wrapped, and its code must be one of the given codes.
// Other errors are opaque and always allowed.
func checkError(err error, codes ...ErrorCode) {
	if !debugbuild.Enabled || err == nil {
		return
	}

	var e *Error
	if !errors.As(err, &e) {
		return
	}

	switch {
	case e != err: //nolint:errorlint // identity check
		panic(fmt.Sprintf("backends: *Error is wrapped: %v", err))
	case !slices.Contains(codes, e.code):
		panic(fmt.Sprintf("backends: error code %s is not in %v", e.code, codes))
	}
}

// check interfaces
var (
	_ error = (*Error)(nil)
)
