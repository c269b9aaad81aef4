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

package mapping

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrMissingField indicates that a required field is absent from the document.
	ErrMissingField = errors.New("required field is missing")

	// ErrTypeMismatch indicates that a document value cannot be stored in the target field.
	ErrTypeMismatch = errors.New("type mismatch")
)

// DecodeError describes a document that could not be decoded into the target type.
type DecodeError struct {
	// Type is the decoded type.
	Type reflect.Type

	// Err is the cause; it wraps ErrMissingField or ErrTypeMismatch for mapping failures.
	Err error

	// Path is the dot-separated document path of the offending field,
	// for example "_id.day" or "items.2".
	Path string
}

// Error implements error interface.
func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("mapping: cannot decode %s: %s", e.Type, e.Err)
	}

	return fmt.Sprintf("mapping: cannot decode field %q of %s: %s", e.Path, e.Type, e.Err)
}

// Unwrap returns the cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// check interfaces
var (
	_ error = (*DecodeError)(nil)
)
