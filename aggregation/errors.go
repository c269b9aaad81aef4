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

package aggregation

import (
	"errors"
	"fmt"
)

// ErrEmptyPipeline is returned by Aggregate when the aggregation has no stages.
var ErrEmptyPipeline = errors.New("aggregation: pipeline is empty")

// ErrFrozen is returned when a frozen aggregation is modified.
var ErrFrozen = errors.New("aggregation: pipeline is frozen")

// InvalidExpressionError is returned when an expression or a stage is malformed.
type InvalidExpressionError struct {
	// Operator is the operator or stage name, like "$sum" or "$group"; it may be empty.
	Operator string

	// Reason describes the problem.
	Reason string
}

// newInvalidExpressionError returns a new *InvalidExpressionError.
func newInvalidExpressionError(op, reason string) error {
	return &InvalidExpressionError{
		Operator: op,
		Reason:   reason,
	}
}

// Error implements error interface.
func (e *InvalidExpressionError) Error() string {
	if e.Operator == "" {
		return "aggregation: invalid expression: " + e.Reason
	}

	return fmt.Sprintf("aggregation: invalid expression %s: %s", e.Operator, e.Reason)
}

// ExecutionError wraps an error returned by the executor or by its cursor.
type ExecutionError struct {
	// Collection is the aggregated collection.
	Collection string

	// Err is the original error.
	Err error
}

// Error implements error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("aggregation: %q: %s", e.Collection, e.Err)
}

// Unwrap returns the original error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// check interfaces
var (
	_ error = (*InvalidExpressionError)(nil)
	_ error = (*ExecutionError)(nil)
)
