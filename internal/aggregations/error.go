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

package aggregations

import "fmt"

// ErrorCode represents an aggregation error code.
//
// Values match MongoDB error codes, so errors look the same for all backends.
type ErrorCode int32

// Error codes.
const (
	ErrBadValue                   ErrorCode = 2     // BadValue
	ErrFailedToParse              ErrorCode = 9     // FailedToParse
	ErrTypeMismatch               ErrorCode = 14    // TypeMismatch
	ErrInvalidPipelineOperator    ErrorCode = 168   // InvalidPipelineOperator
	ErrNotImplemented             ErrorCode = 238   // NotImplemented
	ErrStageGroupInvalidFields    ErrorCode = 15947 // Location15947
	ErrStageGroupUnaryOperator    ErrorCode = 40237 // Location40237
	ErrStageGroupMultipleAccum    ErrorCode = 40238 // Location40238
	ErrStageGroupInvalidAccum     ErrorCode = 40234 // Location40234
	ErrStageGroupMissingID        ErrorCode = 15955 // Location15955
	ErrStageInvalid               ErrorCode = 40323 // Location40323
	ErrStageUnrecognized          ErrorCode = 40324 // Location40324
	ErrStageLimitInvalidArg       ErrorCode = 15957 // Location15957
	ErrStageLimitZero             ErrorCode = 15958 // Location15958
	ErrStageMatchBadExpression    ErrorCode = 15959 // Location15959
	ErrStageUnwindNoPath          ErrorCode = 28812 // Location28812
	ErrStageCountBadPrefix        ErrorCode = 40158 // Location40158
	ErrStageCountBadValue         ErrorCode = 40160 // Location40160
	ErrStageAddFieldsInvalid      ErrorCode = 40272 // Location40272
	ErrProjectionExclusion        ErrorCode = 31254 // Location31254
	ErrProjectionInclusion        ErrorCode = 31253 // Location31253
	ErrStageSkipInvalidArg        ErrorCode = 15956 // Location15956
	ErrStageUnwindWrongType       ErrorCode = 15981 // Location15981
	ErrStageUnwindNoPrefix        ErrorCode = 28818 // Location28818
	ErrStageCountNonString        ErrorCode = 40156 // Location40156
	ErrStageCountNonEmptyString   ErrorCode = 40157 // Location40157
	ErrSortBadValue               ErrorCode = 15973 // Location15973
	ErrSortBadOrder               ErrorCode = 15975 // Location15975
	ErrSortMissingKey             ErrorCode = 15976 // Location15976
	ErrEmptyProject               ErrorCode = 51272 // Location51272
	ErrDuplicateField             ErrorCode = 16410 // Location16410
	ErrExpressionWrongLenFields   ErrorCode = 15983 // Location15983
	ErrOperatorWrongLenOfArgs     ErrorCode = 16020 // Location16020
	ErrArithmeticNonNumeric       ErrorCode = 16554 // Location16554
	ErrDivideByZero               ErrorCode = 16608 // Location16608
	ErrModByZero                  ErrorCode = 16610 // Location16610
	ErrDateNonDate                ErrorCode = 16006 // Location16006
	ErrConcatNonString            ErrorCode = 16702 // Location16702
	ErrGroupInvalidFieldPath      ErrorCode = 16872 // Location16872
	ErrFirstLastNonArray          ErrorCode = 28689 // Location28689
	ErrUnrecognizedExpression     ErrorCode = 31325 // Location31325
	ErrFieldPathEmpty             ErrorCode = 40352 // Location40352
	ErrVariableUndefined          ErrorCode = 17276 // Location17276
)

// Error is an aggregation error.
//
// It mimics MongoDB command errors: a code, a human-readable message,
// and the argument (stage, operator, accumulator) that caused it.
type Error struct {
	msg  string
	arg  string
	code ErrorCode
}

// NewError creates a new aggregation error.
func NewError(code ErrorCode, msg, arg string) error {
	if code == 0 {
		panic("aggregations.NewError: code must not be 0")
	}

	return &Error{
		code: code,
		msg:  msg,
		arg:  arg,
	}
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Argument returns the stage, operator or accumulator that caused the error.
func (e *Error) Argument() string {
	return e.arg
}

// Error implements error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("(%d) %s", e.code, e.msg)
}
