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

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/types"
)

// ExpressionErrorCode represents Expression error code.
type ExpressionErrorCode int

const (
	_ ExpressionErrorCode = iota

	// ErrNotExpression indicates that field is not an expression.
	ErrNotExpression

	// ErrInvalidExpression indicates that expression is invalid.
	ErrInvalidExpression

	// ErrEmptyFieldPath indicates that field path expression is empty.
	ErrEmptyFieldPath

	// ErrUndefinedVariable indicates that variable name is not defined.
	ErrUndefinedVariable

	// ErrEmptyVariable indicates that variable name is empty.
	ErrEmptyVariable
)

// String implements fmt.Stringer.
func (c ExpressionErrorCode) String() string {
	switch c {
	case ErrNotExpression:
		return "ErrNotExpression"
	case ErrInvalidExpression:
		return "ErrInvalidExpression"
	case ErrEmptyFieldPath:
		return "ErrEmptyFieldPath"
	case ErrUndefinedVariable:
		return "ErrUndefinedVariable"
	case ErrEmptyVariable:
		return "ErrEmptyVariable"
	default:
		return fmt.Sprintf("ExpressionErrorCode(%d)", int(c))
	}
}

// ExpressionError describes an error that occurs while parsing expression.
type ExpressionError struct {
	code ExpressionErrorCode
}

// newExpressionError creates a new ExpressionError.
func newExpressionError(code ExpressionErrorCode) error {
	return &ExpressionError{code: code}
}

// Error implements the error interface.
func (e *ExpressionError) Error() string {
	return e.code.String()
}

// Code returns the ExpressionError code.
func (e *ExpressionError) Code() ExpressionErrorCode {
	return e.code
}

// Expression is a field path expression like "$a.b".
type Expression struct {
	path types.Path
}

// NewExpression parses the field path expression.
//
// Strings that do not start with "$" return ErrNotExpression;
// variables ("$$name") are not supported except "$$ROOT" and "$$CURRENT".
func NewExpression(expression string) (*Expression, error) {
	var val string

	switch {
	case strings.HasPrefix(expression, "$$"):
		v := strings.TrimPrefix(expression, "$$")
		if v == "" {
			return nil, newExpressionError(ErrEmptyVariable)
		}

		if strings.HasPrefix(v, "$") {
			return nil, newExpressionError(ErrInvalidExpression)
		}

		name, rest, _ := strings.Cut(v, ".")
		if name != "ROOT" && name != "CURRENT" {
			return nil, newExpressionError(ErrUndefinedVariable)
		}

		if rest == "" {
			return &Expression{}, nil
		}

		val = rest

	case strings.HasPrefix(expression, "$"):
		val = strings.TrimPrefix(expression, "$")

		if val == "" {
			return nil, newExpressionError(ErrEmptyFieldPath)
		}

	default:
		return nil, newExpressionError(ErrNotExpression)
	}

	path, err := types.NewPathFromString(val)
	if err != nil {
		return nil, newExpressionError(ErrInvalidExpression)
	}

	return &Expression{
		path: path,
	}, nil
}

// Evaluate gets the value at the path.
//
// Arrays on the way are traversed: "$a.b" on {a: [{b: 1}, {b: 2}]} returns [1, 2].
// Missing is returned if the path does not exist.
func (e *Expression) Evaluate(doc bson.D) any {
	if e.path.Len() == 0 {
		return doc
	}

	v, ok := evaluatePath(doc, e.path.Slice())
	if !ok {
		return Missing
	}

	return v
}

// String returns the expression in the "$path" form.
func (e *Expression) String() string {
	if e.path.Len() == 0 {
		return "$$ROOT"
	}

	return "$" + e.path.String()
}

// evaluatePath returns the value at the path, traversing arrays.
func evaluatePath(v any, path []string) (any, bool) {
	if len(path) == 0 {
		return v, true
	}

	switch v := v.(type) {
	case bson.D:
		child, ok := types.Get(v, path[0])
		if !ok {
			return nil, false
		}

		return evaluatePath(child, path[1:])

	case bson.A:
		res := bson.A{}

		for _, elem := range v {
			// only documents inside arrays are traversed
			if _, isDoc := elem.(bson.D); !isDoc {
				if _, isArray := elem.(bson.A); !isArray {
					continue
				}
			}

			if r, ok := evaluatePath(elem, path); ok {
				res = append(res, r)
			}
		}

		return res, true

	default:
		return nil, false
	}
}
