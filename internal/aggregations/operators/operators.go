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

// Package operators provides aggregation expression operators.
//
// Expressions are compiled once with NewExpression into an Operator
// and then processed for every document.
package operators

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
)

// newOperatorFunc is a type for a function that creates an aggregation operator
// from its name and raw arguments.
type newOperatorFunc func(name string, args any) (Operator, error)

// Operator is a common interface for compiled aggregation expressions.
type Operator interface {
	// Process document and returns the result of applying operator.
	// aggregations.Missing is returned if the expression evaluates to a missing field.
	Process(doc bson.D) (any, error)
}

// Operators maps all standard aggregation operators.
var Operators map[string]newOperatorFunc

func init() {
	Operators = map[string]newOperatorFunc{
		// sorted alphabetically
		"$add":         newAdd,
		"$avg":         newAvg,
		"$concat":      newConcat,
		"$dayOfMonth":  newDatePart,
		"$dayOfWeek":   newDatePart,
		"$dayOfYear":   newDatePart,
		"$divide":      newDivide,
		"$first":       newFirstLast,
		"$hour":        newDatePart,
		"$last":        newFirstLast,
		"$literal":     newLiteral,
		"$max":         newMinMax,
		"$millisecond": newDatePart,
		"$min":         newMinMax,
		"$minute":      newDatePart,
		"$mod":         newMod,
		"$month":       newDatePart,
		"$multiply":    newMultiply,
		"$second":      newDatePart,
		"$subtract":    newSubtract,
		"$sum":         newSum,
		"$toLower":     newCase,
		"$toUpper":     newCase,
		"$year":        newDatePart,
		// please keep sorted alphabetically
	}
}

// IsOperator returns true if the document is an operator expression like {$sum: "$v"}.
func IsOperator(doc bson.D) bool {
	return len(doc) > 0 && strings.HasPrefix(doc[0].Key, "$")
}

// NewExpression compiles any aggregation expression:
// field paths, operator documents, object expressions, arrays and literals.
func NewExpression(expr any) (Operator, error) {
	switch expr := expr.(type) {
	case string:
		fe, err := aggregations.NewExpression(expr)
		if err == nil {
			return &fieldPath{expr: fe}, nil
		}

		var exprErr *aggregations.ExpressionError
		if errors.As(err, &exprErr) && exprErr.Code() == aggregations.ErrNotExpression {
			return literal{value: expr}, nil
		}

		return nil, processExpressionError(err, expr)

	case bson.D:
		if IsOperator(expr) {
			return NewOperator(expr)
		}

		return newObject(expr)

	case bson.A:
		elems := make([]Operator, len(expr))

		for i, e := range expr {
			op, err := NewExpression(e)
			if err != nil {
				return nil, err
			}

			elems[i] = op
		}

		return array(elems), nil

	default:
		return literal{value: expr}, nil
	}
}

// NewOperator returns operator for the given operator document like {$sum: "$v"}.
func NewOperator(doc bson.D) (Operator, error) {
	if len(doc) != 1 {
		return nil, aggregations.NewError(
			aggregations.ErrExpressionWrongLenFields,
			"An object representing an expression must have exactly one field",
			doc[0].Key,
		)
	}

	name := doc[0].Key

	newOperator, ok := Operators[name]
	if !ok {
		return nil, aggregations.NewError(
			aggregations.ErrInvalidPipelineOperator,
			fmt.Sprintf("Unrecognized expression '%s'", name),
			name,
		)
	}

	return newOperator(name, doc[0].Value)
}

// processExpressionError converts field path parsing errors to aggregation errors.
func processExpressionError(err error, expr string) error {
	var exprErr *aggregations.ExpressionError
	if !errors.As(err, &exprErr) {
		return err
	}

	switch exprErr.Code() {
	case aggregations.ErrEmptyFieldPath:
		return aggregations.NewError(aggregations.ErrFieldPathEmpty, "'$' by itself is not a valid FieldPath", expr)
	case aggregations.ErrUndefinedVariable:
		return aggregations.NewError(
			aggregations.ErrVariableUndefined,
			fmt.Sprintf("Use of undefined variable: %s", strings.TrimPrefix(expr, "$$")),
			expr,
		)
	case aggregations.ErrEmptyVariable:
		return aggregations.NewError(aggregations.ErrFailedToParse, "empty variable names are not allowed", expr)
	default:
		return aggregations.NewError(aggregations.ErrFailedToParse, fmt.Sprintf("Invalid field path %q", expr), expr)
	}
}

// parseArgs compiles operator arguments.
// A non-array argument is a single argument.
// Negative maxArgs means no upper limit.
func parseArgs(name string, args any, minArgs, maxArgs int) ([]Operator, error) {
	raw, ok := args.(bson.A)
	if !ok {
		raw = bson.A{args}
	}

	if len(raw) < minArgs || (maxArgs >= 0 && len(raw) > maxArgs) {
		var msg string

		switch {
		case minArgs == maxArgs:
			msg = fmt.Sprintf("Expression %s takes exactly %d arguments. %d were passed in.", name, minArgs, len(raw))
		case len(raw) < minArgs:
			msg = fmt.Sprintf("Expression %s takes at least %d arguments, and %d were passed in.", name, minArgs, len(raw))
		default:
			msg = fmt.Sprintf("Expression %s takes at most %d arguments, and %d were passed in.", name, maxArgs, len(raw))
		}

		return nil, aggregations.NewError(aggregations.ErrOperatorWrongLenOfArgs, msg, name)
	}

	ops := make([]Operator, len(raw))

	for i, a := range raw {
		op, err := NewExpression(a)
		if err != nil {
			return nil, err
		}

		ops[i] = op
	}

	return ops, nil
}

// processArgs processes all operators, replacing missing values with nil.
func processArgs(ops []Operator, doc bson.D) ([]any, error) {
	res := make([]any, len(ops))

	for i, op := range ops {
		v, err := op.Process(doc)
		if err != nil {
			return nil, err
		}

		if aggregations.IsMissing(v) {
			v = nil
		}

		res[i] = v
	}

	return res, nil
}

// typeName returns BSON type name of the value for error messages.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case aggregations.MissingType:
		return "missing"
	case float64:
		return "double"
	case string:
		return "string"
	case bson.D:
		return "object"
	case bson.A:
		return "array"
	case bool:
		return "bool"
	case int32:
		return "int"
	case int64:
		return "long"
	default:
		return fmt.Sprintf("%T", v)
	}
}
