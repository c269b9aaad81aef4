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
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// operatorSpec describes an operator.
type operatorSpec struct {
	name string

	// argTypes are allowed static argument types; nil allows any type.
	// TypeUnknown arguments are always allowed.
	argTypes []ValueType

	result ValueType

	// minArgs and maxArgs define the arity; negative maxArgs means no limit.
	minArgs int
	maxArgs int

	// fixed operators always encode arguments as an array
	fixed bool

	// accumulator operators can be used in $group
	accumulator bool

	// accumulatorOnly operators can't be used outside of $group
	accumulatorOnly bool
}

var (
	typesNumeric       = []ValueType{TypeNumber}
	typesNumericOrDate = []ValueType{TypeNumber, TypeDate}
	typesDate          = []ValueType{TypeDate}
	typesStringLike    = []ValueType{TypeString, TypeNumber, TypeDate, TypeNull}
	typesString        = []ValueType{TypeString, TypeNull}
)

// operator specs
var (
	opSum         = &operatorSpec{name: "$sum", argTypes: nil, result: TypeNumber, minArgs: 1, maxArgs: -1, accumulator: true}
	opAvg         = &operatorSpec{name: "$avg", argTypes: nil, result: TypeNumber, minArgs: 1, maxArgs: -1, accumulator: true}
	opMin         = &operatorSpec{name: "$min", result: TypeUnknown, minArgs: 1, maxArgs: -1, accumulator: true}
	opMax         = &operatorSpec{name: "$max", result: TypeUnknown, minArgs: 1, maxArgs: -1, accumulator: true}
	opFirst       = &operatorSpec{name: "$first", result: TypeUnknown, minArgs: 1, maxArgs: 1, accumulator: true}
	opLast        = &operatorSpec{name: "$last", result: TypeUnknown, minArgs: 1, maxArgs: 1, accumulator: true}
	opPush        = &operatorSpec{name: "$push", result: TypeArray, minArgs: 1, maxArgs: 1, accumulator: true, accumulatorOnly: true}
	opAddToSet    = &operatorSpec{name: "$addToSet", result: TypeArray, minArgs: 1, maxArgs: 1, accumulator: true, accumulatorOnly: true}
	opMultiply    = &operatorSpec{name: "$multiply", argTypes: typesNumeric, result: TypeNumber, minArgs: 1, maxArgs: -1}
	opAdd         = &operatorSpec{name: "$add", argTypes: typesNumericOrDate, result: TypeUnknown, minArgs: 1, maxArgs: -1}
	opSubtract    = &operatorSpec{name: "$subtract", argTypes: typesNumericOrDate, result: TypeUnknown, minArgs: 2, maxArgs: 2, fixed: true}
	opDivide      = &operatorSpec{name: "$divide", argTypes: typesNumeric, result: TypeNumber, minArgs: 2, maxArgs: 2, fixed: true}
	opMod         = &operatorSpec{name: "$mod", argTypes: typesNumeric, result: TypeNumber, minArgs: 2, maxArgs: 2, fixed: true}
	opConcat      = &operatorSpec{name: "$concat", argTypes: typesString, result: TypeString, minArgs: 1, maxArgs: -1}
	opToLower     = &operatorSpec{name: "$toLower", argTypes: typesStringLike, result: TypeString, minArgs: 1, maxArgs: 1}
	opToUpper     = &operatorSpec{name: "$toUpper", argTypes: typesStringLike, result: TypeString, minArgs: 1, maxArgs: 1}
	opYear        = datePart("$year")
	opMonth       = datePart("$month")
	opDayOfMonth  = datePart("$dayOfMonth")
	opDayOfYear   = datePart("$dayOfYear")
	opDayOfWeek   = datePart("$dayOfWeek")
	opHour        = datePart("$hour")
	opMinute      = datePart("$minute")
	opSecond      = datePart("$second")
	opMillisecond = datePart("$millisecond")
)

// datePart returns spec of the date part operator.
func datePart(name string) *operatorSpec {
	return &operatorSpec{name: name, argTypes: typesDate, result: TypeNumber, minArgs: 1, maxArgs: 1}
}

// operatorExpr is an operator applied to arguments.
type operatorExpr struct {
	spec *operatorSpec
	e    error
	args []Expression
	typ  ValueType
}

// newOperator validates arguments and returns a new operator expression.
// Invalid operators carry *InvalidExpressionError.
func newOperator(spec *operatorSpec, args []Expression) Expression {
	op := &operatorExpr{
		spec: spec,
		args: args,
		typ:  spec.result,
	}

	op.e = op.validate()

	return op
}

// validate checks arity and static argument types.
func (op *operatorExpr) validate() error {
	spec := op.spec

	switch {
	case len(op.args) == 0:
		return newInvalidExpressionError(spec.name, "at least one argument is required")
	case len(op.args) < spec.minArgs:
		return newInvalidExpressionError(
			spec.name,
			fmt.Sprintf("takes at least %d arguments, %d given", spec.minArgs, len(op.args)),
		)
	case spec.maxArgs >= 0 && len(op.args) > spec.maxArgs:
		return newInvalidExpressionError(
			spec.name,
			fmt.Sprintf("takes at most %d arguments, %d given", spec.maxArgs, len(op.args)),
		)
	}

	var dates int

	for i, arg := range op.args {
		if arg == nil {
			return newInvalidExpressionError(spec.name, fmt.Sprintf("argument %d is nil", i+1))
		}

		if err := arg.err(); err != nil {
			return err
		}

		if o, ok := arg.(*operatorExpr); ok && o.spec.accumulatorOnly {
			return newInvalidExpressionError(
				spec.name,
				fmt.Sprintf("argument %d: %s can be used only in a group stage", i+1, o.spec.name),
			)
		}

		t := arg.valueType()
		if t == TypeDate {
			dates++
		}

		if spec.argTypes == nil || t == TypeUnknown || containsType(spec.argTypes, t) {
			continue
		}

		return newInvalidExpressionError(
			spec.name,
			fmt.Sprintf("argument %d has type %s, expected %s", i+1, t, typeList(spec.argTypes)),
		)
	}

	switch spec {
	case opAdd:
		if dates > 1 {
			return newInvalidExpressionError(spec.name, "only one date allowed")
		}

		if dates == 1 {
			op.typ = TypeDate
		} else if allTyped(op.args, TypeNumber) {
			op.typ = TypeNumber
		}

	case opSubtract:
		switch t0, t1 := op.args[0].valueType(), op.args[1].valueType(); {
		case t0 == TypeNumber && t1 == TypeDate:
			return newInvalidExpressionError(spec.name, "can't subtract a date from a number")
		case t0 == TypeDate && t1 == TypeDate:
			op.typ = TypeNumber
		case t0 == TypeDate && t1 == TypeNumber:
			op.typ = TypeDate
		case t0 == TypeNumber && t1 == TypeNumber:
			op.typ = TypeNumber
		}
	}

	return nil
}

// bsonValue implements Expression.
func (op *operatorExpr) bsonValue() any {
	if len(op.args) == 1 && !op.spec.fixed {
		return bson.D{{Key: op.spec.name, Value: op.args[0].bsonValue()}}
	}

	arr := make(bson.A, len(op.args))
	for i, a := range op.args {
		arr[i] = a.bsonValue()
	}

	return bson.D{{Key: op.spec.name, Value: arr}}
}

// valueType implements Expression.
func (op *operatorExpr) valueType() ValueType {
	return op.typ
}

// err implements Expression.
func (op *operatorExpr) err() error {
	return op.e
}

// Sum returns the sum of numbers.
//
// With a single argument evaluated to an array, the array elements are summed.
// In a group stage, Sum must have exactly one argument; Sum(Literal(1)) counts documents.
func Sum(args ...Expression) Expression { return newOperator(opSum, args) }

// Avg returns the average of numbers.
func Avg(args ...Expression) Expression { return newOperator(opAvg, args) }

// Min returns the minimal value.
func Min(args ...Expression) Expression { return newOperator(opMin, args) }

// Max returns the maximal value.
func Max(args ...Expression) Expression { return newOperator(opMax, args) }

// First returns the first array element, or the first value of the group in a group stage.
func First(arg Expression) Expression { return newOperator(opFirst, []Expression{arg}) }

// Last returns the last array element, or the last value of the group in a group stage.
func Last(arg Expression) Expression { return newOperator(opLast, []Expression{arg}) }

// Push returns an array of all values of the group; it can be used only in a group stage.
func Push(arg Expression) Expression { return newOperator(opPush, []Expression{arg}) }

// AddToSet returns an array of unique values of the group; it can be used only in a group stage.
func AddToSet(arg Expression) Expression { return newOperator(opAddToSet, []Expression{arg}) }

// Multiply returns the product of numbers.
func Multiply(args ...Expression) Expression { return newOperator(opMultiply, args) }

// Add returns the sum of numbers; if one argument is a date, milliseconds are added to it.
func Add(args ...Expression) Expression { return newOperator(opAdd, args) }

// Subtract returns the difference of numbers or dates.
func Subtract(minuend, subtrahend Expression) Expression {
	return newOperator(opSubtract, []Expression{minuend, subtrahend})
}

// Divide returns the quotient as a double.
func Divide(dividend, divisor Expression) Expression {
	return newOperator(opDivide, []Expression{dividend, divisor})
}

// Mod returns the remainder of the division.
func Mod(dividend, divisor Expression) Expression {
	return newOperator(opMod, []Expression{dividend, divisor})
}

// Concat concatenates strings.
func Concat(args ...Expression) Expression { return newOperator(opConcat, args) }

// ToLower converts the string to lower case.
func ToLower(arg Expression) Expression { return newOperator(opToLower, []Expression{arg}) }

// ToUpper converts the string to upper case.
func ToUpper(arg Expression) Expression { return newOperator(opToUpper, []Expression{arg}) }

// Year returns the year of the date.
func Year(date Expression) Expression { return newOperator(opYear, []Expression{date}) }

// Month returns the month of the date (1-12).
func Month(date Expression) Expression { return newOperator(opMonth, []Expression{date}) }

// DayOfMonth returns the day of the month (1-31).
func DayOfMonth(date Expression) Expression { return newOperator(opDayOfMonth, []Expression{date}) }

// DayOfYear returns the day of the year (1-366).
func DayOfYear(date Expression) Expression { return newOperator(opDayOfYear, []Expression{date}) }

// DayOfWeek returns the day of the week, from 1 (Sunday) to 7 (Saturday).
func DayOfWeek(date Expression) Expression { return newOperator(opDayOfWeek, []Expression{date}) }

// Hour returns the hour of the date (0-23).
func Hour(date Expression) Expression { return newOperator(opHour, []Expression{date}) }

// Minute returns the minute of the date (0-59).
func Minute(date Expression) Expression { return newOperator(opMinute, []Expression{date}) }

// Second returns the second of the date (0-59).
func Second(date Expression) Expression { return newOperator(opSecond, []Expression{date}) }

// Millisecond returns the millisecond of the date (0-999).
func Millisecond(date Expression) Expression {
	return newOperator(opMillisecond, []Expression{date})
}

// containsType returns true if types contain t.
func containsType(types []ValueType, t ValueType) bool {
	for _, tt := range types {
		if tt == t {
			return true
		}
	}

	return false
}

// allTyped returns true if all expressions have the given static type.
func allTyped(exprs []Expression, t ValueType) bool {
	for _, e := range exprs {
		if e.valueType() != t {
			return false
		}
	}

	return true
}

// typeList formats value types for error messages.
func typeList(types []ValueType) string {
	res := ""

	for i, t := range types {
		if i > 0 {
			res += " or "
		}

		res += t.String()
	}

	return res
}

// check interfaces
var (
	_ Expression = (*operatorExpr)(nil)
)
