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

package operators

import (
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/types"
)

// add represents `$add` operator.
type add struct {
	args []Operator
}

// newAdd returns `$add` operator.
func newAdd(name string, args any) (Operator, error) {
	ops, err := parseArgs(name, args, 0, -1)
	if err != nil {
		return nil, err
	}

	return &add{args: ops}, nil
}

// Process implements Operator interface.
// Numbers are summed; if one argument is a date, the result is a date.
func (a *add) Process(doc bson.D) (any, error) {
	vs, err := processArgs(a.args, doc)
	if err != nil {
		return nil, err
	}

	var date *primitive.DateTime

	numbers := make([]any, 0, len(vs))

	for _, v := range vs {
		switch v := v.(type) {
		case nil:
			return nil, nil
		case float64, int32, int64:
			numbers = append(numbers, v)
		case primitive.DateTime:
			if date != nil {
				return nil, aggregations.NewError(
					aggregations.ErrArithmeticNonNumeric,
					"only one date allowed in an $add expression",
					"$add",
				)
			}

			date = &v
		default:
			return nil, aggregations.NewError(
				aggregations.ErrArithmeticNonNumeric,
				fmt.Sprintf("$add only supports numeric or date types, not %s", typeName(v)),
				"$add",
			)
		}
	}

	sum := aggregations.SumNumbers(numbers...)

	if date != nil {
		f, _ := aggregations.ToFloat64(sum)
		return primitive.DateTime(int64(*date) + int64(math.Round(f))), nil
	}

	return sum, nil
}

// subtract represents `$subtract` operator.
type subtract struct {
	minuend    Operator
	subtrahend Operator
}

// newSubtract returns `$subtract` operator.
func newSubtract(name string, args any) (Operator, error) {
	ops, err := parseArgs(name, args, 2, 2)
	if err != nil {
		return nil, err
	}

	return &subtract{minuend: ops[0], subtrahend: ops[1]}, nil
}

// Process implements Operator interface.
func (s *subtract) Process(doc bson.D) (any, error) {
	vs, err := processArgs([]Operator{s.minuend, s.subtrahend}, doc)
	if err != nil {
		return nil, err
	}

	a, b := vs[0], vs[1]

	if types.IsNull(a) || types.IsNull(b) {
		return nil, nil
	}

	switch a := a.(type) {
	case primitive.DateTime:
		switch b := b.(type) {
		case primitive.DateTime:
			return int64(a) - int64(b), nil
		case float64, int32, int64:
			f, _ := aggregations.ToFloat64(b)
			return primitive.DateTime(int64(a) - int64(math.Round(f))), nil
		}

	case float64, int32, int64:
		if types.IsNumber(b) {
			return aggregations.SumNumbers(a, negate(b)), nil
		}
	}

	return nil, aggregations.NewError(
		aggregations.ErrArithmeticNonNumeric,
		fmt.Sprintf("can't $subtract %s from %s", typeName(b), typeName(a)),
		"$subtract",
	)
}

// negate returns the negated number, widening the type on overflow.
func negate(v any) any {
	switch v := v.(type) {
	case float64:
		return -v
	case int32:
		if v == math.MinInt32 {
			return -int64(v)
		}

		return -v
	case int64:
		if v == math.MinInt64 {
			return -float64(v)
		}

		return -v
	default:
		return v
	}
}

// multiply represents `$multiply` operator.
type multiply struct {
	args []Operator
}

// newMultiply returns `$multiply` operator.
func newMultiply(name string, args any) (Operator, error) {
	ops, err := parseArgs(name, args, 0, -1)
	if err != nil {
		return nil, err
	}

	return &multiply{args: ops}, nil
}

// Process implements Operator interface.
func (m *multiply) Process(doc bson.D) (any, error) {
	vs, err := processArgs(m.args, doc)
	if err != nil {
		return nil, err
	}

	for _, v := range vs {
		switch v.(type) {
		case nil:
			return nil, nil
		case float64, int32, int64:
		default:
			return nil, aggregations.NewError(
				aggregations.ErrArithmeticNonNumeric,
				fmt.Sprintf("$multiply only supports numeric types, not %s", typeName(v)),
				"$multiply",
			)
		}
	}

	return aggregations.MultiplyNumbers(vs...), nil
}

// divide represents `$divide` operator.
type divide struct {
	dividend Operator
	divisor  Operator
}

// newDivide returns `$divide` operator.
func newDivide(name string, args any) (Operator, error) {
	ops, err := parseArgs(name, args, 2, 2)
	if err != nil {
		return nil, err
	}

	return &divide{dividend: ops[0], divisor: ops[1]}, nil
}

// Process implements Operator interface.
// The result is always a double.
func (d *divide) Process(doc bson.D) (any, error) {
	vs, err := processArgs([]Operator{d.dividend, d.divisor}, doc)
	if err != nil {
		return nil, err
	}

	if types.IsNull(vs[0]) || types.IsNull(vs[1]) {
		return nil, nil
	}

	a, okA := aggregations.ToFloat64(vs[0])
	b, okB := aggregations.ToFloat64(vs[1])

	if !okA || !okB {
		return nil, aggregations.NewError(
			aggregations.ErrArithmeticNonNumeric,
			fmt.Sprintf("$divide only supports numeric types, not %s and %s", typeName(vs[0]), typeName(vs[1])),
			"$divide",
		)
	}

	if b == 0 {
		return nil, aggregations.NewError(aggregations.ErrDivideByZero, "can't $divide by zero", "$divide")
	}

	return a / b, nil
}

// mod represents `$mod` operator.
type mod struct {
	dividend Operator
	divisor  Operator
}

// newMod returns `$mod` operator.
func newMod(name string, args any) (Operator, error) {
	ops, err := parseArgs(name, args, 2, 2)
	if err != nil {
		return nil, err
	}

	return &mod{dividend: ops[0], divisor: ops[1]}, nil
}

// Process implements Operator interface.
func (m *mod) Process(doc bson.D) (any, error) {
	vs, err := processArgs([]Operator{m.dividend, m.divisor}, doc)
	if err != nil {
		return nil, err
	}

	a, b := vs[0], vs[1]

	if types.IsNull(a) || types.IsNull(b) {
		return nil, nil
	}

	if !types.IsNumber(a) || !types.IsNumber(b) {
		return nil, aggregations.NewError(
			aggregations.ErrArithmeticNonNumeric,
			fmt.Sprintf("$mod only supports numeric types, not %s and %s", typeName(a), typeName(b)),
			"$mod",
		)
	}

	if fb, _ := aggregations.ToFloat64(b); fb == 0 {
		return nil, aggregations.NewError(aggregations.ErrModByZero, "can't $mod by zero", "$mod")
	}

	_, floatA := a.(float64)
	_, floatB := b.(float64)

	if floatA || floatB {
		fa, _ := aggregations.ToFloat64(a)
		fb, _ := aggregations.ToFloat64(b)

		return math.Mod(fa, fb), nil
	}

	ia, ib := toInt64(a), toInt64(b)

	// MinInt64 % -1 overflows in some implementations, the result is 0 anyway
	if ib == -1 {
		return aggregations.SumNumbers(zeroOf(a), zeroOf(b)), nil
	}

	_, int64A := a.(int64)
	_, int64B := b.(int64)

	if int64A || int64B {
		return ia % ib, nil
	}

	return int32(ia % ib), nil
}

// toInt64 converts int32 or int64 to int64.
func toInt64(v any) int64 {
	switch v := v.(type) {
	case int32:
		return int64(v)
	case int64:
		return v
	default:
		panic(fmt.Sprintf("unexpected type %T", v))
	}
}

// zeroOf returns zero of the same type as v.
func zeroOf(v any) any {
	switch v.(type) {
	case int64:
		return int64(0)
	default:
		return int32(0)
	}
}

// check interfaces
var (
	_ Operator = (*add)(nil)
	_ Operator = (*subtract)(nil)
	_ Operator = (*multiply)(nil)
	_ Operator = (*divide)(nil)
	_ Operator = (*mod)(nil)
)
