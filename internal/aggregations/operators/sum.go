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
	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/types"
)

// numericArgs holds arguments of `$sum`, `$avg`, `$min` and `$max` used as expressions.
type numericArgs struct {
	args []Operator
}

// newNumericArgs compiles arguments of array-reducing operators.
func newNumericArgs(name string, args any) (numericArgs, error) {
	ops, err := parseArgs(name, args, 0, -1)
	if err != nil {
		return numericArgs{}, err
	}

	return numericArgs{args: ops}, nil
}

// values returns values to reduce.
//
// With a single argument evaluated to an array, array elements are used.
// When there is more than one argument, arrays are ignored:
// `{$sum: ["$v", 1]}` on {v: [2, 3]} is 1, but `{$sum: ["$v"]}` is 5.
func (n numericArgs) values(doc bson.D) ([]any, error) {
	res := make([]any, 0, len(n.args))

	for _, op := range n.args {
		v, err := op.Process(doc)
		if err != nil {
			return nil, err
		}

		if arr, ok := v.(bson.A); ok {
			if len(n.args) > 1 {
				continue
			}

			res = append(res, arr...)

			continue
		}

		res = append(res, v)
	}

	return res, nil
}

// sum represents `$sum` operator.
type sum struct {
	numericArgs
}

// newSum returns `$sum` operator.
func newSum(name string, args any) (Operator, error) {
	n, err := newNumericArgs(name, args)
	if err != nil {
		return nil, err
	}

	return &sum{numericArgs: n}, nil
}

// Process implements Operator interface.
// It sums all int32, int64 and float64 numbers ignoring other types.
func (s *sum) Process(doc bson.D) (any, error) {
	vs, err := s.values(doc)
	if err != nil {
		return nil, err
	}

	return aggregations.SumNumbers(vs...), nil
}

// avg represents `$avg` operator.
type avg struct {
	numericArgs
}

// newAvg returns `$avg` operator.
func newAvg(name string, args any) (Operator, error) {
	n, err := newNumericArgs(name, args)
	if err != nil {
		return nil, err
	}

	return &avg{numericArgs: n}, nil
}

// Process implements Operator interface.
// It returns null if there are no numbers.
func (a *avg) Process(doc bson.D) (any, error) {
	vs, err := a.values(doc)
	if err != nil {
		return nil, err
	}

	return Average(vs), nil
}

// Average returns the average of numbers as a double, ignoring other types.
// It returns nil if there are no numbers.
func Average(vs []any) any {
	numbers := make([]any, 0, len(vs))

	for _, v := range vs {
		if types.IsNumber(v) {
			numbers = append(numbers, v)
		}
	}

	if len(numbers) == 0 {
		return nil
	}

	f, _ := aggregations.ToFloat64(aggregations.SumNumbers(numbers...))

	return f / float64(len(numbers))
}

// minMax represents `$min` and `$max` operators.
type minMax struct {
	numericArgs
	max bool
}

// newMinMax returns `$min` or `$max` operator.
func newMinMax(name string, args any) (Operator, error) {
	n, err := newNumericArgs(name, args)
	if err != nil {
		return nil, err
	}

	return &minMax{numericArgs: n, max: name == "$max"}, nil
}

// Process implements Operator interface.
func (m *minMax) Process(doc bson.D) (any, error) {
	vs, err := m.values(doc)
	if err != nil {
		return nil, err
	}

	return Extremum(vs, m.max), nil
}

// Extremum returns the minimum (or maximum) value in BSON order, ignoring null and missing values.
// It returns nil if there are no such values.
func Extremum(vs []any, max bool) any {
	var res any

	found := false

	for _, v := range vs {
		if types.IsNull(v) || aggregations.IsMissing(v) {
			continue
		}

		if !found {
			res, found = v, true
			continue
		}

		c := types.Compare(v, res)
		if (max && c == types.Greater) || (!max && c == types.Less) {
			res = v
		}
	}

	return res
}

// check interfaces
var (
	_ Operator = (*sum)(nil)
	_ Operator = (*avg)(nil)
	_ Operator = (*minMax)(nil)
)
