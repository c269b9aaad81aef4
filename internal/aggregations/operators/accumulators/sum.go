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

package accumulators

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/aggregations/operators"
	"github.com/FerretDB/docmap/internal/types"
)

// sum represents $sum aggregation operator.
type sum struct {
	expression operators.Operator
}

// newSum creates a new $sum aggregation operator.
func newSum(name string, args any) (Accumulator, error) {
	expr, err := newUnaryExpression(name, args)
	if err != nil {
		return nil, err
	}

	return &sum{expression: expr}, nil
}

// Accumulate implements Accumulator interface.
//
// Non-numeric values (including arrays) are ignored; $sum returns 0 if there are no numbers.
// For a constant like {$sum: 1} the result is the number of documents.
func (s *sum) Accumulate(iter types.DocumentsIterator) (any, error) {
	vs, err := evaluateAll(iter, s.expression)
	if err != nil {
		return nil, err
	}

	return aggregations.SumNumbers(vs...), nil
}

// count represents $count aggregation operator.
type count struct{}

// newCount creates a new $count aggregation operator.
func newCount(name string, args any) (Accumulator, error) {
	return new(count), nil
}

// Accumulate implements Accumulator interface.
func (c *count) Accumulate(iter types.DocumentsIterator) (any, error) {
	vs, err := evaluateAll(iter, operators.Operator(constant{}))
	if err != nil {
		return nil, err
	}

	return aggregations.SumNumbers(vs...), nil
}

// constant is an expression always evaluated to int32(1).
type constant struct{}

// Process implements operators.Operator interface.
func (constant) Process(bson.D) (any, error) {
	return int32(1), nil
}

// avg represents $avg aggregation operator.
type avg struct {
	expression operators.Operator
}

// newAvg creates a new $avg aggregation operator.
func newAvg(name string, args any) (Accumulator, error) {
	expr, err := newUnaryExpression(name, args)
	if err != nil {
		return nil, err
	}

	return &avg{expression: expr}, nil
}

// Accumulate implements Accumulator interface.
func (a *avg) Accumulate(iter types.DocumentsIterator) (any, error) {
	vs, err := evaluateAll(iter, a.expression)
	if err != nil {
		return nil, err
	}

	return operators.Average(vs), nil
}

// minMax represents $min and $max aggregation operators.
type minMax struct {
	expression operators.Operator
	max        bool
}

// newMinMax creates a new $min or $max aggregation operator.
func newMinMax(name string, args any) (Accumulator, error) {
	expr, err := newUnaryExpression(name, args)
	if err != nil {
		return nil, err
	}

	return &minMax{expression: expr, max: name == "$max"}, nil
}

// Accumulate implements Accumulator interface.
func (m *minMax) Accumulate(iter types.DocumentsIterator) (any, error) {
	vs, err := evaluateAll(iter, m.expression)
	if err != nil {
		return nil, err
	}

	return operators.Extremum(vs, m.max), nil
}

// check interfaces
var (
	_ Accumulator = (*sum)(nil)
	_ Accumulator = (*count)(nil)
	_ Accumulator = (*avg)(nil)
	_ Accumulator = (*minMax)(nil)
)
