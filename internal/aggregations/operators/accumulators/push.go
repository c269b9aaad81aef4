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

// push represents $push and $addToSet aggregation operators.
type push struct {
	expression operators.Operator
	unique     bool
}

// newPush creates a new $push or $addToSet aggregation operator.
func newPush(name string, args any) (Accumulator, error) {
	expr, err := newUnaryExpression(name, args)
	if err != nil {
		return nil, err
	}

	return &push{expression: expr, unique: name == "$addToSet"}, nil
}

// Accumulate implements Accumulator interface.
// Missing values are skipped; $addToSet keeps the first occurrence of equal values.
func (p *push) Accumulate(iter types.DocumentsIterator) (any, error) {
	vs, err := evaluateAll(iter, p.expression)
	if err != nil {
		return nil, err
	}

	res := bson.A{}

	for _, v := range vs {
		if aggregations.IsMissing(v) {
			continue
		}

		if p.unique && contains(res, v) {
			continue
		}

		res = append(res, v)
	}

	return res, nil
}

// contains returns true if arr contains a value equal to v.
func contains(arr bson.A, v any) bool {
	for _, e := range arr {
		if types.Compare(e, v) == types.Equal {
			return true
		}
	}

	return false
}

// firstLast represents $first and $last aggregation operators.
type firstLast struct {
	expression operators.Operator
	last       bool
}

// newFirstLast creates a new $first or $last aggregation operator.
func newFirstLast(name string, args any) (Accumulator, error) {
	expr, err := newUnaryExpression(name, args)
	if err != nil {
		return nil, err
	}

	return &firstLast{expression: expr, last: name == "$last"}, nil
}

// Accumulate implements Accumulator interface.
// Missing values become null.
func (f *firstLast) Accumulate(iter types.DocumentsIterator) (any, error) {
	vs, err := evaluateAll(iter, f.expression)
	if err != nil {
		return nil, err
	}

	if len(vs) == 0 {
		return nil, nil
	}

	v := vs[0]
	if f.last {
		v = vs[len(vs)-1]
	}

	if aggregations.IsMissing(v) {
		return nil, nil
	}

	return v, nil
}

// check interfaces
var (
	_ Accumulator = (*push)(nil)
	_ Accumulator = (*firstLast)(nil)
)
