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
)

// fieldPath represents a field path expression like "$a.b".
type fieldPath struct {
	expr *aggregations.Expression
}

// Process implements Operator interface.
func (f *fieldPath) Process(doc bson.D) (any, error) {
	return f.expr.Evaluate(doc), nil
}

// literal represents a constant value.
type literal struct {
	value any
}

// newLiteral returns `$literal` operator; its argument is never evaluated.
func newLiteral(_ string, args any) (Operator, error) {
	return literal{value: args}, nil
}

// Process implements Operator interface.
func (l literal) Process(bson.D) (any, error) {
	return l.value, nil
}

// array represents an array expression; missing elements become null.
type array []Operator

// Process implements Operator interface.
func (a array) Process(doc bson.D) (any, error) {
	res := make(bson.A, len(a))

	for i, op := range a {
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

// objectField is a single computed field of an object expression.
type objectField struct {
	op  Operator
	key string
}

// object represents an object expression like {day: {$dayOfYear: "$date"}}.
type object []objectField

// newObject compiles object expression fields.
func newObject(doc bson.D) (Operator, error) {
	res := make(object, 0, len(doc))

	for _, e := range doc {
		op, err := NewExpression(e.Value)
		if err != nil {
			return nil, err
		}

		res = append(res, objectField{key: e.Key, op: op})
	}

	return res, nil
}

// Process implements Operator interface.
// Fields evaluated to missing values are omitted.
func (o object) Process(doc bson.D) (any, error) {
	res := make(bson.D, 0, len(o))

	for _, f := range o {
		v, err := f.op.Process(doc)
		if err != nil {
			return nil, err
		}

		if aggregations.IsMissing(v) {
			continue
		}

		res = append(res, bson.E{Key: f.key, Value: v})
	}

	return res, nil
}

// check interfaces
var (
	_ Operator = (*fieldPath)(nil)
	_ Operator = literal{}
	_ Operator = array(nil)
	_ Operator = object(nil)
)
