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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestExpression(t *testing.T) {
	t.Parallel()

	doc := bson.D{
		{"item", "abc"},
		{"nested", bson.D{{"price", int32(10)}}},
		{"items", bson.A{bson.D{{"q", int32(1)}}, bson.D{{"q", int32(2)}}, int32(3)}},
	}

	for name, tc := range map[string]struct {
		expected   any
		expression string
	}{
		"Field": {
			expression: "$item",
			expected:   "abc",
		},
		"Nested": {
			expression: "$nested.price",
			expected:   int32(10),
		},
		"Missing": {
			expression: "$foo",
			expected:   Missing,
		},
		"MissingNested": {
			expression: "$item.foo",
			expected:   Missing,
		},
		"ArrayTraversal": {
			expression: "$items.q",
			expected:   bson.A{int32(1), int32(2)},
		},
		"Root": {
			expression: "$$ROOT",
			expected:   doc,
		},
		"Current": {
			expression: "$$CURRENT.item",
			expected:   "abc",
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			expr, err := NewExpression(tc.expression)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, expr.Evaluate(doc))
		})
	}
}

func TestExpressionErrors(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		expression string
		code       ExpressionErrorCode
	}{
		"NotExpression": {
			expression: "item",
			code:       ErrNotExpression,
		},
		"EmptyFieldPath": {
			expression: "$",
			code:       ErrEmptyFieldPath,
		},
		"EmptyVariable": {
			expression: "$$",
			code:       ErrEmptyVariable,
		},
		"UndefinedVariable": {
			expression: "$$foo",
			code:       ErrUndefinedVariable,
		},
		"EmptyPathElement": {
			expression: "$a..b",
			code:       ErrInvalidExpression,
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := NewExpression(tc.expression)

			var exprErr *ExpressionError
			require.ErrorAs(t, err, &exprErr)
			assert.Equal(t, tc.code, exprErr.Code())
		})
	}
}
