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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FerretDB/docmap/internal/aggregations"
)

func TestOperators(t *testing.T) {
	t.Parallel()

	date := primitive.NewDateTimeFromTime(time.Date(2014, 2, 15, 8, 9, 10, 11_000_000, time.UTC))

	doc := bson.D{
		{"item", "abc"},
		{"price", int32(10)},
		{"quantity", int32(2)},
		{"discount", float64(0.5)},
		{"date", date},
		{"quizzes", bson.A{int32(10), int32(6), int32(7)}},
		{"labs", bson.A{int32(5), int32(8)}},
		{"final", int32(80)},
		{"midterm", int32(75)},
		{"nothing", nil},
	}

	for name, tc := range map[string]struct {
		expression any
		expected   any
	}{
		"FieldPath": {
			expression: "$item",
			expected:   "abc",
		},
		"Missing": {
			expression: "$foo",
			expected:   aggregations.Missing,
		},
		"StringLiteral": {
			expression: "item",
			expected:   "item",
		},
		"Literal": {
			expression: bson.D{{"$literal", "$item"}},
			expected:   "$item",
		},
		"SumArray": {
			expression: bson.D{{"$sum", "$quizzes"}},
			expected:   int32(23),
		},
		"SumArrayIgnoredWithMultipleArgs": {
			expression: bson.D{{"$sum", bson.A{"$quizzes", int32(1)}}},
			expected:   int32(1),
		},
		"SumFields": {
			expression: bson.D{{"$sum", bson.A{"$final", "$midterm"}}},
			expected:   int32(155),
		},
		"Avg": {
			expression: bson.D{{"$avg", "$labs"}},
			expected:   float64(6.5),
		},
		"AvgNoNumbers": {
			expression: bson.D{{"$avg", "$item"}},
			expected:   nil,
		},
		"Min": {
			expression: bson.D{{"$min", "$quizzes"}},
			expected:   int32(6),
		},
		"Max": {
			expression: bson.D{{"$max", bson.A{"$final", "$midterm", "$foo"}}},
			expected:   int32(80),
		},
		"Multiply": {
			expression: bson.D{{"$multiply", bson.A{"$price", "$quantity"}}},
			expected:   int32(20),
		},
		"MultiplyFloat": {
			expression: bson.D{{"$multiply", bson.A{"$price", "$discount"}}},
			expected:   float64(5),
		},
		"MultiplyNull": {
			expression: bson.D{{"$multiply", bson.A{"$price", "$foo"}}},
			expected:   nil,
		},
		"Add": {
			expression: bson.D{{"$add", bson.A{"$price", int64(1)}}},
			expected:   int64(11),
		},
		"AddDate": {
			expression: bson.D{{"$add", bson.A{"$date", int32(1000)}}},
			expected:   primitive.DateTime(int64(date) + 1000),
		},
		"Subtract": {
			expression: bson.D{{"$subtract", bson.A{"$final", "$midterm"}}},
			expected:   int32(5),
		},
		"Divide": {
			expression: bson.D{{"$divide", bson.A{"$price", int32(4)}}},
			expected:   float64(2.5),
		},
		"Mod": {
			expression: bson.D{{"$mod", bson.A{"$final", int32(7)}}},
			expected:   int32(3),
		},
		"Nested": {
			expression: bson.D{{"$sum", bson.A{
				bson.D{{"$multiply", bson.A{"$price", "$quantity"}}},
				int32(1),
			}}},
			expected: int32(21),
		},
		"Year": {
			expression: bson.D{{"$year", "$date"}},
			expected:   int32(2014),
		},
		"Month": {
			expression: bson.D{{"$month", bson.A{"$date"}}},
			expected:   int32(2),
		},
		"DayOfMonth": {
			expression: bson.D{{"$dayOfMonth", bson.D{{"date", "$date"}}}},
			expected:   int32(15),
		},
		"DayOfYear": {
			expression: bson.D{{"$dayOfYear", "$date"}},
			expected:   int32(46),
		},
		"DayOfWeek": {
			expression: bson.D{{"$dayOfWeek", "$date"}},
			expected:   int32(7),
		},
		"Hour": {
			expression: bson.D{{"$hour", "$date"}},
			expected:   int32(8),
		},
		"Millisecond": {
			expression: bson.D{{"$millisecond", "$date"}},
			expected:   int32(11),
		},
		"DateNull": {
			expression: bson.D{{"$year", "$nothing"}},
			expected:   nil,
		},
		"Concat": {
			expression: bson.D{{"$concat", bson.A{"$item", "-", "x"}}},
			expected:   "abc-x",
		},
		"ConcatNull": {
			expression: bson.D{{"$concat", bson.A{"$item", "$foo"}}},
			expected:   nil,
		},
		"ToUpper": {
			expression: bson.D{{"$toUpper", "$item"}},
			expected:   "ABC",
		},
		"ToLowerNumber": {
			expression: bson.D{{"$toLower", "$price"}},
			expected:   "10",
		},
		"ToLowerMissing": {
			expression: bson.D{{"$toLower", "$foo"}},
			expected:   "",
		},
		"First": {
			expression: bson.D{{"$first", "$quizzes"}},
			expected:   int32(10),
		},
		"Last": {
			expression: bson.D{{"$last", "$labs"}},
			expected:   int32(8),
		},
		"Object": {
			expression: bson.D{{"day", bson.D{{"$dayOfYear", "$date"}}}, {"missing", "$foo"}},
			expected:   bson.D{{"day", int32(46)}},
		},
		"Array": {
			expression: bson.A{"$price", "$foo"},
			expected:   bson.A{int32(10), nil},
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			op, err := NewExpression(tc.expression)
			require.NoError(t, err)

			actual, err := op.Process(doc)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestOperatorsErrors(t *testing.T) {
	t.Parallel()

	doc := bson.D{{"item", "abc"}, {"price", int32(10)}}

	for name, tc := range map[string]struct {
		expression any
		code       aggregations.ErrorCode
		compile    bool // error is returned by NewExpression
	}{
		"Unknown": {
			expression: bson.D{{"$foo", int32(1)}},
			code:       aggregations.ErrInvalidPipelineOperator,
			compile:    true,
		},
		"TooManyFields": {
			expression: bson.D{{"$sum", int32(1)}, {"$avg", int32(1)}},
			code:       aggregations.ErrExpressionWrongLenFields,
			compile:    true,
		},
		"SubtractArity": {
			expression: bson.D{{"$subtract", bson.A{int32(1)}}},
			code:       aggregations.ErrOperatorWrongLenOfArgs,
			compile:    true,
		},
		"EmptyFieldPath": {
			expression: "$",
			code:       aggregations.ErrFieldPathEmpty,
			compile:    true,
		},
		"MultiplyString": {
			expression: bson.D{{"$multiply", bson.A{"$price", "$item"}}},
			code:       aggregations.ErrArithmeticNonNumeric,
		},
		"DivideByZero": {
			expression: bson.D{{"$divide", bson.A{"$price", int32(0)}}},
			code:       aggregations.ErrDivideByZero,
		},
		"ModByZero": {
			expression: bson.D{{"$mod", bson.A{"$price", int64(0)}}},
			code:       aggregations.ErrModByZero,
		},
		"YearString": {
			expression: bson.D{{"$year", "$item"}},
			code:       aggregations.ErrDateNonDate,
		},
		"ConcatNumber": {
			expression: bson.D{{"$concat", bson.A{"$item", "$price"}}},
			code:       aggregations.ErrConcatNonString,
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			op, err := NewExpression(tc.expression)
			if !tc.compile {
				require.NoError(t, err)
				_, err = op.Process(doc)
			}

			var aggErr *aggregations.Error
			require.ErrorAs(t, err, &aggErr)
			assert.Equal(t, tc.code, aggErr.Code())
		})
	}
}
