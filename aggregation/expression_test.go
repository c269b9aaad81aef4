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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	now := time.Date(2014, time.February, 15, 8, 0, 0, 0, time.UTC)

	for name, tc := range map[string]struct {
		expr     Expression
		expected any
	}{
		"Field": {
			expr:     Field("price"),
			expected: "$price",
		},
		"DottedField": {
			expr:     Field("item.name"),
			expected: "$item.name",
		},
		"Literal": {
			expr:     Literal(int32(1)),
			expected: int32(1),
		},
		"LiteralDollarString": {
			expr:     Literal("$price"),
			expected: bson.D{{"$literal", "$price"}},
		},
		"LiteralDocument": {
			expr:     Literal(bson.D{{"$sum", 1}}),
			expected: bson.D{{"$literal", bson.D{{"$sum", 1}}}},
		},
		"SumSingle": {
			expr:     Sum(Literal(1)),
			expected: bson.D{{"$sum", 1}},
		},
		"SumFields": {
			expr:     Sum(Fields("final", "midterm")...),
			expected: bson.D{{"$sum", bson.A{"$final", "$midterm"}}},
		},
		"SumOfMultiply": {
			expr: Sum(Multiply(Fields("price", "quantity")...)),
			expected: bson.D{{"$sum", bson.D{
				{"$multiply", bson.A{"$price", "$quantity"}},
			}}},
		},
		"MultiplySingle": {
			expr:     Multiply(Field("price")),
			expected: bson.D{{"$multiply", "$price"}},
		},
		"Subtract": {
			expr:     Subtract(Field("price"), Literal(2)),
			expected: bson.D{{"$subtract", bson.A{"$price", 2}}},
		},
		"DivideFixed": {
			expr:     Divide(Field("a"), Field("b")),
			expected: bson.D{{"$divide", bson.A{"$a", "$b"}}},
		},
		"AddDate": {
			expr:     Add(Literal(now), Literal(int64(1000))),
			expected: bson.D{{"$add", bson.A{now, int64(1000)}}},
		},
		"DayOfYear": {
			expr:     DayOfYear(Field("date")),
			expected: bson.D{{"$dayOfYear", "$date"}},
		},
		"DayOfYearLiteral": {
			expr:     DayOfYear(Literal(now)),
			expected: bson.D{{"$dayOfYear", now}},
		},
		"Concat": {
			expr:     Concat(Field("first"), Literal(" "), Field("last")),
			expected: bson.D{{"$concat", bson.A{"$first", " ", "$last"}}},
		},
		"ToUpperNumber": {
			expr:     ToUpper(Literal(42)),
			expected: bson.D{{"$toUpper", 42}},
		},
		"FirstArray": {
			expr:     First(Field("scores")),
			expected: bson.D{{"$first", "$scores"}},
		},
		"MaxOfSubtract": {
			expr: Max(Subtract(Field("a"), Field("b")), Literal(0)),
			expected: bson.D{{"$max", bson.A{
				bson.D{{"$subtract", bson.A{"$a", "$b"}}},
				0,
			}}},
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			actual, err := Encode(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	t.Parallel()

	now := time.Date(2014, time.February, 15, 8, 0, 0, 0, time.UTC)

	for name, tc := range map[string]struct {
		expr     Expression
		operator string
		reason   string
	}{
		"Nil": {
			expr:   nil,
			reason: "expression is nil",
		},
		"EmptyField": {
			expr:   Field(""),
			reason: "field name is empty",
		},
		"DollarField": {
			expr:   Field("$price"),
			reason: `field name "$price" must not start with '$'`,
		},
		"EmptyPathElement": {
			expr:   Field("a..b"),
			reason: `field path "a..b" contains an empty element`,
		},
		"SumNoArgs": {
			expr:     Sum(),
			operator: "$sum",
			reason:   "at least one argument is required",
		},
		"MultiplyString": {
			expr:     Multiply(Field("price"), Literal("abc")),
			operator: "$multiply",
			reason:   "argument 2 has type string, expected number",
		},
		"DivideDate": {
			expr:     Divide(Literal(now), Literal(2)),
			operator: "$divide",
			reason:   "argument 1 has type date, expected number",
		},
		"YearOfNumber": {
			expr:     Year(Literal(2014)),
			operator: "$year",
			reason:   "argument 1 has type number, expected date",
		},
		"ConcatNumber": {
			expr:     Concat(Literal("a"), Literal(1)),
			operator: "$concat",
			reason:   "argument 2 has type number, expected string or null",
		},
		"AddTwoDates": {
			expr:     Add(Literal(now), Literal(now)),
			operator: "$add",
			reason:   "only one date allowed",
		},
		"SubtractDateFromNumber": {
			expr:     Subtract(Literal(1), Literal(now)),
			operator: "$subtract",
			reason:   "can't subtract a date from a number",
		},
		"NilArgument": {
			expr:     Multiply(Field("a"), nil),
			operator: "$multiply",
			reason:   "argument 2 is nil",
		},
		"NestedError": {
			expr:     Sum(Multiply(Field("price"), Field(""))),
			operator: "",
			reason:   "field name is empty",
		},
		"NestedPush": {
			expr:     Sum(Push(Field("price"))),
			operator: "$sum",
			reason:   "argument 1: $push can be used only in a group stage",
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Encode(tc.expr)
			require.Error(t, err)

			var ie *InvalidExpressionError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tc.operator, ie.Operator)
			assert.Equal(t, tc.reason, ie.Reason)
		})
	}
}

func TestValueType(t *testing.T) {
	t.Parallel()

	now := time.Now()

	assert.Equal(t, TypeDate, Add(Literal(now), Literal(1)).valueType())
	assert.Equal(t, TypeNumber, Add(Literal(1), Literal(2)).valueType())
	assert.Equal(t, TypeUnknown, Add(Field("a"), Literal(2)).valueType())
	assert.Equal(t, TypeNumber, Subtract(Literal(now), Literal(now)).valueType())
	assert.Equal(t, TypeDate, Subtract(Literal(now), Literal(1)).valueType())
	assert.Equal(t, TypeNumber, DayOfWeek(Field("date")).valueType())
	assert.Equal(t, TypeString, ToLower(Field("item")).valueType())
	assert.Equal(t, TypeArray, Literal(bson.A{1}).valueType())
	assert.Equal(t, TypeArray, Literal([]int{1}).valueType())
	assert.Equal(t, TypeNull, Literal(nil).valueType())
	assert.Equal(t, "number", TypeNumber.String())
}
