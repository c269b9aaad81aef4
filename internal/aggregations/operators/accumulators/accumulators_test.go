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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/util/iterator"
)

func TestAccumulators(t *testing.T) {
	t.Parallel()

	docs := []bson.D{
		{{"item", "abc"}, {"price", int32(10)}, {"quantity", int32(2)}},
		{{"item", "xyz"}, {"price", int32(5)}, {"quantity", int32(5)}},
		{{"item", "abc"}, {"price", int32(10)}, {"quantity", int32(10)}},
		{{"item", "jkl"}, {"price", float64(20)}},
	}

	for name, tc := range map[string]struct {
		accumulation bson.D
		expected     any
	}{
		"SumField": {
			accumulation: bson.D{{"$sum", "$quantity"}},
			expected:     int32(17),
		},
		"SumConstant": {
			accumulation: bson.D{{"$sum", int32(1)}},
			expected:     int32(4),
		},
		"SumExpression": {
			accumulation: bson.D{{"$sum", bson.D{{"$multiply", bson.A{"$price", "$quantity"}}}}},
			expected:     int32(145),
		},
		"SumFloat": {
			accumulation: bson.D{{"$sum", "$price"}},
			expected:     float64(45),
		},
		"SumNonNumeric": {
			accumulation: bson.D{{"$sum", "$item"}},
			expected:     int32(0),
		},
		"Count": {
			accumulation: bson.D{{"$count", bson.D{}}},
			expected:     int32(4),
		},
		"Avg": {
			accumulation: bson.D{{"$avg", "$quantity"}},
			expected:     float64(17) / 3,
		},
		"Min": {
			accumulation: bson.D{{"$min", "$quantity"}},
			expected:     int32(2),
		},
		"Max": {
			accumulation: bson.D{{"$max", "$item"}},
			expected:     "xyz",
		},
		"First": {
			accumulation: bson.D{{"$first", "$item"}},
			expected:     "abc",
		},
		"LastMissing": {
			accumulation: bson.D{{"$last", "$quantity"}},
			expected:     nil,
		},
		"Push": {
			accumulation: bson.D{{"$push", "$quantity"}},
			expected:     bson.A{int32(2), int32(5), int32(10)},
		},
		"AddToSet": {
			accumulation: bson.D{{"$addToSet", "$item"}},
			expected:     bson.A{"abc", "xyz", "jkl"},
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			acc, err := NewAccumulator("$group", "result", tc.accumulation)
			require.NoError(t, err)

			actual, err := acc.Accumulate(iterator.Values(iterator.ForSlice(docs)))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestAccumulatorsErrors(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		value any
		code  aggregations.ErrorCode
	}{
		"NotDocument": {
			value: "$v",
			code:  aggregations.ErrStageGroupInvalidAccum,
		},
		"MultipleAccumulators": {
			value: bson.D{{"$sum", int32(1)}, {"$avg", "$v"}},
			code:  aggregations.ErrStageGroupMultipleAccum,
		},
		"Unknown": {
			value: bson.D{{"$foo", int32(1)}},
			code:  aggregations.ErrInvalidPipelineOperator,
		},
		"Unary": {
			value: bson.D{{"$sum", bson.A{"$a", "$b"}}},
			code:  aggregations.ErrStageGroupUnaryOperator,
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := NewAccumulator("$group", "result", tc.value)

			var aggErr *aggregations.Error
			require.ErrorAs(t, err, &aggErr)
			assert.Equal(t, tc.code, aggErr.Code())
		})
	}
}
