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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumNumbers(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		expected any
		values   []any
	}{
		"Empty": {
			values:   []any{},
			expected: int32(0),
		},
		"Int32": {
			values:   []any{int32(20), int32(45), int32(150)},
			expected: int32(215),
		},
		"Int32Overflow": {
			values:   []any{int32(math.MaxInt32), int32(1)},
			expected: int64(math.MaxInt32 + 1),
		},
		"Int64": {
			values:   []any{int32(1), int64(2)},
			expected: int64(3),
		},
		"Int64Overflow": {
			values:   []any{int64(math.MaxInt64), int64(1)},
			expected: float64(math.MaxInt64) + 1,
		},
		"Float64": {
			values:   []any{int32(1), float64(1.5)},
			expected: float64(2.5),
		},
		"IgnoreNonNumbers": {
			values:   []any{int32(1), "foo", nil, Missing, int32(2)},
			expected: int32(3),
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, SumNumbers(tc.values...))
		})
	}
}

func TestMultiplyNumbers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int32(1), MultiplyNumbers())
	assert.Equal(t, int32(50), MultiplyNumbers(int32(5), int32(10)))
	assert.Equal(t, int64(math.MaxInt32)*2, MultiplyNumbers(int32(math.MaxInt32), int32(2)))
	assert.Equal(t, float64(12.5), MultiplyNumbers(float64(2.5), int64(5)))
}
