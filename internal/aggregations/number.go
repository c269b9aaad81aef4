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
	"math/big"
	"sort"

	"github.com/FerretDB/docmap/internal/types"
)

// SumNumbers accumulate numbers and returns the result of summation.
// The result has the same type as the input, except when the result
// cannot be presented accurately. Then int32 is converted to int64,
// and int64 is converted to float64. It ignores non-number values.
// This should only be used for aggregation, aggregation does not return
// error on overflow.
func SumNumbers(vs ...any) any {
	vs = sortByAbs(vs)

	// use big.Int to accumulate values larger than math.MaxInt64.
	intSum := big.NewInt(0)
	floatSum := new(big.Float).SetPrec(2048)

	var hasFloat64, hasInt64 bool

	for _, v := range vs {
		switch v := v.(type) {
		case float64:
			hasFloat64 = true

			floatSum = floatSum.Add(floatSum, big.NewFloat(v).SetPrec(2048))
		case int32:
			intSum.Add(intSum, big.NewInt(int64(v)))
		case int64:
			hasInt64 = true

			intSum.Add(intSum, big.NewInt(v))
		default:
			// ignore non-number
		}
	}

	// handle float64 or intSum bigger than the maximum of int64.
	if hasFloat64 || !intSum.IsInt64() {
		// ignore accuracy because precision is set upon assigning big.Float.
		res, _ := floatSum.Add(floatSum, new(big.Float).SetInt(intSum)).Float64()

		return res
	}

	return narrowInt(intSum.Int64(), hasInt64)
}

// MultiplyNumbers returns the product of numbers with the same type widening rules as SumNumbers.
// It ignores non-number values; the product of no numbers is int32(1).
func MultiplyNumbers(vs ...any) any {
	intProduct := big.NewInt(1)
	floatProduct := new(big.Float).SetPrec(2048).SetInt64(1)

	var hasFloat64, hasInt64 bool

	for _, v := range vs {
		switch v := v.(type) {
		case float64:
			hasFloat64 = true

			floatProduct.Mul(floatProduct, big.NewFloat(v).SetPrec(2048))
		case int32:
			intProduct.Mul(intProduct, big.NewInt(int64(v)))
		case int64:
			hasInt64 = true

			intProduct.Mul(intProduct, big.NewInt(v))
		}
	}

	if hasFloat64 || !intProduct.IsInt64() {
		res, _ := floatProduct.Mul(floatProduct, new(big.Float).SetInt(intProduct)).Float64()

		return res
	}

	return narrowInt(intProduct.Int64(), hasInt64)
}

// ToFloat64 converts a number to float64.
// It returns false for non-number values.
func ToFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// narrowInt returns int32 if the input had no int64 values and the result fits, int64 otherwise.
func narrowInt(v int64, hasInt64 bool) any {
	if !hasInt64 && v <= math.MaxInt32 && v >= math.MinInt32 {
		return int32(v)
	}

	return v
}

// sortByAbs returns a copy of numbers ordered in descending absolute value order
// to compute sum of overflow values then move on to non-overflow values.
func sortByAbs(vs []any) []any {
	res := make([]any, len(vs))
	copy(res, vs)

	abs := func(v any) any {
		if f, ok := ToFloat64(v); ok {
			return math.Abs(f)
		}

		return v
	}

	sort.SliceStable(res, func(i, j int) bool {
		return types.Compare(abs(res[i]), abs(res[j])) == types.Greater
	})

	return res
}
