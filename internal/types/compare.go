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

package types

import (
	"bytes"
	"math"
	"math/big"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/constraints"
)

// CompareResult represents the result of a comparison.
type CompareResult int8

// Values match results of comparison functions such as bytes.Compare.
const (
	Equal   CompareResult = 0  // ==
	Less    CompareResult = -1 // <
	Greater CompareResult = 1  // >
)

// typeOrder returns the BSON comparison order rank of the value's type:
// null, numbers, strings, documents, arrays, binary data, ObjectID, booleans, dates, timestamps, regexes.
func typeOrder(v any) int {
	switch v.(type) {
	case primitive.MinKey:
		return 0
	case nil, primitive.Null, primitive.Undefined:
		return 1
	case float64, int32, int64, primitive.Decimal128:
		return 2
	case string, primitive.Symbol:
		return 3
	case bson.D:
		return 4
	case bson.A:
		return 5
	case primitive.Binary:
		return 6
	case primitive.ObjectID:
		return 7
	case bool:
		return 8
	case primitive.DateTime:
		return 9
	case primitive.Timestamp:
		return 10
	case primitive.Regex:
		return 11
	case primitive.MaxKey:
		return 100
	default:
		return 50
	}
}

// Compare compares two BSON values in the BSON sort order.
//
// Numbers of different types are compared by their values,
// documents and arrays are compared element by element.
func Compare(a, b any) CompareResult {
	if ta, tb := typeOrder(a), typeOrder(b); ta != tb {
		return compareOrdered(ta, tb)
	}

	switch a := a.(type) {
	case float64, int32, int64:
		return compareNumbers(a, b)

	case string:
		return compareOrdered(a, b.(string))

	case primitive.Symbol:
		return compareOrdered(string(a), string(b.(primitive.Symbol)))

	case bson.D:
		return compareDocuments(a, b.(bson.D))

	case bson.A:
		return compareArrays(a, b.(bson.A))

	case primitive.Binary:
		b := b.(primitive.Binary)

		if len(a.Data) != len(b.Data) {
			return compareOrdered(len(a.Data), len(b.Data))
		}

		if a.Subtype != b.Subtype {
			return compareOrdered(a.Subtype, b.Subtype)
		}

		return CompareResult(bytes.Compare(a.Data, b.Data))

	case primitive.ObjectID:
		b := b.(primitive.ObjectID)
		return CompareResult(bytes.Compare(a[:], b[:]))

	case bool:
		b := b.(bool)

		switch {
		case a == b:
			return Equal
		case b:
			return Less
		default:
			return Greater
		}

	case primitive.DateTime:
		return compareOrdered(a, b.(primitive.DateTime))

	case primitive.Timestamp:
		b := b.(primitive.Timestamp)

		if a.T != b.T {
			return compareOrdered(a.T, b.T)
		}

		return compareOrdered(a.I, b.I)

	case primitive.Regex:
		b := b.(primitive.Regex)

		if a.Pattern != b.Pattern {
			return compareOrdered(a.Pattern, b.Pattern)
		}

		return compareOrdered(a.Options, b.Options)

	case primitive.Decimal128:
		return compareOrdered(a.String(), b.(primitive.Decimal128).String())

	default:
		// null, MinKey, MaxKey and values of unknown types
		return Equal
	}
}

// compareNumbers compares two BSON numbers of any type.
func compareNumbers(a, b any) CompareResult {
	switch a := a.(type) {
	case float64:
		switch b := b.(type) {
		case float64:
			return compareFloats(a, b)
		case int32:
			return compareFloatInt(a, int64(b))
		case int64:
			return compareFloatInt(a, b)
		}

	case int32:
		switch b := b.(type) {
		case float64:
			return -compareFloatInt(b, int64(a))
		case int32:
			return compareOrdered(a, b)
		case int64:
			return compareOrdered(int64(a), b)
		}

	case int64:
		switch b := b.(type) {
		case float64:
			return -compareFloatInt(b, a)
		case int32:
			return compareOrdered(a, int64(b))
		case int64:
			return compareOrdered(a, b)
		}
	}

	// Decimal128 is ordered among numbers, but compared as equal to everything
	return Equal
}

// compareFloats compares doubles; NaN is less than any other number and equal to itself.
func compareFloats(a, b float64) CompareResult {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return Equal
	case math.IsNaN(a):
		return Less
	case math.IsNaN(b):
		return Greater
	default:
		return compareOrdered(a, b)
	}
}

// compareFloatInt compares double and integer exactly.
func compareFloatInt(a float64, b int64) CompareResult {
	if math.IsNaN(a) {
		return Less
	}

	bigA := new(big.Float).SetFloat64(a)
	bigB := new(big.Float).SetInt64(b)

	return CompareResult(bigA.Cmp(bigB))
}

// compareOrdered compares values of the same type using ==, <, > operators.
func compareOrdered[T constraints.Ordered](a, b T) CompareResult {
	switch {
	case a == b:
		return Equal
	case a < b:
		return Less
	default:
		return Greater
	}
}

// compareDocuments compares documents field by field: first by value type, then by key, then by value.
func compareDocuments(a, b bson.D) CompareResult {
	for i := range a {
		if i == len(b) {
			return Greater
		}

		if res := compareOrdered(typeOrder(a[i].Value), typeOrder(b[i].Value)); res != Equal {
			return res
		}

		if res := compareOrdered(a[i].Key, b[i].Key); res != Equal {
			return res
		}

		if res := Compare(a[i].Value, b[i].Value); res != Equal {
			return res
		}
	}

	return compareOrdered(len(a), len(b))
}

// compareArrays compares arrays element by element.
func compareArrays(a, b bson.A) CompareResult {
	for i := range a {
		if i == len(b) {
			return Greater
		}

		if res := Compare(a[i], b[i]); res != Equal {
			return res
		}
	}

	return compareOrdered(len(a), len(b))
}
