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

// Package query provides filters for document queries and $match stages.
//
// A Filter is an immutable value; combine filters with And and Or.
// The zero Filter matches all documents.
package query

import (
	"go.mongodb.org/mongo-driver/bson"
)

// Filter is a query predicate in the native filter encoding.
type Filter struct {
	doc bson.D
}

// field returns a filter with a single field condition {field: {op: value}}.
func field(name, op string, value any) Filter {
	return Filter{doc: bson.D{{Key: name, Value: bson.D{{Key: op, Value: value}}}}}
}

// Eq matches documents where the field equals the value.
// If the field is an array, any element may be equal.
func Eq(name string, value any) Filter {
	return field(name, "$eq", value)
}

// Ne matches documents where the field does not equal the value, including documents without the field.
func Ne(name string, value any) Filter {
	return field(name, "$ne", value)
}

// Gt matches documents where the field is greater than the value.
func Gt(name string, value any) Filter {
	return field(name, "$gt", value)
}

// Gte matches documents where the field is greater than or equal to the value.
func Gte(name string, value any) Filter {
	return field(name, "$gte", value)
}

// Lt matches documents where the field is less than the value.
func Lt(name string, value any) Filter {
	return field(name, "$lt", value)
}

// Lte matches documents where the field is less than or equal to the value.
func Lte(name string, value any) Filter {
	return field(name, "$lte", value)
}

// In matches documents where the field equals any of the values.
func In(name string, values ...any) Filter {
	return field(name, "$in", bson.A(append([]any{}, values...)))
}

// Nin matches documents where the field equals none of the values.
func Nin(name string, values ...any) Filter {
	return field(name, "$nin", bson.A(append([]any{}, values...)))
}

// Exists matches documents that have (or do not have) the field.
func Exists(name string, exists bool) Filter {
	return field(name, "$exists", exists)
}

// And matches documents that satisfy all filters.
// Empty filters are skipped; And of nothing matches all documents.
func And(filters ...Filter) Filter {
	return combine("$and", filters)
}

// Or matches documents that satisfy at least one filter.
// Empty filters are skipped; Or of nothing matches all documents.
func Or(filters ...Filter) Filter {
	return combine("$or", filters)
}

// combine joins non-empty filters with a logical operator.
func combine(op string, filters []Filter) Filter {
	arr := make(bson.A, 0, len(filters))

	for _, f := range filters {
		if f.IsEmpty() {
			continue
		}

		arr = append(arr, f.Document())
	}

	switch len(arr) {
	case 0:
		return Filter{}
	case 1:
		return Filter{doc: arr[0].(bson.D)}
	default:
		return Filter{doc: bson.D{{Key: op, Value: arr}}}
	}
}

// IsEmpty returns true if the filter matches all documents.
func (f Filter) IsEmpty() bool {
	return len(f.doc) == 0
}

// Document returns a copy of the filter's native encoding.
// The empty filter is encoded as an empty document.
func (f Filter) Document() bson.D {
	res := make(bson.D, len(f.doc))
	copy(res, f.doc)

	return res
}

// String returns the filter as relaxed Extended JSON.
func (f Filter) String() string {
	b, err := bson.MarshalExtJSON(f.Document(), false, false)
	if err != nil {
		return err.Error()
	}

	return string(b)
}
