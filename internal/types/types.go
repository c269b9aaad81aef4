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

// Package types provides helpers for working with BSON values decoded by the MongoDB driver.
//
// Documents are represented as bson.D (ordered fields), arrays as bson.A.
// Scalar values are driver types:
//
//	float64, string, bool, int32, int64, nil (null),
//	primitive.ObjectID, primitive.DateTime, primitive.Timestamp,
//	primitive.Binary, primitive.Regex, primitive.Decimal128.
package types

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// DocumentsIterator represents an iterator over documents.
type DocumentsIterator = iterator.Interface[struct{}, bson.D]

// Get returns the value of the top-level field with the given key.
func Get(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}

	return nil, false
}

// Has returns true if the document has a top-level field with the given key.
func Has(doc bson.D, key string) bool {
	_, ok := Get(doc, key)
	return ok
}

// Set replaces the value of the top-level field with the given key or appends a new field.
// It returns the updated document.
func Set(doc bson.D, key string, value any) bson.D {
	for i, e := range doc {
		if e.Key == key {
			doc[i].Value = value
			return doc
		}
	}

	return append(doc, bson.E{Key: key, Value: value})
}

// Normalize converts all values of the given document to the types the driver produces when
// decoding BSON (for example, Go int becomes int32 or int64, time.Time becomes primitive.DateTime).
func Normalize(doc bson.D) (bson.D, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	var res bson.D
	if err = bson.Unmarshal(b, &res); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return res, nil
}

// IsNumber returns true if v is a BSON number handled by aggregation arithmetic.
func IsNumber(v any) bool {
	switch v.(type) {
	case float64, int32, int64:
		return true
	default:
		return false
	}
}

// IsNull returns true if v is BSON null or undefined.
func IsNull(v any) bool {
	switch v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return true
	default:
		return false
	}
}
