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
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/query"
)

// Stage is a single stage of the aggregation pipeline.
//
// Stages are created by functions of this package only.
type Stage interface {
	// Name returns the stage name, like "$group".
	Name() string

	// Document returns the native encoding of the stage.
	Document() bson.D

	sealed()
}

// simpleStage is a stage with a precomputed value.
type simpleStage struct {
	value any
	name  string
}

// Name implements Stage.
func (s *simpleStage) Name() string {
	return s.name
}

// Document implements Stage.
func (s *simpleStage) Document() bson.D {
	return bson.D{{Key: s.name, Value: s.value}}
}

// sealed implements Stage.
func (s *simpleStage) sealed() {}

// NewMatch returns a new $match stage; an empty filter matches all documents.
func NewMatch(filter query.Filter) Stage {
	return &simpleStage{name: "$match", value: filter.Document()}
}

// SortKey is a field with sort order.
type SortKey struct {
	field string
	order int32
}

// Ascending returns a key sorting by the field in ascending order.
func Ascending(field string) SortKey {
	return SortKey{field: field, order: 1}
}

// Descending returns a key sorting by the field in descending order.
func Descending(field string) SortKey {
	return SortKey{field: field, order: -1}
}

// NewSort returns a new $sort stage.
// Keys are applied in the given order; the sort is stable.
func NewSort(keys ...SortKey) (Stage, error) {
	if len(keys) == 0 {
		return nil, newInvalidExpressionError("$sort", "at least one key is required")
	}

	doc := make(bson.D, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))

	for _, k := range keys {
		if err := validateFieldPath("$sort", k.field); err != nil {
			return nil, err
		}

		if k.order != 1 && k.order != -1 {
			return nil, newInvalidExpressionError("$sort", fmt.Sprintf("invalid order for field %q", k.field))
		}

		if _, ok := seen[k.field]; ok {
			return nil, newInvalidExpressionError("$sort", fmt.Sprintf("duplicate key %q", k.field))
		}

		seen[k.field] = struct{}{}

		doc = append(doc, bson.E{Key: k.field, Value: k.order})
	}

	return &simpleStage{name: "$sort", value: doc}, nil
}

// NewLimit returns a new $limit stage; n must be positive.
func NewLimit(n int64) (Stage, error) {
	if n <= 0 {
		return nil, newInvalidExpressionError("$limit", fmt.Sprintf("limit must be positive, got %d", n))
	}

	return &simpleStage{name: "$limit", value: n}, nil
}

// NewSkip returns a new $skip stage; n must not be negative.
func NewSkip(n int64) (Stage, error) {
	if n < 0 {
		return nil, newInvalidExpressionError("$skip", fmt.Sprintf("skip must not be negative, got %d", n))
	}

	return &simpleStage{name: "$skip", value: n}, nil
}

// UnwindOpts represents $unwind stage options.
type UnwindOpts struct {
	// IncludeArrayIndex is the name of the output field holding the array index.
	IncludeArrayIndex string

	// PreserveNullAndEmptyArrays keeps documents with missing, null, or empty array fields.
	PreserveNullAndEmptyArrays bool

	// to prevent unkeyed literals
	_ struct{}
}

// NewUnwind returns a new $unwind stage that outputs a document for each element of the array field.
// Opts may be nil.
func NewUnwind(field string, opts *UnwindOpts) (Stage, error) {
	if err := validateFieldPath("$unwind", field); err != nil {
		return nil, err
	}

	if opts == nil || (opts.IncludeArrayIndex == "" && !opts.PreserveNullAndEmptyArrays) {
		return &simpleStage{name: "$unwind", value: "$" + field}, nil
	}

	doc := bson.D{{Key: "path", Value: "$" + field}}

	if opts.IncludeArrayIndex != "" {
		if err := validateOutputName("$unwind", opts.IncludeArrayIndex); err != nil {
			return nil, err
		}

		doc = append(doc, bson.E{Key: "includeArrayIndex", Value: opts.IncludeArrayIndex})
	}

	if opts.PreserveNullAndEmptyArrays {
		doc = append(doc, bson.E{Key: "preserveNullAndEmptyArrays", Value: true})
	}

	return &simpleStage{name: "$unwind", value: doc}, nil
}

// NewCount returns a new $count stage that outputs a single document
// with the number of input documents in the given field.
func NewCount(field string) (Stage, error) {
	if err := validateOutputName("$count", field); err != nil {
		return nil, err
	}

	if field == "_id" {
		return nil, newInvalidExpressionError("$count", "field must not be named _id")
	}

	return &simpleStage{name: "$count", value: field}, nil
}

// RawStage returns a stage with the given native encoding.
// It is not validated beyond its shape: a single field named after the stage.
func RawStage(doc bson.D) (Stage, error) {
	if len(doc) != 1 {
		return nil, newInvalidExpressionError("", fmt.Sprintf("stage must have exactly one field, got %d", len(doc)))
	}

	name := doc[0].Key
	if !strings.HasPrefix(name, "$") {
		return nil, newInvalidExpressionError(name, "stage name must start with '$'")
	}

	return &simpleStage{name: name, value: doc[0].Value}, nil
}

// check interfaces
var (
	_ Stage = (*simpleStage)(nil)
)
