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

// Package aggregations provides the in-process evaluation of aggregation pipelines
// for backends that do not have a native aggregation framework.
//
// It contains common helpers for field path expressions and numbers.
// Operators, accumulators and stages live in subpackages.
package aggregations

// MissingType represents the value of a missing field.
type MissingType struct{}

// Missing is the result of evaluating a field path that does not exist in the document.
//
// It is different from BSON null: missing fields are omitted from computed documents.
var Missing MissingType

// IsMissing returns true if v is Missing.
func IsMissing(v any) bool {
	_, ok := v.(MissingType)
	return ok
}
