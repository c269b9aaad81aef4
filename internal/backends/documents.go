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

package backends

import (
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FerretDB/docmap/internal/aggregations/stages"
	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// StoredDocument is a document prepared for storing by backends
// that keep documents as BSON blobs.
type StoredDocument struct {
	// ID is the value of _id field.
	ID any

	// Key is the binary representation of ID, equal for equal numbers of different types.
	// It is used for uniqueness checks.
	Key []byte

	// Raw is the BSON encoding of the whole document.
	Raw []byte
}

// PrepareDocument adds _id field if it is missing and encodes the document.
func PrepareDocument(doc bson.D) (*StoredDocument, error) {
	id, ok := types.Get(doc, "_id")
	if !ok {
		id = primitive.NewObjectID()
		doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
	}

	if _, ok = id.(bson.A); ok {
		return nil, lazyerrors.New("_id must not be an array")
	}

	key, err := idKey(id)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return &StoredDocument{
		ID:  id,
		Key: key,
		Raw: raw,
	}, nil
}

// idKey returns the binary representation of _id value.
func idKey(id any) ([]byte, error) {
	switch v := id.(type) {
	case int32:
		id = int64(v)
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			id = int64(v)
		}
	}

	t, b, err := bson.MarshalValue(id)
	if err != nil {
		return nil, err
	}

	return append([]byte{byte(t)}, b...), nil
}

// UnmarshalDocument decodes the stored BSON document.
func UnmarshalDocument(b []byte) (bson.D, error) {
	raw := bson.Raw(b)
	if err := raw.Validate(); err != nil {
		return nil, lazyerrors.Error(err)
	}

	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return doc, nil
}

// CompilePipeline parses the pipeline for in-process evaluation.
//
// Invalid pipelines return *Error with ErrorCodePipelineIsInvalid code.
func CompilePipeline(pipeline []bson.D) (*stages.Pipeline, error) {
	p, err := stages.NewPipeline(pipeline)
	if err != nil {
		return nil, NewError(ErrorCodePipelineIsInvalid, err)
	}

	return p, nil
}
