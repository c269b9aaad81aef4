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

package stages

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/aggregations"
	"github.com/FerretDB/docmap/internal/aggregations/operators"
	"github.com/FerretDB/docmap/internal/aggregations/operators/accumulators"
	"github.com/FerretDB/docmap/internal/types"
)

// group represents $group stage.
//
//	{ $group: {
//		_id: <groupExpression>,
//		<groupBy[0].outputField>: {accumulator0: expression0},
//		...
//		<groupBy[N].outputField>: {accumulatorN: expressionN},
//	}}
type group struct {
	groupExpression operators.Operator
	groupBy         []groupBy
}

// groupBy represents accumulation to apply on the group.
type groupBy struct {
	accumulator accumulators.Accumulator
	outputField string
}

// newGroup creates a new $group stage.
func newGroup(stage bson.D) (Stage, error) {
	fields, ok := stage[0].Value.(bson.D)
	if !ok {
		return nil, aggregations.NewError(
			aggregations.ErrStageGroupInvalidFields,
			"a group's fields must be specified in an object",
			"$group (stage)",
		)
	}

	var groupKey operators.Operator
	var groups []groupBy

	for _, field := range fields {
		if field.Key == "_id" {
			var err error
			if groupKey, err = operators.NewExpression(field.Value); err != nil {
				return nil, err
			}

			continue
		}

		accumulator, err := accumulators.NewAccumulator("$group", field.Key, field.Value)
		if err != nil {
			return nil, err
		}

		groups = append(groups, groupBy{
			outputField: field.Key,
			accumulator: accumulator,
		})
	}

	if groupKey == nil {
		return nil, aggregations.NewError(
			aggregations.ErrStageGroupMissingID,
			"a group specification must include an _id",
			"$group (stage)",
		)
	}

	return &group{
		groupExpression: groupKey,
		groupBy:         groups,
	}, nil
}

// Process implements Stage interface.
//
// Groups are returned in the order their first documents were seen.
func (g *group) Process(ctx context.Context, iter types.DocumentsIterator) (types.DocumentsIterator, error) {
	docs, err := consume(ctx, iter)
	if err != nil {
		return nil, err
	}

	groupedDocuments, err := g.groupDocuments(docs)
	if err != nil {
		return nil, err
	}

	res := make([]bson.D, 0, len(groupedDocuments))

	for _, groupedDocument := range groupedDocuments {
		doc := bson.D{{Key: "_id", Value: groupedDocument.groupID}}

		for _, accumulation := range g.groupBy {
			out, err := accumulation.accumulator.Accumulate(sliceIterator(groupedDocument.documents))
			if err != nil {
				return nil, err
			}

			doc = types.Set(doc, accumulation.outputField, out)
		}

		res = append(res, doc)
	}

	return sliceIterator(res), nil
}

// groupDocuments groups documents by group expression.
func (g *group) groupDocuments(in []bson.D) ([]groupedDocuments, error) {
	var m groupMap

	for _, doc := range in {
		groupKey, err := g.groupExpression.Process(doc)
		if err != nil {
			return nil, err
		}

		if aggregations.IsMissing(groupKey) {
			groupKey = nil
		}

		m.addOrAppend(groupKey, doc)
	}

	return m.docs, nil
}

// groupedDocuments contains group key and the documents for that group.
type groupedDocuments struct {
	groupID   any
	documents []bson.D
}

// groupMap holds groups of documents.
type groupMap struct {
	docs []groupedDocuments
}

// addOrAppend adds a groupID documents pair if the groupID does not exist,
// if the groupID exists it appends the documents to the slice.
func (m *groupMap) addOrAppend(groupKey any, docs ...bson.D) {
	for i, g := range m.docs {
		if types.Compare(groupKey, g.groupID) == types.Equal {
			m.docs[i].documents = append(m.docs[i].documents, docs...)
			return
		}
	}

	m.docs = append(m.docs, groupedDocuments{
		groupID:   groupKey,
		documents: docs,
	})
}

// check interfaces
var (
	_ Stage = (*group)(nil)
)
