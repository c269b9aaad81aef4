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

	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/iterator"
)

// stageIterator is an iterator that transforms documents of the upstream iterator.
type stageIterator struct {
	ctx      context.Context
	upstream types.DocumentsIterator
	next     func() (bson.D, error)
	done     bool
}

// newStageIterator returns an iterator calling next for every document.
// next returns upstream errors as is, including iterator.ErrIteratorDone.
func newStageIterator(ctx context.Context, upstream types.DocumentsIterator, next func() (bson.D, error)) types.DocumentsIterator {
	return &stageIterator{
		ctx:      ctx,
		upstream: upstream,
		next:     next,
	}
}

// Next implements iterator.Interface.
func (iter *stageIterator) Next() (struct{}, bson.D, error) {
	var unused struct{}

	if iter.done {
		return unused, nil, iterator.ErrIteratorDone
	}

	if err := iter.ctx.Err(); err != nil {
		iter.Close()
		return unused, nil, err
	}

	doc, err := iter.next()
	if err != nil {
		iter.Close()
		return unused, nil, err
	}

	return unused, doc, nil
}

// Close implements iterator.Interface.
func (iter *stageIterator) Close() {
	iter.done = true
	iter.upstream.Close()
}

// sliceIterator returns an iterator over documents.
func sliceIterator(docs []bson.D) types.DocumentsIterator {
	return iterator.Values(iterator.ForSlice(docs))
}

// check interfaces
var (
	_ types.DocumentsIterator = (*stageIterator)(nil)
)
