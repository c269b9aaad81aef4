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
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/types"
	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
	"github.com/FerretDB/docmap/internal/util/resource"
)

// Source reads encoded documents one by one, like *sql.Rows, pgx.Rows or *mongo.Cursor.
type Source interface {
	// Next advances to the next document; it returns false at the end or on error.
	Next(ctx context.Context) bool

	// Raw returns the BSON encoding of the current document.
	Raw() ([]byte, error)

	// Err returns the error that stopped Next, if any.
	Err() error

	// Close releases the source; ctx is not canceled.
	Close(ctx context.Context)
}

// sourceIterator implements types.DocumentsIterator over Source.
//
//nolint:vet // for readability
type sourceIterator struct {
	ctx context.Context

	m   sync.Mutex
	src Source // nil after close
	err error  // terminal error

	token *resource.Token
}

// NewSourceIterator returns an iterator that decodes documents of src.
//
// The source is closed on the end, on the first error, or by the iterator's Close.
// After an error, Next keeps returning it.
// Nil src returns an already done iterator.
func NewSourceIterator(ctx context.Context, src Source) types.DocumentsIterator {
	iter := &sourceIterator{
		ctx:   ctx,
		src:   src,
		token: resource.NewToken(),
	}

	if src == nil {
		iter.err = iterator.ErrIteratorDone
		return iter
	}

	resource.Track(iter, iter.token)

	return iter
}

// Next implements iterator.Interface.
func (iter *sourceIterator) Next() (struct{}, bson.D, error) {
	iter.m.Lock()
	defer iter.m.Unlock()

	var unused struct{}

	if iter.err != nil {
		return unused, nil, iter.err
	}

	if err := context.Cause(iter.ctx); err != nil {
		return unused, nil, iter.stop(lazyerrors.Error(err))
	}

	if !iter.src.Next(iter.ctx) {
		if err := iter.src.Err(); err != nil {
			return unused, nil, iter.stop(lazyerrors.Error(err))
		}

		return unused, nil, iter.stop(iterator.ErrIteratorDone)
	}

	b, err := iter.src.Raw()
	if err != nil {
		return unused, nil, iter.stop(lazyerrors.Error(err))
	}

	doc, err := UnmarshalDocument(b)
	if err != nil {
		return unused, nil, iter.stop(err)
	}

	return unused, doc, nil
}

// Close implements iterator.Interface.
func (iter *sourceIterator) Close() {
	iter.m.Lock()
	defer iter.m.Unlock()

	iter.stop(iterator.ErrIteratorDone)
}

// stop sets the terminal error if it is not set yet, closes the source, and returns the terminal error.
//
// The caller must hold the mutex.
func (iter *sourceIterator) stop(err error) error {
	if iter.err == nil {
		iter.err = err
	}

	if iter.src != nil {
		iter.src.Close(context.WithoutCancel(iter.ctx))
		iter.src = nil

		resource.Untrack(iter, iter.token)
	}

	return iter.err
}

// check interfaces
var (
	_ types.DocumentsIterator = (*sourceIterator)(nil)
)
