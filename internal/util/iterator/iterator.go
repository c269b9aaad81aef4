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

// Package iterator describes a generic Iterator interface and related utilities.
package iterator

import "errors"

// ErrIteratorDone is returned when the iterator is read to the end or closed.
var ErrIteratorDone = errors.New("iterator is read to the end or closed")

// Interface is an iterator interface.
type Interface[K, V any] interface {
	// Next returns the next key/value pair, where the key is a slice index, a document number, etc,
	// and the value is the slice element, the next document, etc.
	//
	// Once the iterator is exhausted or closed, Next returns possibly wrapped ErrIteratorDone.
	// Every further call returns the same error, it never restarts.
	// Other errors are implementation-specific.
	Next() (K, V, error)

	// Close releases resources held by the iterator.
	// It may be called multiple times, and after Next returned an error.
	Close()
}

// NextFunc is a part of Interface for the Next method.
type NextFunc[K, V any] func() (K, V, error)

// funcIterator implements Interface for a NextFunc.
type funcIterator[K, V any] struct {
	f    NextFunc[K, V]
	done bool
}

// ForFunc returns an iterator for the given function.
//
// Once f returns an error, it is not called again; ErrIteratorDone is returned instead.
func ForFunc[K, V any](f NextFunc[K, V]) Interface[K, V] {
	return &funcIterator[K, V]{
		f: f,
	}
}

// Next implements Interface.
func (iter *funcIterator[K, V]) Next() (K, V, error) {
	if iter.done {
		var k K
		var v V

		return k, v, ErrIteratorDone
	}

	k, v, err := iter.f()
	if err != nil {
		iter.done = true
	}

	return k, v, err
}

// Close implements Interface.
func (iter *funcIterator[K, V]) Close() {
	iter.done = true
}

// check interfaces
var (
	_ Interface[any, any] = (*funcIterator[any, any])(nil)
)
