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

// Package testiterator provides a helper for checking iterator implementations.
package testiterator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/docmap/internal/util/iterator"
)

// TestIterator checks that the iterator implementation follows the Interface contract.
//
// newIter must return a new iterator with at least one element each time.
func TestIterator[K, V any](t *testing.T, newIter func() iterator.Interface[K, V]) {
	t.Helper()

	t.Run("Exhausted", func(t *testing.T) {
		t.Parallel()

		iter := newIter()
		defer iter.Close()

		n, err := iterator.ConsumeCount(iter)
		require.NoError(t, err)
		require.Positive(t, n)

		for i := 0; i < 3; i++ {
			_, _, err = iter.Next()
			assert.ErrorIs(t, err, iterator.ErrIteratorDone)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		t.Parallel()

		iter := newIter()
		iter.Close()

		_, _, err := iter.Next()
		assert.ErrorIs(t, err, iterator.ErrIteratorDone)

		// double close is allowed
		iter.Close()
	})
}
