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

package iterator

import (
	"errors"

	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// drain calls f for each value until iter is done, then closes it.
// ErrIteratorDone is not returned; other errors are.
func drain[K, V any](iter Interface[K, V], f func(V)) error {
	defer iter.Close()

	for {
		_, v, err := iter.Next()

		switch {
		case err == nil:
			f(v)
		case errors.Is(err, ErrIteratorDone):
			return nil
		default:
			return err
		}
	}
}

// ConsumeCount reads iter to the end and returns the number of values.
// The iterator is closed.
func ConsumeCount[K, V any](iter Interface[K, V]) (int, error) {
	var n int
	err := drain(iter, func(V) { n++ })

	return n, err
}

// ConsumeValues reads iter to the end and returns all values.
// The iterator is closed. On error, no values are returned.
func ConsumeValues[K, V any](iter Interface[K, V]) ([]V, error) {
	var res []V
	if err := drain(iter, func(v V) { res = append(res, v) }); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return res, nil
}
