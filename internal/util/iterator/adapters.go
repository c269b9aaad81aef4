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

import "sync"

// ForSlice returns an iterator over s, keyed by index.
func ForSlice[V any](s []V) Interface[int, V] {
	var m sync.Mutex
	var i int

	next := func() (int, V, error) {
		m.Lock()
		defer m.Unlock()

		if i >= len(s) {
			var zero V
			return 0, zero, ErrIteratorDone
		}

		i++

		return i - 1, s[i-1], nil
	}

	return ForFunc(next)
}

// keysDropped wraps an iterator and returns empty keys.
type keysDropped[K, V any] struct {
	Interface[K, V]
}

// Values returns an iterator over iter's values. Closing it closes iter.
func Values[K, V any](iter Interface[K, V]) Interface[struct{}, V] {
	return keysDropped[K, V]{iter}
}

// Next implements Interface.
func (kd keysDropped[K, V]) Next() (struct{}, V, error) {
	_, v, err := kd.Interface.Next()
	return struct{}{}, v, err
}
