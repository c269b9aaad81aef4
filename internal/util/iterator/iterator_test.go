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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceValues(t *testing.T) {
	t.Parallel()

	expected := []int{1, 2, 3}
	actual, err := ConsumeValues(ForSlice(expected))
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	actual, err = ConsumeValues(Values(ForSlice(expected)))
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestForFunc(t *testing.T) {
	t.Parallel()

	failure := errors.New("failure")

	var calls int
	iter := ForFunc(func() (struct{}, int, error) {
		calls++
		if calls > 2 {
			return struct{}{}, 0, failure
		}

		return struct{}{}, calls, nil
	})

	_, v, err := iter.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, v, err = iter.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, _, err = iter.Next()
	assert.ErrorIs(t, err, failure)

	_, _, err = iter.Next()
	assert.ErrorIs(t, err, ErrIteratorDone)
	assert.Equal(t, 3, calls)
}

func TestConsumeCount(t *testing.T) {
	t.Parallel()

	n, err := ConsumeCount(ForSlice([]string{"a", "b"}))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	failure := errors.New("failure")
	iter := ForFunc(func() (struct{}, int, error) { return struct{}{}, 0, failure })

	n, err = ConsumeCount(iter)
	assert.ErrorIs(t, err, failure)
	assert.Zero(t, n)

	values, err := ConsumeValues(iter)
	require.NoError(t, err)
	assert.Nil(t, values)
}
