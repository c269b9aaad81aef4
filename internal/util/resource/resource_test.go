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

package resource

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type tracked struct {
	token *Token
}

func TestTrack(t *testing.T) {
	p := profileFor(reflect.TypeOf((*tracked)(nil)).Elem())
	assert.Equal(t, "docmap/resource.tracked", p.Name())

	before := p.Count()

	obj := &tracked{token: NewToken()}
	Track(obj, obj.token)

	assert.Equal(t, before+1, p.Count())
	assert.Contains(t, obj.token.msg, "*resource.tracked has not been finalized")

	Untrack(obj, obj.token)
	assert.Equal(t, before, p.Count())

	Untrack(obj, obj.token)
	assert.Equal(t, before, p.Count())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	obj := &tracked{token: NewToken()}

	var s string

	other := &tracked{token: NewToken()}

	for name, f := range map[string]func(){
		"OtherToken":   func() { Track(obj, NewToken()) },
		"NilToken":     func() { Track(obj, nil) },
		"NotStruct":    func() { Track(&s, NewToken()) },
		"NeverTracked": func() { Untrack(other, other.token) },
	} {
		f := f
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, f)
		})
	}
}
