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

package types

import (
	"errors"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrPathElementEmpty is returned by NewPathFromString when the path contains an empty element.
var ErrPathElementEmpty = errors.New("path element must not be empty")

// Path represents the field path type. It should be used wherever we work with paths or dot notation.
// Path should be stored and passed as a value.
// Its methods return new values, not modifying the receiver's state.
type Path struct {
	e []string
}

// NewPathFromString returns Path from path string.
// Path string should contain fields separated with '.'.
func NewPathFromString(s string) (Path, error) {
	elements := strings.Split(s, ".")

	for _, e := range elements {
		if e == "" {
			return Path{}, ErrPathElementEmpty
		}
	}

	return Path{e: elements}, nil
}

// String returns a dot-separated string representation of the path.
func (p Path) String() string {
	return strings.Join(p.e, ".")
}

// Len returns path length.
func (p Path) Len() int {
	return len(p.e)
}

// Slice returns path values array.
func (p Path) Slice() []string {
	return append([]string(nil), p.e...)
}

// Prefix returns the first path element.
func (p Path) Prefix() string {
	return p.e[0]
}

// Suffix returns the last path element.
func (p Path) Suffix() string {
	return p.e[len(p.e)-1]
}

// TrimPrefix returns a path without the first element.
func (p Path) TrimPrefix() Path {
	return Path{e: p.e[1:]}
}

// GetByPath returns the value at the given path without array traversal;
// numeric path elements index arrays.
func GetByPath(doc bson.D, path Path) (any, bool) {
	var v any = doc

	for _, e := range path.e {
		switch c := v.(type) {
		case bson.D:
			var ok bool
			if v, ok = Get(c, e); !ok {
				return nil, false
			}

		case bson.A:
			i, err := strconv.Atoi(e)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}

			v = c[i]

		default:
			return nil, false
		}
	}

	return v, true
}
