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

// Package resource tracks object lifetimes to detect leaks.
package resource

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"sync"
	"unsafe"

	"github.com/FerretDB/docmap/internal/util/debugbuild"
)

// Token must be stored in the "token" field of a tracked struct.
type Token struct {
	msg     string
	profile *pprof.Profile
}

// NewToken returns a new Token.
func NewToken() *Token {
	return new(Token)
}

var (
	profilesM sync.Mutex
	profiles  = map[reflect.Type]*pprof.Profile{}
)

// profileFor returns the pprof profile for the given type, creating it if needed.
func profileFor(t reflect.Type) *pprof.Profile {
	profilesM.Lock()
	defer profilesM.Unlock()

	if p := profiles[t]; p != nil {
		return p
	}

	name := "docmap/" + t.String()

	p := pprof.Lookup(name)
	if p == nil {
		p = pprof.NewProfile(name)
	}

	profiles[t] = p

	return p
}

// Track starts tracking obj.
//
// Obj must be a pointer to a struct with a "token" field holding the given token.
// The program panics if obj is garbage collected before Untrack is called.
// Live objects are listed in the "docmap/<type>" pprof profile.
func Track[T any](obj *T, token *Token) {
	validate(obj, token)

	// the profile holds the token, not obj, so the finalizer can run
	token.profile = profileFor(reflect.TypeOf(obj).Elem())
	token.profile.Add(token, 1)

	token.msg = fmt.Sprintf("%T has not been finalized", obj)
	if debugbuild.Enabled {
		token.msg += "\nObject created by " + string(debug.Stack())
	}

	runtime.SetFinalizer(obj, func(*T) {
		panic(token.msg)
	})
}

// Untrack stops tracking obj. Repeated calls are no-ops.
func Untrack[T any](obj *T, token *Token) {
	validate(obj, token)

	if token.profile == nil {
		panic("object is not tracked")
	}

	runtime.SetFinalizer(obj, nil)
	token.profile.Remove(token)
}

// validate panics if token is not stored in obj's "token" field.
func validate(obj any, token *Token) {
	if token == nil {
		panic("token must not be nil")
	}

	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("obj must be a non-nil pointer to struct, got %T", obj))
	}

	f := v.Elem().FieldByName("token")
	if f.Kind() != reflect.Pointer || f.UnsafePointer() != unsafe.Pointer(token) {
		panic("token must be stored in the token field of obj")
	}
}
