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

package mapping

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slices"
)

// Encode encodes the struct (or pointer to struct) described by d into a document.
//
// The identifier is the first field, other fields follow the declaration order.
// Optional fields with nil values are omitted.
// time.Time values become BSON dates, types implementing encoding.TextMarshaler become strings.
func Encode(d Describer, v any) (bson.D, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("mapping: Encode got nil %T", v)
		}

		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("mapping: Encode needs a struct, got %T", v)
	}

	enc := &encoder{d: d}

	return enc.encodeStruct(rv)
}

// encoder holds the state of a single Encode call.
type encoder struct {
	d Describer
}

// encodeStruct encodes struct fields described by the descriptor.
func (enc *encoder) encodeStruct(rv reflect.Value) (bson.D, error) {
	desc, err := enc.d.Descriptor(rv.Type())
	if err != nil {
		return nil, err
	}

	res := make(bson.D, 0, len(desc.Fields))

	if id := desc.ID(); id != nil {
		v, err := enc.encodeValue(rv.FieldByIndex(id.Index))
		if err != nil {
			return nil, fmt.Errorf("mapping: %s.%s: %w", desc.Type, id.GoName, err)
		}

		if v != nil {
			res = append(res, bson.E{Key: IDField, Value: v})
		}
	}

	for _, f := range desc.Fields {
		if f.ID {
			continue
		}

		fv := rv.FieldByIndex(f.Index)

		if f.Optional && isNil(fv) {
			continue
		}

		v, err := enc.encodeValue(fv)
		if err != nil {
			return nil, fmt.Errorf("mapping: %s.%s: %w", desc.Type, f.GoName, err)
		}

		res = append(res, bson.E{Key: f.Name, Value: v})
	}

	return res, nil
}

// encodeValue converts the Go value to a document value.
func (enc *encoder) encodeValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	t := v.Type()

	switch {
	case t == timeType:
		return primitive.NewDateTimeFromTime(v.Interface().(time.Time)), nil

	case t.PkgPath() == primitivePkgPath, t == documentType, t == mapType, t == arrayType:
		return v.Interface(), nil

	case t.Implements(textMarshalerType) && t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface:
		b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, err
		}

		return string(b), nil
	}

	switch t.Kind() { //nolint:exhaustive // other kinds are stored as is
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}

		return enc.encodeValue(v.Elem())

	case reflect.Struct:
		return enc.encodeStruct(v)

	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}

		if t.Elem().Kind() == reflect.Uint8 {
			return v.Bytes(), nil
		}

		fallthrough

	case reflect.Array:
		res := make(bson.A, v.Len())

		for i := 0; i < v.Len(); i++ {
			e, err := enc.encodeValue(v.Index(i))
			if err != nil {
				return nil, err
			}

			res[i] = e
		}

		return res, nil

	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}

		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type %s", t.Key())
		}

		keys := v.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return strings.Compare(a.String(), b.String())
		})

		res := make(bson.D, 0, len(keys))

		for _, k := range keys {
			e, err := enc.encodeValue(v.MapIndex(k))
			if err != nil {
				return nil, err
			}

			res = append(res, bson.E{Key: k.String(), Value: e})
		}

		return res, nil

	default:
		return v.Interface(), nil
	}
}

// isNil returns true for nil pointers, interfaces, slices and maps.
func isNil(v reflect.Value) bool {
	switch v.Kind() { //nolint:exhaustive // other kinds can't be nil
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return v.IsNil()
	default:
		return false
	}
}
