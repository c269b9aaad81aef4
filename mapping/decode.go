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
	"math"
	"reflect"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	timeType            = reflect.TypeOf(time.Time{})
	documentType        = reflect.TypeOf(bson.D{})
	mapType             = reflect.TypeOf(bson.M{})
	arrayType           = reflect.TypeOf(bson.A{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	textMarshalerType   = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	primitivePkgPath    = reflect.TypeOf(primitive.ObjectID{}).PkgPath()
)

// Decode decodes the document into the value pointed to by v.
//
// v could be a pointer to a struct described by d, to bson.D, or to bson.M.
// Document fields are matched to struct fields by name; the order does not matter.
// The document is decoded into a fresh value that is stored into *v only on success,
// so *v is never partially populated.
// Mapping failures are returned as *DecodeError.
func Decode(d Describer, doc bson.D, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("mapping: Decode needs a non-nil pointer, got %T", v)
	}

	dec := &decoder{
		d:    d,
		root: rv.Type().Elem(),
	}

	fresh := reflect.New(dec.root).Elem()
	if err := dec.decodeValue("", doc, fresh, nil); err != nil {
		return err
	}

	rv.Elem().Set(fresh)

	return nil
}

// decoder holds the state of a single Decode call.
type decoder struct {
	d    Describer
	root reflect.Type
}

// fail returns DecodeError for the path.
func (dec *decoder) fail(path string, err error) error {
	return &DecodeError{
		Type: dec.root,
		Path: path,
		Err:  err,
	}
}

// mismatch returns DecodeError for a value that can't be stored into the type.
func (dec *decoder) mismatch(path string, v any, t reflect.Type) error {
	return dec.fail(path, fmt.Errorf("%w: can't store %T into %s", ErrTypeMismatch, v, t))
}

// decodeValue decodes v into dst.
// valueType is the concrete type for interface destinations, if known.
func (dec *decoder) decodeValue(path string, v any, dst reflect.Value, valueType reflect.Type) error {
	t := dst.Type()

	switch v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		dst.Set(reflect.Zero(t))
		return nil
	}

	rv := reflect.ValueOf(v)

	// same type, including driver types like primitive.ObjectID and bson.D
	if rv.Type() == t {
		dst.Set(rv)
		return nil
	}

	switch {
	case t == mapType:
		doc, ok := v.(bson.D)
		if !ok {
			return dec.mismatch(path, v, t)
		}

		m := make(bson.M, len(doc))
		for _, e := range doc {
			m[e.Key] = e.Value
		}

		dst.Set(reflect.ValueOf(m))

		return nil

	case t == timeType:
		switch v := v.(type) {
		case primitive.DateTime:
			dst.Set(reflect.ValueOf(v.Time().UTC()))
		case primitive.Timestamp:
			dst.Set(reflect.ValueOf(time.Unix(int64(v.T), 0).UTC()))
		default:
			return dec.mismatch(path, v, t)
		}

		return nil

	case t.Kind() != reflect.Pointer && reflect.PointerTo(t).Implements(textUnmarshalerType):
		if s, ok := v.(string); ok {
			if err := dst.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
				return dec.fail(path, fmt.Errorf("%w: %s", ErrTypeMismatch, err))
			}

			return nil
		}
	}

	switch t.Kind() { //nolint:exhaustive // other kinds are handled by the assignability check
	case reflect.Pointer:
		elem := reflect.New(t.Elem())
		if err := dec.decodeValue(path, v, elem.Elem(), valueType); err != nil {
			return err
		}

		dst.Set(elem)

	case reflect.Interface:
		if valueType != nil {
			elem := reflect.New(valueType).Elem()
			if err := dec.decodeValue(path, v, elem, nil); err != nil {
				return err
			}

			dst.Set(elem)

			return nil
		}

		if !rv.Type().AssignableTo(t) {
			return dec.mismatch(path, v, t)
		}

		dst.Set(rv)

	case reflect.Struct:
		doc, ok := v.(bson.D)
		if !ok {
			return dec.mismatch(path, v, t)
		}

		return dec.decodeStruct(path, doc, dst)

	case reflect.Slice:
		if bin, ok := v.(primitive.Binary); ok && t.Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(append([]byte{}, bin.Data...))
			return nil
		}

		arr, ok := v.(bson.A)
		if !ok {
			return dec.mismatch(path, v, t)
		}

		s := reflect.MakeSlice(t, len(arr), len(arr))
		for i, e := range arr {
			if err := dec.decodeValue(join(path, strconv.Itoa(i)), e, s.Index(i), valueType); err != nil {
				return err
			}
		}

		dst.Set(s)

	case reflect.Array:
		arr, ok := v.(bson.A)
		if !ok || len(arr) > t.Len() {
			return dec.mismatch(path, v, t)
		}

		a := reflect.New(t).Elem()
		for i, e := range arr {
			if err := dec.decodeValue(join(path, strconv.Itoa(i)), e, a.Index(i), valueType); err != nil {
				return err
			}
		}

		dst.Set(a)

	case reflect.Map:
		doc, ok := v.(bson.D)
		if !ok || t.Key().Kind() != reflect.String {
			return dec.mismatch(path, v, t)
		}

		m := reflect.MakeMapWithSize(t, len(doc))
		for _, e := range doc {
			elem := reflect.New(t.Elem()).Elem()
			if err := dec.decodeValue(join(path, e.Key), e.Value, elem, valueType); err != nil {
				return err
			}

			m.SetMapIndex(reflect.ValueOf(e.Key).Convert(t.Key()), elem)
		}

		dst.Set(m)

	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			return dec.mismatch(path, v, t)
		}

		dst.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := toInt64(v)
		if !ok || dst.OverflowInt(i) {
			return dec.mismatch(path, v, t)
		}

		dst.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, ok := toInt64(v)
		if !ok || i < 0 || dst.OverflowUint(uint64(i)) {
			return dec.mismatch(path, v, t)
		}

		dst.SetUint(uint64(i))

	case reflect.Float32, reflect.Float64:
		var f float64

		switch v := v.(type) {
		case float64:
			f = v
		case int32:
			f = float64(v)
		case int64:
			f = float64(v)
		default:
			return dec.mismatch(path, v, t)
		}

		if dst.OverflowFloat(f) {
			return dec.mismatch(path, v, t)
		}

		dst.SetFloat(f)

	case reflect.String:
		switch v := v.(type) {
		case string:
			dst.SetString(v)
		case primitive.Symbol:
			dst.SetString(string(v))
		default:
			return dec.mismatch(path, v, t)
		}

	default:
		if !rv.Type().AssignableTo(t) {
			return dec.mismatch(path, v, t)
		}

		dst.Set(rv)
	}

	return nil
}

// decodeStruct decodes the document into the struct value by field names.
func (dec *decoder) decodeStruct(path string, doc bson.D, dst reflect.Value) error {
	desc, err := dec.d.Descriptor(dst.Type())
	if err != nil {
		return dec.fail(path, err)
	}

	for i := range desc.Fields {
		f := &desc.Fields[i]
		fieldPath := join(path, f.Name)

		v, ok := lookupField(doc, f)
		if !ok {
			if f.Optional {
				continue
			}

			return dec.fail(fieldPath, ErrMissingField)
		}

		if err := dec.decodeValue(fieldPath, v, dst.FieldByIndex(f.Index), f.ValueType); err != nil {
			return err
		}
	}

	return nil
}

// lookupField returns the document value of the field by its name or aliases.
func lookupField(doc bson.D, f *Field) (any, bool) {
	for _, name := range append([]string{f.Name}, f.Aliases...) {
		for _, e := range doc {
			if e.Key == name {
				return e.Value, true
			}
		}
	}

	return nil, false
}

// toInt64 converts a BSON number to int64.
// Doubles are converted only if they are integral and within the range.
func toInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}

		return int64(v), true
	default:
		return 0, false
	}
}

// join returns the dot-separated path.
func join(path, name string) string {
	if path == "" {
		return name
	}

	return path + "." + name
}
