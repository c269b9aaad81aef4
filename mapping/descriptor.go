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

// Package mapping maps Go structs to documents and back.
//
// A Descriptor is built once per struct type from `docmap` struct tags:
//
//	type Sale struct {
//		ID       primitive.ObjectID `docmap:",id"`
//		Item     string
//		Price    int64  `docmap:"price"`
//		Comment  string `docmap:"comment,optional"`
//		Total    int64  `docmap:"total,alias=totalPrice"`
//		internal int    // unexported fields are skipped
//		Skipped  int    `docmap:"-"`
//	}
//
// Untagged fields use the lower camel case field name.
// The identifier field is stored as `_id`.
package mapping

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// IDField is the document field name of the identifier.
const IDField = "_id"

// Field describes a struct field mapped to a document field.
type Field struct {
	// ValueType is the concrete type decoded into an interface field; nil stores the raw driver value.
	ValueType reflect.Type

	// Type is the static type of the struct field.
	Type reflect.Type

	// Name is the document field name; it is IDField for the identifier.
	Name string

	// GoName is the struct field name.
	GoName string

	// Aliases are additional document field names accepted by Decode.
	Aliases []string

	// Index is the struct field index for reflect.Value.FieldByIndex.
	Index []int

	// ID is true for the identifier field.
	ID bool

	// Optional fields may be absent from decoded documents.
	Optional bool
}

// Descriptor describes how a Go struct type maps to documents.
type Descriptor struct {
	// Type is the struct type.
	Type reflect.Type

	// Collection is the default collection name for the type.
	Collection string

	// Fields are mapped fields in the declaration order.
	Fields []Field
}

// ID returns the identifier field, or nil if the type has none.
func (d *Descriptor) ID() *Field {
	for i := range d.Fields {
		if d.Fields[i].ID {
			return &d.Fields[i]
		}
	}

	return nil
}

// Field returns the field with the given document name or alias, or nil.
func (d *Descriptor) Field(name string) *Field {
	for i := range d.Fields {
		f := &d.Fields[i]

		if f.Name == name {
			return f
		}

		for _, a := range f.Aliases {
			if a == name {
				return f
			}
		}
	}

	return nil
}

// validate checks descriptor invariants.
func (d *Descriptor) validate() error {
	if d.Type == nil || d.Type.Kind() != reflect.Struct {
		return fmt.Errorf("mapping: descriptor type must be a struct, got %v", d.Type)
	}

	seen := make(map[string]string, len(d.Fields))
	var ids int

	for _, f := range d.Fields {
		if f.ID {
			ids++
		}

		for _, name := range append([]string{f.Name}, f.Aliases...) {
			if name == "" {
				return fmt.Errorf("mapping: %s: field %s has an empty name", d.Type, f.GoName)
			}

			if prev, ok := seen[name]; ok {
				return fmt.Errorf("mapping: %s: fields %s and %s both map to %q", d.Type, prev, f.GoName, name)
			}

			seen[name] = f.GoName
		}

		if len(f.Index) == 0 {
			return fmt.Errorf("mapping: %s: field %s has no index", d.Type, f.GoName)
		}
	}

	if ids > 1 {
		return fmt.Errorf("mapping: %s: %d identifier fields", d.Type, ids)
	}

	return nil
}

// collectionNamer is implemented by types with a custom collection name.
type collectionNamer interface {
	CollectionName() string
}

// newDescriptor builds a descriptor from struct tags.
// valueTypes maps struct field names to value types of interface fields.
func newDescriptor(t reflect.Type, valueTypes map[string]reflect.Type) (*Descriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("mapping: %s is not a struct", t)
	}

	d := &Descriptor{
		Type:       t,
		Collection: collectionName(t),
	}

	var explicitID bool

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get("docmap")
		if tag == "-" {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")

		f := Field{
			Type:      sf.Type,
			Name:      name,
			GoName:    sf.Name,
			Index:     sf.Index,
			ValueType: valueTypes[sf.Name],
		}

		if f.Name == "" {
			f.Name = lowerCamel(sf.Name)
		}

		for _, opt := range strings.Split(opts, ",") {
			switch {
			case opt == "":
			case opt == "id":
				f.ID = true
				explicitID = true
			case opt == "optional":
				f.Optional = true
			case strings.HasPrefix(opt, "alias="):
				f.Aliases = append(f.Aliases, strings.TrimPrefix(opt, "alias="))
			default:
				return nil, fmt.Errorf("mapping: %s: field %s: unknown tag option %q", t, sf.Name, opt)
			}
		}

		switch sf.Type.Kind() { //nolint:exhaustive // other kinds are required by default
		case reflect.Pointer, reflect.Slice, reflect.Map:
			f.Optional = true
		}

		d.Fields = append(d.Fields, f)
	}

	if !explicitID {
		for i := range d.Fields {
			if n := d.Fields[i].GoName; n == "ID" || n == "Id" {
				d.Fields[i].ID = true
				break
			}
		}
	}

	for i := range d.Fields {
		if d.Fields[i].ID {
			d.Fields[i].Name = IDField
		}
	}

	if err := d.validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// collectionName returns the collection name of the type.
func collectionName(t reflect.Type) string {
	if n, ok := reflect.New(t).Interface().(collectionNamer); ok {
		return n.CollectionName()
	}

	name, _, _ := strings.Cut(t.Name(), "[")

	return strings.ToLower(name)
}

// lowerCamel converts Go field name to the document field name:
// "TotalPrice" becomes "totalPrice", "URLPath" becomes "urlPath", "ID" becomes "id".
func lowerCamel(s string) string {
	r := []rune(s)

	var n int
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}

	switch {
	case n == 0:
		return s
	case n == 1 || n == len(r):
		// lower all
	default:
		// keep the last upper rune as the start of the next word
		n--
	}

	for i := 0; i < n; i++ {
		r[i] = unicode.ToLower(r[i])
	}

	return string(r)
}
