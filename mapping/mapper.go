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
	"fmt"
	"reflect"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/FerretDB/docmap/internal/util/must"
)

// DefaultCacheSize is the number of cached descriptors of a Mapper created with zero cache size.
const DefaultCacheSize = 512

// DefaultMapper is the Mapper used when no other Mapper is configured.
var DefaultMapper = NewMapper(0)

// Describer returns descriptors of struct types.
type Describer interface {
	Descriptor(t reflect.Type) (*Descriptor, error)
}

// Mapper builds and caches descriptors of struct types.
//
// It is safe for concurrent use.
type Mapper struct {
	cache *lru.Cache[reflect.Type, *Descriptor]

	rw         sync.RWMutex
	registered map[reflect.Type]*Descriptor
	valueTypes map[reflect.Type]map[string]reflect.Type
}

// NewMapper creates a new Mapper caching up to cacheSize descriptors built from struct tags.
// Registered descriptors are never evicted.
func NewMapper(cacheSize int) *Mapper {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	return &Mapper{
		cache:      must.NotFail(lru.New[reflect.Type, *Descriptor](cacheSize)),
		registered: map[reflect.Type]*Descriptor{},
		valueTypes: map[reflect.Type]map[string]reflect.Type{},
	}
}

// Register sets an explicit descriptor for the type, overriding struct tags.
func (m *Mapper) Register(desc *Descriptor) error {
	if err := desc.validate(); err != nil {
		return err
	}

	m.rw.Lock()
	defer m.rw.Unlock()

	m.registered[desc.Type] = desc
	m.cache.Remove(desc.Type)

	return nil
}

// SetValueType sets the concrete type decoded into the interface field of the owner struct type.
//
// Without a value type, interface fields receive raw driver values (bson.D, bson.A, int32, etc).
func (m *Mapper) SetValueType(owner reflect.Type, field string, typ reflect.Type) error {
	owner = indirect(owner)

	sf, ok := owner.FieldByName(field)
	if !ok {
		return fmt.Errorf("mapping: %s has no field %s", owner, field)
	}

	if sf.Type.Kind() != reflect.Interface {
		return fmt.Errorf("mapping: %s.%s is not an interface field", owner, field)
	}

	if !typ.AssignableTo(sf.Type) {
		return fmt.Errorf("mapping: %s is not assignable to %s.%s", typ, owner, field)
	}

	m.rw.Lock()
	defer m.rw.Unlock()

	if m.valueTypes[owner] == nil {
		m.valueTypes[owner] = map[string]reflect.Type{}
	}

	m.valueTypes[owner][field] = typ

	if d := m.registered[owner]; d != nil {
		for i := range d.Fields {
			if d.Fields[i].GoName == field {
				d.Fields[i].ValueType = typ
			}
		}
	}

	m.cache.Remove(owner)

	return nil
}

// Descriptor returns the descriptor of the struct type (or pointer to struct type).
func (m *Mapper) Descriptor(t reflect.Type) (*Descriptor, error) {
	t = indirect(t)

	m.rw.RLock()
	d, ok := m.registered[t]
	m.rw.RUnlock()

	if ok {
		return d, nil
	}

	if d, ok = m.cache.Get(t); ok {
		return d, nil
	}

	m.rw.RLock()
	valueTypes := m.valueTypes[t]
	m.rw.RUnlock()

	d, err := newDescriptor(t, valueTypes)
	if err != nil {
		return nil, err
	}

	m.cache.Add(t, d)

	return d, nil
}

// Decode decodes the document into the value pointed to by v.
func (m *Mapper) Decode(doc bson.D, v any) error {
	return Decode(m, doc, v)
}

// Encode encodes the struct (or pointer to struct) into a document.
func (m *Mapper) Encode(v any) (bson.D, error) {
	return Encode(m, v)
}

// indirect returns the element type of pointer types.
func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

// check interfaces
var (
	_ Describer = (*Mapper)(nil)
)
