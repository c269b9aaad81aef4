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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type dayYear struct {
	Day  int32 `docmap:"day"`
	Year int32 `docmap:"year"`
}

type salesByDay struct {
	ID         dayYear `docmap:",id"`
	TotalPrice int64
	Count      int `docmap:"count"`
}

type student struct {
	ID        int32
	QuizTotal int64
	LabTotal  int64 `docmap:"labTotal"`
	ExamTotal int64
	Comment   *string
}

type simpleEnum int

const (
	simpleEnumFoo simpleEnum = iota + 1
	simpleEnumBar
)

func (e simpleEnum) MarshalText() ([]byte, error) {
	switch e {
	case simpleEnumFoo:
		return []byte("FOO"), nil
	case simpleEnumBar:
		return []byte("BAR"), nil
	default:
		return nil, fmt.Errorf("unknown simpleEnum %d", int(e))
	}
}

func (e *simpleEnum) UnmarshalText(b []byte) error {
	switch string(b) {
	case "FOO":
		*e = simpleEnumFoo
	case "BAR":
		*e = simpleEnumBar
	default:
		return fmt.Errorf("unknown simpleEnum %q", b)
	}

	return nil
}

type nameValuePair[N, V any] struct {
	ID    primitive.ObjectID
	Name  N
	Value V
}

type holder struct {
	ID      string
	Payload any
	Raw     any `docmap:"raw,optional"`
}

type payload struct {
	Size int `docmap:"size"`
}

type custom struct {
	Key   string
	Value string `docmap:"value,alias=val,alias=v"`
	Skip  string `docmap:"-"`
	skip  string
}

func (custom) CollectionName() string {
	return "customs"
}

func TestDescriptor(t *testing.T) {
	t.Parallel()

	m := NewMapper(0)

	d, err := m.Descriptor(reflect.TypeOf(&salesByDay{}))
	require.NoError(t, err)

	assert.Equal(t, "salesbyday", d.Collection)
	require.Len(t, d.Fields, 3)
	assert.Equal(t, "_id", d.ID().Name)
	assert.Equal(t, "totalPrice", d.Fields[1].Name)
	assert.False(t, d.Fields[1].Optional)
	assert.Equal(t, "count", d.Fields[2].Name)

	d2, err := m.Descriptor(reflect.TypeOf(salesByDay{}))
	require.NoError(t, err)
	assert.Same(t, d, d2, "descriptor should be cached")

	d, err = m.Descriptor(reflect.TypeOf(custom{}))
	require.NoError(t, err)

	assert.Equal(t, "customs", d.Collection)
	assert.Nil(t, d.ID())
	require.Len(t, d.Fields, 2)
	assert.Equal(t, d.Field("value"), d.Field("val"))
	assert.Equal(t, d.Field("value"), d.Field("v"))
	assert.Nil(t, d.Field("skip"))

	d, err = m.Descriptor(reflect.TypeOf(student{}))
	require.NoError(t, err)
	assert.True(t, d.Field("comment").Optional)
	assert.Equal(t, "_id", d.ID().Name)

	d, err = m.Descriptor(reflect.TypeOf(nameValuePair[simpleEnum, float64]{}))
	require.NoError(t, err)
	assert.Equal(t, "namevaluepair", d.Collection)
}

func TestDescriptorErrors(t *testing.T) {
	t.Parallel()

	type badOption struct {
		A int `docmap:"a,foo"`
	}

	type duplicate struct {
		A int `docmap:"x"`
		B int `docmap:"x"`
	}

	type twoIDs struct {
		A int `docmap:",id"`
		B int `docmap:",id"`
	}

	m := NewMapper(0)

	for _, v := range []any{badOption{}, duplicate{}, twoIDs{}, 42} {
		_, err := m.Descriptor(reflect.TypeOf(v))
		assert.Error(t, err, "%T", v)
	}
}

func TestLowerCamel(t *testing.T) {
	t.Parallel()

	for in, expected := range map[string]string{
		"TotalPrice": "totalPrice",
		"ID":         "id",
		"URLPath":    "urlPath",
		"A":          "a",
		"already":    "already",
	} {
		assert.Equal(t, expected, lowerCamel(in), in)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	m := NewMapper(0)

	t.Run("CompositeID", func(t *testing.T) {
		t.Parallel()

		// sub-keys in a different order than struct fields
		doc := bson.D{
			{"_id", bson.D{{"year", int32(2014)}, {"day", int32(46)}}},
			{"totalPrice", int32(150)},
			{"count", int32(2)},
		}

		var actual salesByDay
		require.NoError(t, m.Decode(doc, &actual))

		expected := salesByDay{
			ID:         dayYear{Day: 46, Year: 2014},
			TotalPrice: 150,
			Count:      2,
		}
		assert.Equal(t, expected, actual)
	})

	t.Run("MissingField", func(t *testing.T) {
		t.Parallel()

		doc := bson.D{
			{"_id", int32(1)},
			{"quizTotal", int32(23)},
			{"examTotal", int32(155)},
		}

		actual := student{ID: 42}
		err := m.Decode(doc, &actual)

		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, "labTotal", decodeErr.Path)
		assert.Equal(t, reflect.TypeOf(student{}), decodeErr.Type)
		assert.ErrorIs(t, err, ErrMissingField)
		assert.Contains(t, err.Error(), "labTotal")

		assert.Equal(t, student{ID: 42}, actual, "value must not be partially populated")
	})

	t.Run("NestedMissingField", func(t *testing.T) {
		t.Parallel()

		doc := bson.D{
			{"_id", bson.D{{"year", int32(2014)}}},
			{"totalPrice", int32(150)},
			{"count", int32(2)},
		}

		var actual salesByDay
		err := m.Decode(doc, &actual)

		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, "_id.day", decodeErr.Path)
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		t.Parallel()

		for name, value := range map[string]any{
			"String":      "150",
			"Fractional":  float64(1.5),
			"NotDocument": bson.A{int32(1)},
		} {
			doc := bson.D{
				{"_id", bson.D{{"year", int32(2014)}, {"day", int32(46)}}},
				{"totalPrice", value},
				{"count", int32(2)},
			}

			var actual salesByDay
			err := m.Decode(doc, &actual)
			assert.ErrorIs(t, err, ErrTypeMismatch, name)
		}
	})

	t.Run("Optional", func(t *testing.T) {
		t.Parallel()

		doc := bson.D{
			{"_id", int32(1)},
			{"quizTotal", float64(23)},
			{"labTotal", int64(13)},
			{"examTotal", int32(155)},
			{"extra", "ignored"},
		}

		var actual student
		require.NoError(t, m.Decode(doc, &actual))
		assert.Equal(t, student{ID: 1, QuizTotal: 23, LabTotal: 13, ExamTotal: 155}, actual)

		doc = append(doc, bson.E{"comment", "good"})
		require.NoError(t, m.Decode(doc, &actual))
		require.NotNil(t, actual.Comment)
		assert.Equal(t, "good", *actual.Comment)
	})

	t.Run("Aliases", func(t *testing.T) {
		t.Parallel()

		var actual custom
		require.NoError(t, m.Decode(bson.D{{"key", "k"}, {"val", "v"}}, &actual))
		assert.Equal(t, custom{Key: "k", Value: "v"}, actual)
	})

	t.Run("GenericEnum", func(t *testing.T) {
		t.Parallel()

		id := primitive.NewObjectID()
		doc := bson.D{{"_id", id}, {"name", "BAR"}, {"value", float64(3.14)}}

		var actual nameValuePair[simpleEnum, float64]
		require.NoError(t, m.Decode(doc, &actual))
		assert.Equal(t, nameValuePair[simpleEnum, float64]{ID: id, Name: simpleEnumBar, Value: 3.14}, actual)

		doc[1].Value = "BAZ"
		assert.ErrorIs(t, m.Decode(doc, &actual), ErrTypeMismatch)
	})

	t.Run("Untyped", func(t *testing.T) {
		t.Parallel()

		doc := bson.D{{"_id", int32(1)}, {"v", "foo"}}

		var d bson.D
		require.NoError(t, m.Decode(doc, &d))
		assert.Equal(t, doc, d)

		var mm bson.M
		require.NoError(t, m.Decode(doc, &mm))
		assert.Equal(t, bson.M{"_id": int32(1), "v": "foo"}, mm)
	})

	t.Run("Values", func(t *testing.T) {
		t.Parallel()

		type values struct {
			Date   time.Time
			Tags   []string
			Counts map[string]int
			Bytes  []byte
			Fixed  [2]int8
			Flag   bool
			Small  uint8
		}

		date := time.Date(2014, 2, 15, 8, 0, 0, 0, time.UTC)
		doc := bson.D{
			{"date", primitive.NewDateTimeFromTime(date)},
			{"tags", bson.A{"a", "b"}},
			{"counts", bson.D{{"x", int32(1)}}},
			{"bytes", primitive.Binary{Data: []byte{1, 2}}},
			{"fixed", bson.A{int32(1)}},
			{"flag", true},
			{"small", int64(255)},
		}

		var actual values
		require.NoError(t, m.Decode(doc, &actual))

		expected := values{
			Date:   date,
			Tags:   []string{"a", "b"},
			Counts: map[string]int{"x": 1},
			Bytes:  []byte{1, 2},
			Fixed:  [2]int8{1, 0},
			Flag:   true,
			Small:  255,
		}
		assert.Equal(t, expected, actual)

		doc[6].Value = int32(256)
		assert.ErrorIs(t, m.Decode(doc, &actual), ErrTypeMismatch)
	})

	t.Run("NotPointer", func(t *testing.T) {
		t.Parallel()

		assert.Error(t, m.Decode(bson.D{}, student{}))
		assert.Error(t, m.Decode(bson.D{}, (*student)(nil)))
	})
}

func TestSetValueType(t *testing.T) {
	t.Parallel()

	m := NewMapper(0)

	doc := bson.D{{"_id", "h"}, {"payload", bson.D{{"size", int32(3)}}}, {"raw", bson.D{{"size", int32(4)}}}}

	var actual holder
	require.NoError(t, m.Decode(doc, &actual))
	assert.Equal(t, bson.D{{"size", int32(3)}}, actual.Payload)

	require.NoError(t, m.SetValueType(reflect.TypeOf(holder{}), "Payload", reflect.TypeOf(payload{})))

	require.NoError(t, m.Decode(doc, &actual))
	assert.Equal(t, payload{Size: 3}, actual.Payload)
	assert.Equal(t, bson.D{{"size", int32(4)}}, actual.Raw)

	assert.Error(t, m.SetValueType(reflect.TypeOf(holder{}), "ID", reflect.TypeOf("")))
	assert.Error(t, m.SetValueType(reflect.TypeOf(holder{}), "Foo", reflect.TypeOf(payload{})))
}

func TestRegister(t *testing.T) {
	t.Parallel()

	type point struct {
		X, Y int
	}

	m := NewMapper(0)

	err := m.Register(&Descriptor{
		Type:       reflect.TypeOf(point{}),
		Collection: "points",
		Fields: []Field{
			{Name: "lon", GoName: "X", Type: reflect.TypeOf(0), Index: []int{0}},
			{Name: "lat", GoName: "Y", Type: reflect.TypeOf(0), Index: []int{1}},
		},
	})
	require.NoError(t, err)

	var p point
	require.NoError(t, m.Decode(bson.D{{"lat", int32(2)}, {"lon", int32(1)}}, &p))
	assert.Equal(t, point{X: 1, Y: 2}, p)

	doc, err := m.Encode(p)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{"lon", 1}, {"lat", 2}}, doc)

	assert.Error(t, m.Register(&Descriptor{Type: reflect.TypeOf(0)}))
}

func TestEncode(t *testing.T) {
	t.Parallel()

	m := NewMapper(0)

	id := primitive.NewObjectID()
	pair := &nameValuePair[simpleEnum, float64]{ID: id, Name: simpleEnumFoo, Value: 1.5}

	doc, err := m.Encode(pair)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{"_id", id}, {"name", "FOO"}, {"value", 1.5}}, doc)

	s := student{ID: 1, QuizTotal: 23}
	doc, err = m.Encode(s)
	require.NoError(t, err)
	assert.Equal(t, bson.D{{"_id", int32(1)}, {"quizTotal", int64(23)}, {"labTotal", int64(0)}, {"examTotal", int64(0)}}, doc)

	date := time.Date(2014, 1, 1, 8, 0, 0, 0, time.UTC)
	doc, err = m.Encode(struct {
		Date   time.Time
		Counts map[string]int
		Tags   []string
		Nested dayYear
	}{
		Date:   date,
		Counts: map[string]int{"b": 2, "a": 1},
		Tags:   []string{"x"},
		Nested: dayYear{Day: 1, Year: 2014},
	})
	require.NoError(t, err)

	expected := bson.D{
		{"date", primitive.NewDateTimeFromTime(date)},
		{"counts", bson.D{{"a", 1}, {"b", 2}}},
		{"tags", bson.A{"x"}},
		{"nested", bson.D{{"day", int32(1)}, {"year", int32(2014)}}},
	}
	assert.Equal(t, expected, doc)

	_, err = m.Encode(42)
	assert.Error(t, err)

	_, err = m.Encode((*student)(nil))
	assert.Error(t, err)
}
