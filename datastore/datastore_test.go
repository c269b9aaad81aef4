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

package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FerretDB/docmap/aggregation"
	"github.com/FerretDB/docmap/internal/util/testutil"
	"github.com/FerretDB/docmap/mapping"
	"github.com/FerretDB/docmap/query"
)

type product struct {
	ID    primitive.ObjectID `docmap:",id"`
	Name  string
	Price int64
	Tags  []string
}

type itemTotal struct {
	ID    string
	Total int64
	Count int32
}

type shade string

const (
	shadeLight shade = "light"
	shadeDark  shade = "dark"
)

// nameValuePair is stored in a custom collection regardless of type parameters.
type nameValuePair[N ~string, V any] struct {
	Name  N `docmap:",id"`
	Value V
}

func (nameValuePair[N, V]) CollectionName() string { return "pairs" }

// setup returns a new datastore on a temporary SQLite database.
func setup(t *testing.T) *Datastore {
	t.Helper()

	ds, err := OpenSQLite(testutil.SQLiteURI(t), &Opts{
		Logger: testutil.Logger(t),
		Mapper: mapping.NewMapper(16),
	})
	require.NoError(t, err)
	t.Cleanup(ds.Close)

	return ds
}

func TestSaveAndFind(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	ds := setup(t)

	apple := &product{Name: "apple", Price: 3, Tags: []string{"fruit"}}
	require.NoError(t, ds.Save(ctx, apple))
	assert.False(t, apple.ID.IsZero())

	pear := &product{ID: primitive.NewObjectID(), Name: "pear", Price: 5}
	id := pear.ID
	require.NoError(t, ds.Save(ctx, pear))
	assert.Equal(t, id, pear.ID)

	require.NoError(t, ds.Save(ctx, &product{Name: "plum", Price: 4}))

	err := ds.Save(ctx, pear)
	assert.ErrorIs(t, err, ErrDuplicateID)

	t.Run("First", func(t *testing.T) {
		t.Parallel()

		p, err := Find[product](ds, query.Eq("name", "apple")).First(ctx)
		require.NoError(t, err)
		assert.Equal(t, apple, p)
	})

	t.Run("NotFound", func(t *testing.T) {
		t.Parallel()

		_, err := Find[product](ds, query.Eq("name", "banana")).First(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SortLimit", func(t *testing.T) {
		t.Parallel()

		res, err := Find[product](ds, query.Gt("price", 3)).
			Sort(aggregation.Descending("price")).
			Limit(1).
			All(ctx)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "pear", res[0].Name)
	})

	t.Run("Skip", func(t *testing.T) {
		t.Parallel()

		res, err := Find[product](ds, query.Filter{}).
			Sort(aggregation.Ascending("price")).
			Skip(1).
			All(ctx)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "plum", res[0].Name)
		assert.Equal(t, "pear", res[1].Name)
	})

	t.Run("Count", func(t *testing.T) {
		t.Parallel()

		n, err := Find[product](ds, query.Gte("price", 4)).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = Find[product](ds, query.Gt("price", 100)).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})
}

func TestOpenCursor(t *testing.T) {
	t.Parallel()

	for name, uri := range map[string]string{
		"File":   testutil.SQLiteURI(t),
		"Memory": "file:" + testutil.CollectionName(t) + "?mode=memory",
	} {
		name, uri := name, uri
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ds, err := OpenSQLite(uri, &Opts{Logger: testutil.Logger(t)})
			require.NoError(t, err)
			t.Cleanup(ds.Close)

			ctx, cancel := context.WithTimeout(testutil.Ctx(t), 5*time.Second)
			defer cancel()

			for _, n := range []string{"a", "b", "c"} {
				require.NoError(t, ds.Save(ctx, &product{Name: n, Price: 1}))
			}

			iter, err := Find[product](ds, query.Eq("price", 1)).Iter(ctx)
			require.NoError(t, err)

			defer iter.Close()

			_, p, err := iter.Next()
			require.NoError(t, err)
			assert.Equal(t, "a", p.Name)

			require.NoError(t, ds.Save(ctx, &product{Name: "d", Price: 2}))

			d, err := Find[product](ds, query.Eq("name", "d")).First(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), d.Price)

			n, err := Find[product](ds, query.Filter{}).Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(4), n)

			rest, err := iter.All()
			require.NoError(t, err)
			require.Len(t, rest, 2)
			assert.Equal(t, "b", rest[0].Name)
			assert.Equal(t, "c", rest[1].Name)
		})
	}
}

func TestSaveErrors(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	ds := setup(t)

	for name, tc := range map[string]struct {
		entity any
		err    string
	}{
		"NotPointer": {
			entity: product{},
			err:    "datastore: Save needs a non-nil pointer to struct, got datastore.product",
		},
		"NilPointer": {
			entity: (*product)(nil),
			err:    "datastore: Save needs a non-nil pointer to struct, got *datastore.product",
		},
		"NoID": {
			entity: &struct{ Name string }{Name: "x"},
			err:    "datastore: struct { Name string } has no identifier field",
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := ds.Save(ctx, tc.entity)
			require.Error(t, err)
			assert.EqualError(t, err, tc.err)
		})
	}
}

func TestGenericEntity(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	ds := setup(t)

	require.NoError(t, ds.Save(ctx, &nameValuePair[shade, float64]{Name: shadeLight, Value: 0.25}))
	require.NoError(t, ds.Save(ctx, &nameValuePair[shade, float64]{Name: shadeDark, Value: 0.75}))
	require.NoError(t, ds.Save(ctx, &nameValuePair[string, string]{Name: "mode", Value: "fast"}))

	err := ds.Save(ctx, &nameValuePair[shade, float64]{Name: shadeDark, Value: 1})
	assert.ErrorIs(t, err, ErrDuplicateID)

	dark, err := Find[nameValuePair[shade, float64]](ds, query.Eq("_id", string(shadeDark))).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, &nameValuePair[shade, float64]{Name: shadeDark, Value: 0.75}, dark)

	mode, err := Find[nameValuePair[string, string]](ds, query.Eq("_id", "mode")).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fast", mode.Value)

	n, err := Find[nameValuePair[shade, float64]](ds, query.Lt("value", 0.5)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	collections, err := ds.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pairs"}, collections)
}

func TestAggregation(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	ds := setup(t)

	ids, err := ds.Insert(ctx, "sales",
		bson.D{{"item", "abc"}, {"price", int64(10)}, {"quantity", int32(2)}},
		bson.D{{"item", "jkl"}, {"price", int64(20)}, {"quantity", int32(1)}},
		bson.D{{"item", "abc"}, {"price", int64(10)}, {"quantity", int32(5)}},
	)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	a := ds.CreateAggregation("sales").
		Group(
			aggregation.IDExpr(aggregation.Field("item")),
			aggregation.Grouping("total", aggregation.Sum(aggregation.Multiply(
				aggregation.Field("price"),
				aggregation.Field("quantity"),
			))),
			aggregation.Grouping("count", aggregation.Sum(aggregation.Literal(int32(1)))),
		).
		Sort(aggregation.Ascending("_id"))

	res, err := aggregation.Aggregate[itemTotal](ctx, a)
	require.NoError(t, err)

	totals, err := res.All()
	require.NoError(t, err)

	expected := []*itemTotal{
		{ID: "abc", Total: 70, Count: 2},
		{ID: "jkl", Total: 20, Count: 1},
	}
	assert.Equal(t, expected, totals)

	ok := ds.m.aggregations.WithLabelValues("sales", "ok")
	assert.Equal(t, float64(1), promtestutil.ToFloat64(ok))

	returned := ds.m.returned.WithLabelValues("sales")
	assert.Equal(t, float64(2), promtestutil.ToFloat64(returned))

	inserted := ds.m.inserted.WithLabelValues("sales")
	assert.Equal(t, float64(3), promtestutil.ToFloat64(inserted))
}

func TestCollectionErrors(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)
	ds := setup(t)

	_, err := ds.Insert(ctx, "_docmap_documents", bson.D{{"v", int32(1)}})
	assert.ErrorIs(t, err, ErrInvalidCollectionName)

	err = ds.Drop(ctx, "missing")
	assert.ErrorIs(t, err, ErrCollectionDoesNotExist)

	_, err = ds.Insert(ctx, "tmp", bson.D{{"v", int32(1)}})
	require.NoError(t, err)

	require.NoError(t, ds.Drop(ctx, "tmp"))

	collections, err := ds.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, collections)
}

func TestCollector(t *testing.T) {
	t.Parallel()

	ds := setup(t)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(ds))

	_, err := reg.Gather()
	require.NoError(t, err)
}

func TestWrapMongoDB(t *testing.T) {
	t.Parallel()

	_, err := WrapMongoDB(nil, nil)
	assert.EqualError(t, err, "datastore: database is nil")
}
