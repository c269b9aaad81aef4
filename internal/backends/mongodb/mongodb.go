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

// Package mongodb provides MongoDB backend.
//
// Pipelines are passed to the database as is.
package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/FerretDB/docmap/internal/backends"
)

// cursorSource adapts *mongo.Cursor to backends.Source.
type cursorSource struct {
	cursor *mongo.Cursor
}

// Next implements backends.Source.
func (s *cursorSource) Next(ctx context.Context) bool {
	return s.cursor.Next(ctx)
}

// Raw implements backends.Source.
func (s *cursorSource) Raw() ([]byte, error) {
	return s.cursor.Current, nil
}

// Err implements backends.Source.
func (s *cursorSource) Err() error {
	return s.cursor.Err()
}

// Close implements backends.Source.
//
// The server-side cursor is closed even if the aggregation context is canceled.
func (s *cursorSource) Close(ctx context.Context) {
	_ = s.cursor.Close(ctx)
}

// check interfaces
var (
	_ backends.Source = (*cursorSource)(nil)
)
