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

package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/FerretDB/docmap/aggregation"
	"github.com/FerretDB/docmap/internal/util/iterator"
	"github.com/FerretDB/docmap/internal/util/lazyerrors"
)

// maxLineSize is the maximal size of a single imported Extended JSON line.
const maxLineSize = 16 * 1024 * 1024

// importCmd represents the import command.
type importCmd struct {
	Collection string `arg:"" help:"Collection name."`
	File       string `arg:"" optional:"" default:"-" help:"Extended JSON lines file; '-' for stdin."`
	Batch      int    `default:"1000" help:"Number of documents inserted at once."`
}

// Run imports documents.
func (c *importCmd) Run(g *globals) error {
	if c.Batch <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Batch)
	}

	r, closer, err := open(c.File, g.stdin)
	if err != nil {
		return err
	}

	defer closer()

	s := bufio.NewScanner(r)
	s.Buffer(nil, maxLineSize)

	batch := make([]bson.D, 0, c.Batch)

	var total, line int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if _, err := g.ds.Insert(g.ctx, c.Collection, batch...); err != nil {
			return err
		}

		total += len(batch)
		batch = batch[:0]

		return nil
	}

	for s.Scan() {
		line++

		b := bytes.TrimSpace(s.Bytes())
		if len(b) == 0 {
			continue
		}

		var doc bson.D
		if err = bson.UnmarshalExtJSON(b, false, &doc); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		batch = append(batch, doc)

		if len(batch) == c.Batch {
			if err = flush(); err != nil {
				return err
			}
		}
	}

	if err = s.Err(); err != nil {
		return lazyerrors.Error(err)
	}

	if err = flush(); err != nil {
		return err
	}

	g.l.Info("Imported documents", zap.String("collection", c.Collection), zap.Int("count", total))

	return nil
}

// aggregateCmd represents the aggregate command.
type aggregateCmd struct {
	Collection string `arg:"" help:"Collection name."`
	Pipeline   string `arg:"" help:"Pipeline as Extended JSON array of stages; '-' for stdin."`
	Canonical  bool   `default:"false" help:"Print canonical Extended JSON."`
}

// Run runs the aggregation.
func (c *aggregateCmd) Run(g *globals) error {
	src := []byte(c.Pipeline)

	if c.Pipeline == "-" {
		var err error
		if src, err = io.ReadAll(g.stdin); err != nil {
			return lazyerrors.Error(err)
		}
	}

	stages, err := parsePipeline(src)
	if err != nil {
		return err
	}

	a := g.ds.CreateAggregation(c.Collection)

	for i, doc := range stages {
		s, err := aggregation.RawStage(doc)
		if err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}

		a.Append(s)
	}

	res, err := aggregation.Aggregate[bson.D](g.ctx, a)
	if err != nil {
		return err
	}

	defer res.Close()

	w := bufio.NewWriter(g.stdout)

	for {
		_, doc, err := res.Next()
		if errors.Is(err, iterator.ErrIteratorDone) {
			break
		}

		if err != nil {
			return err
		}

		b, err := bson.MarshalExtJSON(*doc, c.Canonical, false)
		if err != nil {
			return lazyerrors.Error(err)
		}

		_, _ = w.Write(b)
		_ = w.WriteByte('\n')
	}

	return w.Flush()
}

// parsePipeline parses Extended JSON array of stages.
func parsePipeline(b []byte) ([]bson.D, error) {
	// extended JSON parser requires a top-level document
	wrapped := make([]byte, 0, len(b)+16)
	wrapped = append(wrapped, `{"pipeline":`...)
	wrapped = append(wrapped, b...)
	wrapped = append(wrapped, '}')

	var v struct {
		Pipeline []bson.D `bson:"pipeline"`
	}

	if err := bson.UnmarshalExtJSON(wrapped, false, &v); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}

	return v.Pipeline, nil
}

// collectionsCmd represents the collections command.
type collectionsCmd struct{}

// Run lists collections.
func (c *collectionsCmd) Run(g *globals) error {
	names, err := g.ds.Collections(g.ctx)
	if err != nil {
		return err
	}

	for _, n := range names {
		fmt.Fprintln(g.stdout, n)
	}

	return nil
}

// dropCmd represents the drop command.
type dropCmd struct {
	Collection string `arg:"" help:"Collection name."`
}

// Run drops the collection.
func (c *dropCmd) Run(g *globals) error {
	return g.ds.Drop(g.ctx, c.Collection)
}

// open opens the named file, or returns stdin for "-".
func open(name string, stdin io.Reader) (io.Reader, func(), error) {
	if name == "-" {
		return stdin, func() {}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}

	return f, func() { _ = f.Close() }, nil
}
