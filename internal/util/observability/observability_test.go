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

package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelsdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/FerretDB/docmap/internal/util/testutil"
)

func TestSetupOtelWithoutEndpoint(t *testing.T) {
	t.Parallel()

	shutdown, err := SetupOtel(&OtelOpts{Service: "docmap"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(testutil.Ctx(t)))
}

func observed(ctx context.Context) {
	defer FuncCall(ctx)()
}

func TestFuncCall(t *testing.T) {
	t.Parallel()

	t.Run("NoSpan", func(t *testing.T) {
		t.Parallel()

		assert.NotPanics(t, func() { observed(context.Background()) })
	})

	t.Run("Span", func(t *testing.T) {
		t.Parallel()

		rec := tracetest.NewSpanRecorder()
		tp := otelsdktrace.NewTracerProvider(otelsdktrace.WithSpanProcessor(rec))

		ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
		observed(ctx)
		span.End()

		ended := rec.Ended()
		require.Len(t, ended, 2)
		assert.Equal(t, "github.com/FerretDB/docmap/internal/util/observability.observed", ended[0].Name())
		assert.Equal(t, span.SpanContext().SpanID(), ended[0].Parent().SpanID())
		assert.Equal(t, "parent", ended[1].Name())
	})
}
