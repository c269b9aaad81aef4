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
	"runtime"
	"runtime/trace"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/FerretDB/docmap/internal/util/resource"
)

// funcCall is a single observed call.
type funcCall struct {
	token  *resource.Token
	region *trace.Region
	span   oteltrace.Span
}

// FuncCall observes a call of the function that invoked it.
//
// Use it only as the first statement of that function:
//
//	defer observability.FuncCall(ctx)()
//
// The call is recorded as a runtime/trace region when the execution tracer is on,
// and as a child span when ctx carries a recording span.
// The returned function must be called exactly once.
func FuncCall(ctx context.Context) func() {
	fc := &funcCall{token: resource.NewToken()}
	resource.Track(fc, fc.token)

	parent := oteltrace.SpanFromContext(ctx)
	if !trace.IsEnabled() && !parent.IsRecording() {
		return fc.leave
	}

	name := callerName()

	if trace.IsEnabled() {
		fc.region = trace.StartRegion(ctx, name)
	}

	if parent.IsRecording() {
		_, fc.span = parent.TracerProvider().Tracer(tracerName).Start(ctx, name)
	}

	return fc.leave
}

// callerName returns the full name of FuncCall's caller.
func callerName() string {
	pc := make([]uintptr, 1)
	runtime.Callers(3, pc)
	f, _ := runtime.CallersFrames(pc).Next()

	return f.Function
}

// leave ends the call.
func (fc *funcCall) leave() {
	if fc.span != nil {
		fc.span.End()
	}

	if fc.region != nil {
		fc.region.End()
	}

	resource.Untrack(fc, fc.token)
}
