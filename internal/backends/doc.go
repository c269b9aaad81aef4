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

// Package backends provides common interfaces and code for all backend implementations.
//
// # Design principles.
//
//  1. Backends execute whole aggregation pipelines.
//     Backends that can't pass pipelines to the database (sqlite, postgresql)
//     read documents of the collection in insertion order and evaluate the pipeline in-process
//     with the aggregations engine.
//  2. Backend objects are stateful and wrap connection pools; they must be Close()'d.
//  3. Contexts are per-operation and should not be stored.
//     Iterators returned by Aggregate observe the context they were created with.
//  4. Errors returned by methods could be nil, *Error, or some other opaque error type.
//     *Error values can't be wrapped or be present anywhere in the error chain.
//     Contracts enforce *Error codes; they are not documented in the code comments
//     but are visible in the contract's code (to avoid duplication).
package backends
