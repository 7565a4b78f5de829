// Copyright 2025 Probeworks
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


// Package storage provides the storage abstraction layer for threadscout.
//
// This package defines repository interfaces that decouple storage
// implementation from the pipeline and retrieval logic, plus the binary
// serialization used by the BadgerDB backend.
//
// # Repositories
//
//   - PostRepository: fetched posts with embeddings and analyses,
//     channel-scoped queries and vector similarity search
//   - CheckpointRepository: per-(channel, timeframe) search checkpoints
//     with upsert semantics
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines; the enrichment pipeline
// issues concurrent upserts against them.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation.
package storage
