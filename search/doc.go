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


// Package search provides similarity-ranked retrieval over stored posts.
//
// The Searcher type ranks posts by embedding similarity to a query,
// filters them by channel, excludes ids the caller has already seen and
// deduplicates the results. SearchAndAnalyze additionally backfills the
// analysis of any returned post that lacks one.
package search
