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


// Package source defines the content source abstraction for fetching
// discussion posts and comments from topic channels.
//
// The Client interface is implemented by source/reddit for the Reddit
// data API and by source/mock for tests. Clients treat upstream
// unavailability as a degraded condition rather than a hard failure:
// fetch operations return empty results so a single unreachable channel
// never aborts a whole enrichment run.
package source
