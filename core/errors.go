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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidPost indicates a Post failed validation.
	ErrInvalidPost = errors.New("invalid post")

	// ErrInvalidTimeframe indicates an unrecognized timeframe value.
	ErrInvalidTimeframe = errors.New("invalid timeframe")

	// ErrEmptyPostID indicates the post ID field is empty.
	ErrEmptyPostID = errors.New("post id cannot be empty")

	// ErrEmptyChannel indicates the channel field is empty.
	ErrEmptyChannel = errors.New("channel cannot be empty")

	// ErrEmptyTitle indicates the title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrAnalysisWithoutVector indicates a post carries an analysis but
	// no embedding vector.
	ErrAnalysisWithoutVector = errors.New("analyzed post must carry an embedding")
)
