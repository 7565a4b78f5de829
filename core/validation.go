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

import "fmt"

// ValidatePost validates a Post before it is persisted.
//
// Validation rules:
//   - ID must not be empty
//   - Channel must not be empty
//   - Title must not be empty
//   - a non-empty Analysis requires a non-empty Vector
//
// NOT validated (populated by the pipeline):
//   - Vector (may be empty until the embedding stage runs)
//   - Analysis (may be empty until the analysis stage runs)
func ValidatePost(post *Post) error {
	if post == nil {
		return fmt.Errorf("%w: post is nil", ErrInvalidPost)
	}

	if post.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrEmptyPostID)
	}

	if post.Channel == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrEmptyChannel)
	}

	if post.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrEmptyTitle)
	}

	if post.Analysis != "" && len(post.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPost, ErrAnalysisWithoutVector)
	}

	return nil
}
