package enrich

import "errors"

var (
	// ErrPostRepositoryRequired is returned when a post repository is not provided.
	ErrPostRepositoryRequired = errors.New("post repository required")

	// ErrCheckpointRepositoryRequired is returned when a checkpoint repository is not provided.
	ErrCheckpointRepositoryRequired = errors.New("checkpoint repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrSourceClientRequired is returned when a source client is not provided.
	ErrSourceClientRequired = errors.New("source client required")

	// ErrChannelInvalid is returned when the source rejects a channel.
	ErrChannelInvalid = errors.New("channel invalid or ineligible")
)
