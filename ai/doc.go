// Package ai defines the AI service interfaces used by the enrichment
// pipeline and semantic retrieval: text embedding and post analysis.
//
// Subpackage openai provides an implementation backed by any
// OpenAI-compatible API via langchaingo; subpackage mock provides
// deterministic test doubles.
package ai
