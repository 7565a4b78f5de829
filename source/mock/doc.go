// Package mock provides a test double implementation of source.Client.
//
// The mock allows tests to run without a live content source. Canned
// posts and comments can be assigned directly, or full custom behavior
// injected via function fields.
package mock
