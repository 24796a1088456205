// Package pipeline connects a producer's output stream to a consumer:
// bytes are decoded into JSON values by a streamjson decoder, each value is
// mapped to a tagged event, and events reach the consumer through a
// debouncer.
//
// A Session owns one decoder and one debouncer and serves exactly one
// stream. Run one Session per child process or chat session.
package pipeline
