// Package tasks implements playlist generation orchestration.
//
// The core abstraction is [Generator], which turns a set of favorite
// artists, a genre, and a mood into a created, populated Spotify playlist.
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
//
// Generation is a sequence of joined fan-out stages: artist resolution,
// top-track gathering, audio-feature lookup, mood-biased recommendation,
// merge and deduplication, playlist creation, and chunked track writes.
// Each stage completes fully before the next begins; the first unrecovered
// failure aborts the whole run.
package tasks
