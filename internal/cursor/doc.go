// Package cursor persists the publication cursor: the id of the last feed
// item that completed the full transform-upload-anchor sequence.
//
// The store is a single-key key-value table on SQLite. Get fails with
// ErrNotFound before the first successful publish, which the orchestrator
// treats as the bootstrap case.
package cursor
