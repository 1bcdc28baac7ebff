// Package workflow drives the publish pipeline.
//
// The Manager polls the feed on a fixed interval. Each cycle resolves the
// next unpublished item from the durable cursor, downloads it, transcodes
// the rendition ladder, builds the thumbnail pyramid, uploads everything to
// the content store, composes the tagged record, anchors it on the ledger,
// and only then advances the cursor. A cycle that fails at any stage leaves
// the cursor untouched so the item is retried on the next tick.
//
// Cycles never overlap. A tick that fires while the previous cycle is still
// running is dropped rather than queued.
package workflow
