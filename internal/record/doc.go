// Package record assembles per-facet encoded payloads into the compressed
// composite wire format referenced on the ledger.
//
// A record is an ordered list of tagged facets (title, body text, image
// pyramid, video renditions, source URI). Each facet evolves independently:
// consumers skip tags they do not understand, and new facets are added by
// appending tags, never by reusing one. The serialized record is
// brotli-compressed as a whole to minimize the stored artifact.
package record
