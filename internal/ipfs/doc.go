// Package ipfs uploads byte payloads and files to a content-addressed store
// node and returns their content references.
//
// Two paths exist: named files go through the store CLI, in-memory buffers
// go through the node HTTP API with a hand-built multipart envelope that
// preserves binary payloads byte-for-byte. The store is idempotent per
// content, which the pipeline relies on as its retry safety net.
package ipfs
