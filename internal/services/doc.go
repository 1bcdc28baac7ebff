// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline's error taxonomy (source, probe, upload, anchor,
//     cursor).
//   - Context helpers that stamp cycle and item identifiers for logging.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
