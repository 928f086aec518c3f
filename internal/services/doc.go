// Package services defines shared error markers and context helpers consumed
// by the pipeline packages and the daemon.
//
// Key responsibilities:
//   - Context helpers that stamp project IDs, segment indexes, upload session
//     IDs, stage names, and correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so callers can classify a
//     failure (segment-local vs. propagated) with errors.Is.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform.
package services
