// Package main hosts the transcriber CLI entrypoint and command graph.
//
// The Cobra-based command tree covers two modes. Local commands (detect,
// import, and transcribe/retry/export on a saved project file) run the
// segmentation and transcription pipeline in-process. Daemon commands talk to
// the HTTP API for chunked uploads, queued transcription and project
// management. Configuration resolution and API discovery live here so
// subcommands only deal with presentation.
//
// Keep this package lean: new behavior belongs in the internal packages first
// and is surfaced here through dedicated commands or flags.
package main
