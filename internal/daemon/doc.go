// Package daemon coordinates the long-running transcriber process.
//
// It wires configuration, the project store, the upload receiver and the
// workflow manager into a single lifecycle with flock-based locking to prevent
// multiple instances, and serves the HTTP API that clients use to upload
// audio, create projects, queue transcription and export results.
//
// Keep orchestration logic here: detection and transcription live in their
// own packages while the daemon focuses on startup, shutdown, request
// validation and high level coordination.
package daemon
