// Package preflight provides readiness checks for the filesystem paths,
// external tools and transcription service the transcriber depends on.
//
// The daemon reports these checks through GET /api/status and the CLI
// "transcriber status" command prints them. The transcription stage also
// consults CheckTranscriptionConfig before sending any audio so that a
// missing key fails the project immediately.
package preflight
