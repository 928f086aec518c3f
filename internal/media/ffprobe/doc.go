// Package ffprobe inspects audio files with ffprobe's JSON output.
//
// Inspect runs the probe; Result helpers pick out the primary audio stream
// and its sample rate, channel count and duration.
package ffprobe
