// Package audio decodes, slices and encodes the PCM payloads that segments
// carry. WAV is the only container handled natively; other formats are
// normalized through a Converter (ffmpeg in production).
//
// Everything past decoding works on mono 16-bit samples. Multi-channel input
// is down-mixed by averaging.
package audio
