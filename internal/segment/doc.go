// Package segment defines the in-memory transcript model: speech segments,
// their transcription lifecycle, and the project aggregate that owns them.
//
// Segments move through Pending, Transcribing, Done and Failed via explicit
// transition methods; callers never flip the underlying fields directly.
// Collections are kept sorted by start time and must not overlap.
package segment
