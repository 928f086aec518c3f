// Package noscribe imports transcripts exported by noScribe.
//
// Each paragraph of a noScribe document holds one utterance of the form
// "SPEAKER: [hh:mm:ss] text". Parse turns those into segments with
// estimated end times and no audio; the source recording is located
// separately with Locate and audio is cut from it on demand.
package noscribe
