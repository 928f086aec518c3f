// Package vad finds speech in an audio file and turns it into segments.
//
// A Detector labels fixed-size frames of 16 kHz mono audio as speech or
// silence. The Segmenter drives the full pass: decode, resample, label,
// slice, then merge neighbours separated by short pauses. The default
// EnergyDetector scores frames by log-RMS between the file's noise floor
// and its peak; any model-backed detector can replace it.
package vad
