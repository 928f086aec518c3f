// Package language normalizes spoken-language names and codes to the ISO
// 639-1 form the transcription service accepts as a hint.
package language
