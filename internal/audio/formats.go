package audio

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format identifies an audio container.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatM4A     Format = "m4a"
	FormatAAC     Format = "aac"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
)

// SupportedFormats lists the containers accepted for upload and detection.
var SupportedFormats = []Format{FormatWAV, FormatMP3, FormatM4A, FormatAAC, FormatFLAC, FormatOGG}

// FormatFromPath returns the format implied by the file extension.
func FormatFromPath(path string) Format {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, f := range SupportedFormats {
		if string(f) == ext {
			return f
		}
	}
	return FormatUnknown
}

// IsSupported reports whether path has a supported extension.
func IsSupported(path string) bool {
	return FormatFromPath(path) != FormatUnknown
}

// Sniff guesses the container from its leading bytes.
func Sniff(payload []byte) Format {
	switch {
	case len(payload) >= 12 && bytes.Equal(payload[0:4], []byte("RIFF")) && bytes.Equal(payload[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(payload, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(payload, []byte("OggS")):
		return FormatOGG
	case bytes.HasPrefix(payload, []byte("ID3")):
		return FormatMP3
	case len(payload) >= 12 && bytes.Equal(payload[4:8], []byte("ftyp")):
		return FormatM4A
	case len(payload) >= 2 && payload[0] == 0xFF && payload[1]&0xF6 == 0xF0:
		return FormatAAC
	case len(payload) >= 2 && payload[0] == 0xFF && payload[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}
