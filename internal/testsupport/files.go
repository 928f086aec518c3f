package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"transcriber/internal/audio"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// Span marks a voiced interval in seconds for TonePCM.
type Span struct {
	Start, End float64
}

// TonePCM returns 16 kHz mono audio of the given length with a 440 Hz tone
// inside each span and silence elsewhere.
func TonePCM(seconds float64, spans ...Span) audio.PCM {
	rate := audio.TargetSampleRate
	n := int(seconds * float64(rate))
	samples := make([]int16, n)
	for _, span := range spans {
		from := int(span.Start * float64(rate))
		to := int(span.End * float64(rate))
		if to > n {
			to = n
		}
		for i := from; i < to; i++ {
			samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		}
	}
	return audio.PCM{Rate: rate, Samples: samples}
}

// WriteWAV encodes pcm as a WAV file at path and returns the payload.
func WriteWAV(t testing.TB, path string, pcm audio.PCM) []byte {
	t.Helper()

	payload, err := audio.EncodeWAV(pcm)
	if err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return payload
}
