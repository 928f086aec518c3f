package audio_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"transcriber/internal/audio"
	"transcriber/internal/services"
)

func ramp(n, rate int) audio.PCM {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	return audio.PCM{Rate: rate, Samples: samples}
}

func mustEncode(t *testing.T, pcm audio.PCM) []byte {
	t.Helper()
	data, err := audio.EncodeWAV(pcm)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
	return data
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pcm := ramp(16000, 16000)
	data := mustEncode(t, pcm)
	if len(data) != 44+2*len(pcm.Samples) {
		t.Fatalf("unexpected wav size %d", len(data))
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Fatal("expected RIFF header")
	}
	decoded, err := audio.DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if decoded.Rate != 16000 || len(decoded.Samples) != len(pcm.Samples) {
		t.Fatalf("unexpected decoded shape: rate=%d n=%d", decoded.Rate, len(decoded.Samples))
	}
	if decoded.Samples[999] != 999 {
		t.Fatalf("sample mismatch: %d", decoded.Samples[999])
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, 8000, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 8000},
		Data:           []int{100, 300, -200, 200, 1000, 0},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	_ = f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	pcm, err := audio.DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	want := []int16{200, 0, 500}
	if pcm.Rate != 8000 || len(pcm.Samples) != len(want) {
		t.Fatalf("unexpected pcm: %#v", pcm)
	}
	for i, w := range want {
		if pcm.Samples[i] != w {
			t.Fatalf("sample %d = %d, want %d", i, pcm.Samples[i], w)
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := audio.DecodeWAV([]byte("definitely not audio")); !errors.Is(err, audio.ErrCorruptPayload) {
		t.Fatalf("expected ErrCorruptPayload, got %v", err)
	}
}

func TestResampleLinear(t *testing.T) {
	in := audio.PCM{Rate: 32000, Samples: []int16{0, 100, 200, 300, 400, 500}}
	out := audio.Resample(in, 16000)
	want := []int16{0, 200, 400}
	if out.Rate != 16000 || len(out.Samples) != len(want) {
		t.Fatalf("unexpected output: %#v", out)
	}
	for i, w := range want {
		if out.Samples[i] != w {
			t.Fatalf("sample %d = %d, want %d", i, out.Samples[i], w)
		}
	}

	up := audio.Resample(audio.PCM{Rate: 8000, Samples: []int16{0, 100}}, 16000)
	if len(up.Samples) != 4 || up.Samples[1] != 50 || up.Samples[3] != 100 {
		t.Fatalf("unexpected upsample: %#v", up.Samples)
	}

	same := audio.Resample(in, 32000)
	if len(same.Samples) != len(in.Samples) {
		t.Fatal("expected identity resample")
	}
}

func TestExtractSlicesRange(t *testing.T) {
	payload := mustEncode(t, ramp(32000, 16000))
	ex := audio.NewExtractor(nil)

	out, err := ex.Extract(context.Background(), payload, 0.5, 1.0)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	pcm, err := audio.DecodeWAV(out)
	if err != nil {
		t.Fatalf("decode slice: %v", err)
	}
	if len(pcm.Samples) != 8000 {
		t.Fatalf("expected 8000 samples, got %d", len(pcm.Samples))
	}
	if pcm.Samples[0] != int16(8000%1000) {
		t.Fatalf("slice starts at wrong sample: %d", pcm.Samples[0])
	}

	full, err := ex.Extract(context.Background(), payload, 0, 2.0)
	if err != nil {
		t.Fatalf("full-range Extract failed: %v", err)
	}
	if len(full) != 44+2*32000 {
		t.Fatalf("unexpected full slice size %d", len(full))
	}
}

func TestExtractRejectsInvalidRanges(t *testing.T) {
	payload := mustEncode(t, ramp(16000, 16000))
	ex := audio.NewExtractor(nil)
	cases := []struct {
		name       string
		start, end float64
	}{
		{"negative start", -0.1, 0.5},
		{"start equals end", 0.5, 0.5},
		{"reversed", 0.8, 0.2},
		{"past duration", 0.5, 1.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ex.Extract(context.Background(), payload, tc.start, tc.end)
			if !errors.Is(err, audio.ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
			if !errors.Is(err, services.ErrExtraction) {
				t.Fatalf("expected extraction marker, got %v", err)
			}
		})
	}
}

func TestExtractCorruptPayload(t *testing.T) {
	ex := audio.NewExtractor(nil)
	_, err := ex.Extract(context.Background(), []byte("RIFF....WAVEjunk"), 0, 1)
	if !errors.Is(err, audio.ErrCorruptPayload) || !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected corrupt payload extraction error, got %v", err)
	}
}

type fakeConverter struct {
	out    []byte
	called audio.Format
	calls  int
}

func (f *fakeConverter) ToWAV(_ context.Context, _ []byte, format audio.Format) ([]byte, error) {
	f.called = format
	f.calls++
	return f.out, nil
}

func TestExtractRejectsRangeBeforeDecoding(t *testing.T) {
	conv := &fakeConverter{out: mustEncode(t, ramp(16000, 16000))}
	ex := audio.NewExtractor(conv)
	flac := []byte("fLaC\x00\x00\x00\x22")
	cases := []struct {
		name       string
		start, end float64
	}{
		{"negative start", -1, 0.5},
		{"empty", 0.4, 0.4},
		{"reversed", 0.8, 0.2},
		{"nan start", math.NaN(), 0.5},
		{"nan end", 0, math.NaN()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ex.Extract(context.Background(), flac, tc.start, tc.end)
			if !errors.Is(err, audio.ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
			_, err = ex.Batch().Extract(context.Background(), flac, tc.start, tc.end)
			if !errors.Is(err, audio.ErrInvalidRange) {
				t.Fatalf("batch: expected ErrInvalidRange, got %v", err)
			}
		})
	}
	if conv.calls != 0 {
		t.Fatalf("expected no conversions for invalid ranges, got %d", conv.calls)
	}
}

func TestBatchExtractDecodesOnce(t *testing.T) {
	conv := &fakeConverter{out: mustEncode(t, ramp(48000, 16000))}
	batch := audio.NewExtractor(conv).Batch()
	flac := []byte("fLaC\x00\x00\x00\x22")
	for i := range 3 {
		out, err := batch.Extract(context.Background(), flac, float64(i), float64(i)+1)
		if err != nil {
			t.Fatalf("Extract %d failed: %v", i, err)
		}
		pcm, err := audio.DecodeWAV(out)
		if err != nil || len(pcm.Samples) != 16000 {
			t.Fatalf("slice %d: %d samples, err %v", i, len(pcm.Samples), err)
		}
	}
	if conv.calls != 1 {
		t.Fatalf("expected one conversion per batch, got %d", conv.calls)
	}

	other := []byte("fLaC\x00\x00\x00\x23")
	if _, err := batch.Extract(context.Background(), other, 0, 1); err != nil {
		t.Fatalf("Extract on new payload failed: %v", err)
	}
	if conv.calls != 2 {
		t.Fatalf("expected a new payload to be decoded, got %d conversions", conv.calls)
	}
}

func TestExtractConvertsNonWAV(t *testing.T) {
	conv := &fakeConverter{out: mustEncode(t, ramp(16000, 16000))}
	ex := audio.NewExtractor(conv)
	if _, err := ex.Extract(context.Background(), []byte("fLaC\x00\x00\x00\x22"), 0, 0.5); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if conv.called != audio.FormatFLAC {
		t.Fatalf("expected flac conversion, got %q", conv.called)
	}
}

func TestFormats(t *testing.T) {
	if !audio.IsSupported("talk.M4A") || audio.IsSupported("talk.txt") {
		t.Fatal("unexpected IsSupported result")
	}
	cases := map[string]audio.Format{
		"OggS\x00":                 audio.FormatOGG,
		"ID3\x04":                  audio.FormatMP3,
		"\x00\x00\x00\x20ftypM4A ": audio.FormatM4A,
		"\xff\xf1\x50":             audio.FormatAAC,
		"\xff\xfb\x90":             audio.FormatMP3,
		"hello":                    audio.FormatUnknown,
	}
	for in, want := range cases {
		if got := audio.Sniff([]byte(in)); got != want {
			t.Fatalf("Sniff(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodePayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := audio.EncodePayload(path)
	if err != nil || string(data) != "RIFF" {
		t.Fatalf("EncodePayload = %q, %v", data, err)
	}
	if _, err := audio.EncodePayload(filepath.Join(dir, "missing.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
