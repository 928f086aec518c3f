package audio

import (
	"bytes"
	"errors"
	"fmt"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const pcmFormat = 1

var (
	// ErrCorruptPayload reports bytes that do not decode as audio.
	ErrCorruptPayload = errors.New("corrupt audio payload")
	// ErrNoSamples reports a container with no audio frames.
	ErrNoSamples = errors.New("no audio samples decoded")
)

// DecodeWAV decodes a PCM WAV payload into mono 16-bit samples at the
// payload's own sample rate.
func DecodeWAV(payload []byte) (PCM, error) {
	decoder := wav.NewDecoder(bytes.NewReader(payload))
	if !decoder.IsValidFile() {
		return PCM{}, fmt.Errorf("%w: not a wav container", ErrCorruptPayload)
	}
	if decoder.WavAudioFormat != pcmFormat {
		return PCM{}, fmt.Errorf("%w: unsupported wav encoding %d", ErrCorruptPayload, decoder.WavAudioFormat)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return PCM{}, ErrNoSamples
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = int(decoder.NumChans)
	}
	if channels <= 0 {
		return PCM{}, fmt.Errorf("%w: zero channels", ErrCorruptPayload)
	}
	rate := buf.Format.SampleRate
	if rate <= 0 {
		rate = int(decoder.SampleRate)
	}
	if rate <= 0 {
		return PCM{}, fmt.Errorf("%w: zero sample rate", ErrCorruptPayload)
	}
	depth := int(decoder.BitDepth)

	frames := len(buf.Data) / channels
	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += toInt16(buf.Data[i*channels+c], depth)
		}
		samples[i] = int16(sum / channels)
	}
	return PCM{Rate: rate, Samples: samples}, nil
}

func toInt16(v, depth int) int {
	switch {
	case depth == 8:
		return (v - 128) << 8
	case depth > 16:
		return v >> (depth - 16)
	default:
		return v
	}
}

// EncodeWAV writes samples as a 16-bit mono PCM WAV.
func EncodeWAV(pcm PCM) ([]byte, error) {
	rate := pcm.Rate
	if rate <= 0 {
		rate = TargetSampleRate
	}
	data := make([]int, len(pcm.Samples))
	for i, s := range pcm.Samples {
		data[i] = int(s)
	}
	out := &seekBuffer{}
	encoder := wav.NewEncoder(out, rate, 16, 1, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return out.Bytes(), nil
}
