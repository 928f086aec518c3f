package audio

import (
	"fmt"
	"os"
)

// EncodePayload reads a file into the byte payload stored on projects and
// sent to the transcription service.
func EncodePayload(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audio %q: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read audio %q: %w", path, ErrNoSamples)
	}
	return data, nil
}
