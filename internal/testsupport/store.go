package testsupport

import (
	"context"
	"testing"

	"transcriber/internal/config"
	"transcriber/internal/segment"
	"transcriber/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewProject creates a pending project for tests using the provided store.
func NewProject(t testing.TB, st *store.Store, name, sourcePath string) *store.Project {
	t.Helper()

	p, err := st.NewProject(context.Background(), name, name+".wav", sourcePath)
	if err != nil {
		t.Fatalf("store.NewProject: %v", err)
	}
	return p
}

// Segments builds segments from start/end pairs in seconds.
func Segments(bounds ...[2]float64) []segment.Segment {
	out := make([]segment.Segment, 0, len(bounds))
	for _, b := range bounds {
		out = append(out, segment.New(b[0], b[1], segment.ReferenceSampleRate))
	}
	return out
}
