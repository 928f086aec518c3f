package noscribe

import (
	"os"
	"path/filepath"
	"strings"
)

// FileExists reports whether a regular file exists at path.
type FileExists func(path string) bool

// OSFileExists checks the local filesystem.
func OSFileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Location is the outcome of looking up a transcript's source recording.
// Missing is a recoverable state: segments stay usable without audio.
type Location struct {
	Path    string
	Missing bool
}

// Locate looks for the recording named by result. Relative paths are tried
// against baseDir (usually the transcript's directory) and as given; a bare
// file name is also tried inside baseDir.
func Locate(result Result, baseDir string, exists FileExists) Location {
	if exists == nil {
		exists = OSFileExists
	}
	ref := strings.TrimSpace(result.SourcePath)
	if ref == "" {
		return Location{Missing: true}
	}
	candidates := []string{ref}
	if !filepath.IsAbs(ref) && baseDir != "" {
		candidates = append([]string{filepath.Join(baseDir, ref)}, candidates...)
	}
	if baseDir != "" {
		candidates = append(candidates, filepath.Join(baseDir, filepath.Base(ref)))
	}
	for _, c := range candidates {
		if exists(c) {
			return Location{Path: c}
		}
	}
	return Location{Path: ref, Missing: true}
}
