package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// MediaRequirements lists the media tools used for audio normalization and
// duration probing.
func MediaRequirements(ffmpegCommand, ffprobeCommand string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegCommand,
			Description: "Required to normalize non-WAV uploads",
		},
		{
			Name:        "FFprobe",
			Command:     ResolveFFprobe(ffmpegCommand, ffprobeCommand),
			Description: "Reports source durations",
			Optional:    true,
		},
	}
}

// ResolveFFprobe prefers an ffprobe that sits next to the configured ffmpeg
// when ffprobe itself is left at its bare default name. Explicit paths are
// returned unchanged.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	probe := strings.TrimSpace(ffprobeCommand)
	if probe == "" {
		probe = "ffprobe"
	}
	if probe != "ffprobe" {
		return probe
	}
	ffmpeg := strings.TrimSpace(ffmpegCommand)
	if ffmpeg == "" {
		return probe
	}
	resolved, err := exec.LookPath(ffmpeg)
	if err != nil {
		return probe
	}
	candidate := filepath.Join(filepath.Dir(resolved), executableName("ffprobe"))
	if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
		return candidate
	}
	return probe
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
