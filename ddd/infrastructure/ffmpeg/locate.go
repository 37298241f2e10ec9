package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// relativeCandidates are common directories next to the service binary that
// ship a bundled ffmpeg.
var relativeCandidates = []string{
	"ffmpeg", "ffmpeg/bin", "bin", "tools/ffmpeg", "vendor/ffmpeg/bin",
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// normalizeExe accepts either a file path or a directory containing the
// binary and returns the resolved executable path, or "".
func normalizeExe(path, name string) string {
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		cand := filepath.Join(path, exeName(name))
		if _, err := os.Stat(cand); err == nil {
			return cand
		}
		return ""
	}
	return path
}

// locate resolves a binary: explicit config path, then env override, then
// PATH, then common relative locations.
func locate(configured, envVar, name string) (string, error) {
	if p := normalizeExe(configured, name); p != "" {
		return p, nil
	}
	if p := normalizeExe(os.Getenv(envVar), name); p != "" {
		return p, nil
	}
	if p, err := exec.LookPath(exeName(name)); err == nil {
		return p, nil
	}
	if self, err := os.Executable(); err == nil {
		here := filepath.Dir(self)
		for _, rel := range relativeCandidates {
			if p := normalizeExe(filepath.Join(here, rel), name); p != "" {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("%s not found: set %s or install FFmpeg", name, envVar)
}

// LocateFFmpeg resolves the ffmpeg binary path.
func LocateFFmpeg(configured string) (string, error) {
	return locate(configured, "FFMPEG_PATH", "ffmpeg")
}

// LocateFFprobe resolves the ffprobe binary path.
func LocateFFprobe(configured string) (string, error) {
	return locate(configured, "FFPROBE_PATH", "ffprobe")
}

// DetectRubberband reports whether the ffmpeg build exposes the rubberband
// audio filter.
func DetectRubberband(ffmpegPath string) bool {
	out, err := exec.Command(ffmpegPath, "-hide_banner", "-filters").CombinedOutput()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), "rubberband")
}
