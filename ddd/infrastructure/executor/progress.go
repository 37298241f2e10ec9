package executor

import (
	"strconv"
	"strings"
)

// Sample is one timing observation extracted from an ffmpeg stderr line.
type Sample struct {
	// Elapsed is the processed output time in seconds.
	Elapsed float64
	// Fraction is Elapsed over the expected output duration, clamped to [0,1].
	Fraction float64
	// ETASeconds estimates remaining wall time from observed throughput.
	ETASeconds float64
}

// ParseTimecode parses an ffmpeg HH:MM:SS.ms timestamp into seconds.
func ParseTimecode(value string) (float64, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hh, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	mm, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	ss, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	return float64(hh)*3600 + float64(mm)*60 + ss, true
}

// ExtractProgress turns one stderr line into an optional sample. Lines
// without a time= token, or with a malformed timestamp, yield no sample and
// no error: stderr noise must never disturb the pipeline.
//
// expectedDuration is the duration of the *output* stream; the caller
// supplies the slowdown scaling. wallElapsed is the wall-clock seconds since
// the process started. The ETA formula is intentionally unsmoothed:
// throughput = elapsed/wallElapsed, remaining = (expected-elapsed)/throughput.
func ExtractProgress(line string, expectedDuration, wallElapsed float64) (Sample, bool) {
	idx := strings.LastIndex(line, "time=")
	if idx < 0 {
		return Sample{}, false
	}
	token := line[idx+len("time="):]
	if f := strings.Fields(token); len(f) > 0 {
		token = f[0]
	}
	elapsed, ok := ParseTimecode(token)
	if !ok {
		return Sample{}, false
	}

	if expectedDuration < 0.01 {
		expectedDuration = 0.01
	}
	if wallElapsed < 0.001 {
		wallElapsed = 0.001
	}

	fraction := elapsed / expectedDuration
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	throughput := elapsed / wallElapsed
	if throughput < 0.01 {
		throughput = 0.01
	}
	eta := (expectedDuration - elapsed) / throughput

	return Sample{Elapsed: elapsed, Fraction: fraction, ETASeconds: eta}, true
}
