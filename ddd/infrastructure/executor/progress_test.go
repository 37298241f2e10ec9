package executor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"slowdown-service/ddd/infrastructure/executor"
)

func TestParseTimecode(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    string
		want     float64
		ok       bool
	}{
		{"zero", "00:00:00.00", 0, true},
		{"seconds with millis", "00:00:05.50", 5.5, true},
		{"minutes", "00:02:30.00", 150, true},
		{"hours", "01:00:00.00", 3600, true},
		{"two fields", "00:05.0", 0, false},
		{"garbage", "N/A", 0, false},
		{"empty", "", 0, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			got, ok := executor.ParseTimecode(tc.given)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.InDelta(t, tc.want, got, 1e-9)
			}
		})
	}
}

func TestExtractProgress(t *testing.T) {
	t.Parallel()

	t.Run("quarter done against expected duration", func(t *testing.T) {
		t.Parallel()
		line := "frame=  120 fps= 24 q=28.0 size=    512KiB time=00:00:05.00 bitrate= 838.9kbits/s speed=1.0x"
		sample, ok := executor.ExtractProgress(line, 20, 5)
		require.True(t, ok)
		require.InDelta(t, 5.0, sample.Elapsed, 1e-9)
		require.InDelta(t, 0.25, sample.Fraction, 1e-9)
		// throughput 1.0 => 15s remaining
		require.InDelta(t, 15.0, sample.ETASeconds, 1e-9)
	})

	t.Run("no time token yields no sample", func(t *testing.T) {
		t.Parallel()
		_, ok := executor.ExtractProgress("Press [q] to stop, [?] for help", 20, 1)
		require.False(t, ok)
	})

	t.Run("malformed timestamp is ignored", func(t *testing.T) {
		t.Parallel()
		_, ok := executor.ExtractProgress("time=N/A bitrate=N/A", 20, 1)
		require.False(t, ok)
	})

	t.Run("last time token wins", func(t *testing.T) {
		t.Parallel()
		line := "time=00:00:01.00 ... time=00:00:10.00 speed=1x"
		sample, ok := executor.ExtractProgress(line, 20, 10)
		require.True(t, ok)
		require.InDelta(t, 10.0, sample.Elapsed, 1e-9)
		require.InDelta(t, 0.5, sample.Fraction, 1e-9)
	})

	t.Run("fraction clamped to one", func(t *testing.T) {
		t.Parallel()
		sample, ok := executor.ExtractProgress("time=00:01:00.00", 20, 60)
		require.True(t, ok)
		require.InDelta(t, 1.0, sample.Fraction, 1e-9)
	})

	t.Run("tiny expected duration does not divide by zero", func(t *testing.T) {
		t.Parallel()
		sample, ok := executor.ExtractProgress("time=00:00:01.00", 0, 1)
		require.True(t, ok)
		require.InDelta(t, 1.0, sample.Fraction, 1e-9)
	})

	t.Run("stalled throughput keeps eta finite", func(t *testing.T) {
		t.Parallel()
		sample, ok := executor.ExtractProgress("time=00:00:00.00", 20, 100)
		require.True(t, ok)
		require.InDelta(t, 0.0, sample.Fraction, 1e-9)
		// floor throughput 0.01 => 2000s
		require.InDelta(t, 2000.0, sample.ETASeconds, 1e-6)
	})
}
