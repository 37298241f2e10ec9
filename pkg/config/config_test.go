package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"slowdown-service/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)

	// concurrency 0 resolves to CPU count - 1, floored at 1
	want := runtime.NumCPU() - 1
	if want < 1 {
		want = 1
	}
	require.Equal(t, want, cfg.Queue.Concurrency)

	require.Equal(t, "auto", cfg.Transcode.FFmpeg.Rubberband)
	require.Equal(t, "libx264", cfg.Transcode.Encoding.VideoEncoder)
	require.Equal(t, 18, cfg.Transcode.Encoding.VideoCRF)
	require.Equal(t, 192, cfg.Transcode.Encoding.AudioBitrate)
	require.Equal(t, 20, cfg.Transcode.Preview.Seconds)
	require.Equal(t, " (1x)", cfg.Transcode.Output.Suffix)
	require.Contains(t, cfg.Transcode.Output.MediaExtensions, ".mkv")

	require.Equal(t, "slowdown.events", cfg.Redis.EventChannel)
	require.Equal(t, "slowdown.jobs", cfg.Kafka.SubmitTopic)
	require.Equal(t, "slowdown-service-group", cfg.Kafka.GroupID)
}

func TestLoadExplicitValues(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
queue:
  concurrency: 3
transcode:
  ffmpeg:
    rubberband: "off"
  output:
    suffix: " slow"
    overwrite: true
database:
  enabled: true
  host: db.internal
  port: 3307
  username: u
  password: p
  database: jobs
`))
	require.NoError(t, err)

	require.Equal(t, 3, cfg.Queue.Concurrency)
	require.Equal(t, "off", cfg.Transcode.FFmpeg.Rubberband)
	require.Equal(t, " slow", cfg.Transcode.Output.Suffix)
	require.True(t, cfg.Transcode.Output.Overwrite)

	require.True(t, cfg.Database.Enabled)
	require.Equal(t, "u:p@tcp(db.internal:3307)/jobs?charset=utf8mb4&parseTime=True&loc=Local", cfg.Database.GetDSN())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
