package entity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/vo"
)

func TestJobLifecycle(t *testing.T) {
	t.Parallel()

	job := entity.NewJob(1, "clip.mp4", "clip (1x).mp4", false)
	require.Equal(t, vo.JobStatusPending, job.Status())

	require.NoError(t, job.SetCommand([]string{"ffmpeg", "-i", "clip.mp4"}, 20))
	require.NoError(t, job.MarkQueued())
	require.NoError(t, job.MarkRunning())
	require.NotNil(t, job.Snapshot().StartedAt)

	require.NoError(t, job.MarkCompleted())
	snap := job.Snapshot()
	require.Equal(t, vo.JobStatusCompleted, snap.Status)
	require.Equal(t, 1.0, snap.Progress)
	require.Equal(t, "OK", snap.Message)
	require.NotNil(t, snap.EndedAt)

	// Completed is final.
	require.Error(t, job.MarkFailed("boom"))
	require.Error(t, job.ResetForRetry())
}

func TestJobProgressMonotonic(t *testing.T) {
	t.Parallel()

	job := entity.NewJob(1, "clip.mp4", "out.mp4", false)
	require.NoError(t, job.MarkQueued())

	// Progress updates before Running are ignored.
	require.False(t, job.UpdateProgress(0.5, 10))
	require.Equal(t, 0.0, job.Progress())

	require.NoError(t, job.MarkRunning())
	require.True(t, job.UpdateProgress(0.4, 12))
	require.Equal(t, 0.4, job.Progress())

	// Stale lower sample is dropped.
	require.False(t, job.UpdateProgress(0.2, 8))
	require.Equal(t, 0.4, job.Progress())

	// Clamped at 1.
	require.True(t, job.UpdateProgress(1.5, 0))
	require.Equal(t, 1.0, job.Progress())
}

func TestJobFailBeforeQueue(t *testing.T) {
	t.Parallel()

	job := entity.NewJob(1, "missing.mp4", "out.mp4", false)
	require.NoError(t, job.MarkFailedBeforeQueue("probe failed: no such file"))
	snap := job.Snapshot()
	require.Equal(t, vo.JobStatusFailed, snap.Status)
	require.Equal(t, "probe failed: no such file", snap.Message)
	require.Nil(t, snap.StartedAt)
	require.NotNil(t, snap.EndedAt)
}

func TestJobResetForRetry(t *testing.T) {
	t.Parallel()

	job := entity.NewJob(1, "clip.mp4", "out.mp4", false)
	job.SetMedia(vo.MediaInfo{Duration: 10, HasVideo: true})
	require.NoError(t, job.SetCommand([]string{"ffmpeg"}, 20))
	require.NoError(t, job.MarkQueued())
	require.NoError(t, job.MarkRunning())
	job.SetPID(4242)
	job.UpdateProgress(0.7, 3)
	require.NoError(t, job.MarkCanceled())
	require.Equal(t, "Canceled", job.Message())

	require.NoError(t, job.ResetForRetry())
	snap := job.Snapshot()
	require.Equal(t, vo.JobStatusPending, snap.Status)
	require.Equal(t, 0.0, snap.Progress)
	require.Empty(t, snap.Message)
	require.Zero(t, snap.PID)
	require.Empty(t, snap.Command)
	require.Zero(t, snap.OutputDuration)
	require.Nil(t, snap.StartedAt)
	require.Nil(t, snap.EndedAt)
	require.Zero(t, snap.Media.Duration)
}

func TestJobCommandImmutableWhileRunning(t *testing.T) {
	t.Parallel()

	job := entity.NewJob(1, "clip.mp4", "out.mp4", false)
	require.NoError(t, job.SetCommand([]string{"ffmpeg"}, 20))
	require.NoError(t, job.MarkQueued())
	require.NoError(t, job.MarkRunning())
	require.Error(t, job.SetCommand([]string{"other"}, 5))
}
