package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appsvc "slowdown-service/ddd/application/app"
	"slowdown-service/ddd/application/dto"
	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/service"
	"slowdown-service/ddd/domain/vo"
	"slowdown-service/pkg/config"
)

type fakeScheduler struct {
	mu      sync.Mutex
	nextID  int64
	submits []service.SubmitRequest
	skips   []string
	jobs    map[int64]*entity.Job
	order   []int64
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: make(map[int64]*entity.Job)}
}

func (f *fakeScheduler) add(job *entity.Job) {
	f.jobs[job.ID()] = job
	f.order = append(f.order, job.ID())
}

func (f *fakeScheduler) Submit(_ context.Context, req service.SubmitRequest) *entity.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.submits = append(f.submits, req)
	job := entity.NewJob(f.nextID, req.InputPath, req.OutputPath, req.Preview)
	f.add(job)
	return job
}

func (f *fakeScheduler) Skip(inputPath, outputPath, reason string) *entity.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.skips = append(f.skips, inputPath)
	job := entity.NewJob(f.nextID, inputPath, outputPath, false)
	_ = job.MarkSkipped(reason)
	f.add(job)
	return job
}

func (f *fakeScheduler) Retry(context.Context, int64) error { return nil }
func (f *fakeScheduler) CancelJob(int64)                    {}
func (f *fakeScheduler) PauseJob(int64)                     {}
func (f *fakeScheduler) ResumeJob(int64)                    {}
func (f *fakeScheduler) PauseQueue()                        {}
func (f *fakeScheduler) ResumeQueue()                       {}
func (f *fakeScheduler) SetConcurrency(int)                 {}

func (f *fakeScheduler) Job(id int64) (*entity.Job, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	return job, ok
}

func (f *fakeScheduler) Jobs() []*entity.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.Job, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.jobs[id])
	}
	return out
}

func (f *fakeScheduler) Stats() service.QueueStats { return service.QueueStats{} }

func (f *fakeScheduler) Subscribe(int) (<-chan vo.JobEvent, func()) {
	ch := make(chan vo.JobEvent)
	return ch, func() { close(ch) }
}

func (f *fakeScheduler) Shutdown(time.Duration) {}

type stubProber struct {
	failOn map[string]error
}

func (p stubProber) Probe(_ context.Context, path string) (vo.MediaInfo, error) {
	if err, ok := p.failOn[filepath.Base(path)]; ok {
		return vo.MediaInfo{}, err
	}
	return vo.MediaInfo{Duration: 10, HasVideo: true, HasAudio: true}, nil
}

func outputConfig() config.OutputConfig {
	return config.OutputConfig{
		Suffix:          " (1x)",
		MediaExtensions: []string{".mp4", ".mkv"},
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestSubmitJobDerivesOutputName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	touch(t, input)

	sched := newFakeScheduler()
	svc := appsvc.NewSchedulerApp(sched, stubProber{}, outputConfig())

	resp, err := svc.SubmitJob(context.Background(), &dto.SubmitJobRequest{InputPath: input})
	require.NoError(t, err)
	require.Len(t, resp.Jobs, 1)
	require.Equal(t, filepath.Join(dir, "clip (1x).mp4"), resp.Jobs[0].OutputPath)

	// The first derived name is reserved, so a resubmission bumps the counter
	// even before anything exists on disk.
	resp2, err := svc.SubmitJob(context.Background(), &dto.SubmitJobRequest{InputPath: input})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "clip (1x) (2).mp4"), resp2.Jobs[0].OutputPath)
}

func TestSubmitJobAvoidsExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	touch(t, input)
	touch(t, filepath.Join(dir, "clip (1x).mp4"))

	sched := newFakeScheduler()
	svc := appsvc.NewSchedulerApp(sched, stubProber{}, outputConfig())

	resp, err := svc.SubmitJob(context.Background(), &dto.SubmitJobRequest{InputPath: input})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "clip (1x) (2).mp4"), resp.Jobs[0].OutputPath)
}

func TestSubmitJobOverwriteKeepsName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	touch(t, input)
	touch(t, filepath.Join(dir, "clip (1x).mp4"))

	cfg := outputConfig()
	cfg.Overwrite = true
	svc := appsvc.NewSchedulerApp(newFakeScheduler(), stubProber{}, cfg)

	resp, err := svc.SubmitJob(context.Background(), &dto.SubmitJobRequest{InputPath: input})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "clip (1x).mp4"), resp.Jobs[0].OutputPath)
}

func TestSubmitJobExplicitOutputWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	touch(t, input)

	sched := newFakeScheduler()
	svc := appsvc.NewSchedulerApp(sched, stubProber{}, outputConfig())

	want := filepath.Join(dir, "custom.mkv")
	resp, err := svc.SubmitJob(context.Background(), &dto.SubmitJobRequest{InputPath: input, OutputPath: want})
	require.NoError(t, err)
	require.Equal(t, want, resp.Jobs[0].OutputPath)
}

func TestSubmitJobValidation(t *testing.T) {
	t.Parallel()

	svc := appsvc.NewSchedulerApp(newFakeScheduler(), stubProber{}, outputConfig())

	_, err := svc.SubmitJob(context.Background(), &dto.SubmitJobRequest{InputPath: "   "})
	require.Error(t, err)

	_, err = svc.SubmitJob(context.Background(), &dto.SubmitJobRequest{InputPath: "/does/not/exist.mp4"})
	require.Error(t, err)
}

func TestSubmitDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.mp4"))
	touch(t, filepath.Join(dir, "a.mp4"))
	touch(t, filepath.Join(dir, "broken.mkv"))
	touch(t, filepath.Join(dir, "old (1x).mp4"))
	touch(t, filepath.Join(dir, "notes.txt"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	touch(t, filepath.Join(dir, "sub", "c.mp4"))

	sched := newFakeScheduler()
	prober := stubProber{failOn: map[string]error{"broken.mkv": errors.New("moov atom not found")}}
	svc := appsvc.NewSchedulerApp(sched, prober, outputConfig())

	resp, err := svc.SubmitDirectory(context.Background(), &dto.SubmitDirectoryRequest{Directory: dir})
	require.NoError(t, err)
	// a.mp4, b.mp4, broken.mkv and the nested sub/c.mp4 submitted;
	// old (1x).mp4 skipped; notes.txt ignored.
	require.Len(t, resp.Jobs, 5)

	require.Len(t, sched.submits, 4)
	require.Equal(t, filepath.Join(dir, "a.mp4"), sched.submits[0].InputPath)
	require.Equal(t, filepath.Join(dir, "b.mp4"), sched.submits[1].InputPath)
	require.Equal(t, filepath.Join(dir, "broken.mkv"), sched.submits[2].InputPath)
	require.Equal(t, filepath.Join(dir, "sub", "c.mp4"), sched.submits[3].InputPath)

	// Pre-probed media rides along for good files; the broken one re-probes
	// inside the scheduler and fails there.
	require.NotNil(t, sched.submits[0].Media)
	require.NotNil(t, sched.submits[1].Media)
	require.Nil(t, sched.submits[2].Media)

	require.Equal(t, []string{filepath.Join(dir, "old (1x).mp4")}, sched.skips)
}

func TestSubmitDirectoryMirrorsTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "lectures"), 0o755))
	touch(t, filepath.Join(dir, "lectures", "week1.mp4"))

	outDir := t.TempDir()
	cfg := outputConfig()
	cfg.Dir = outDir

	sched := newFakeScheduler()
	svc := appsvc.NewSchedulerApp(sched, stubProber{}, cfg)

	_, err := svc.SubmitDirectory(context.Background(), &dto.SubmitDirectoryRequest{Directory: dir})
	require.NoError(t, err)
	require.Len(t, sched.submits, 1)
	require.Equal(t, filepath.Join(outDir, "lectures", "week1 (1x).mp4"), sched.submits[0].OutputPath)
	// The mirrored directory is created eagerly.
	info, err := os.Stat(filepath.Join(outDir, "lectures"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestSubmitDirectoryValidation(t *testing.T) {
	t.Parallel()

	svc := appsvc.NewSchedulerApp(newFakeScheduler(), stubProber{}, outputConfig())

	_, err := svc.SubmitDirectory(context.Background(), &dto.SubmitDirectoryRequest{Directory: ""})
	require.Error(t, err)

	_, err = svc.SubmitDirectory(context.Background(), &dto.SubmitDirectoryRequest{Directory: "/does/not/exist"})
	require.Error(t, err)

	empty := t.TempDir()
	_, err = svc.SubmitDirectory(context.Background(), &dto.SubmitDirectoryRequest{Directory: empty})
	require.Error(t, err)
}
