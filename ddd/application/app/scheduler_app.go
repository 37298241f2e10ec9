package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"slowdown-service/ddd/application/dto"
	"slowdown-service/ddd/domain/port"
	"slowdown-service/ddd/domain/service"
	"slowdown-service/ddd/domain/vo"
	"slowdown-service/pkg/config"
	"slowdown-service/pkg/errno"
	"slowdown-service/pkg/logger"
)

// probeParallelism caps concurrent ffprobe processes during a directory scan.
const probeParallelism = 4

// SchedulerApp 调度器应用服务接口
type SchedulerApp interface {
	// SubmitJob 提交单个文件
	SubmitJob(ctx context.Context, req *dto.SubmitJobRequest) (*dto.SubmitResponse, error)

	// SubmitDirectory 扫描目录并批量提交媒体文件
	SubmitDirectory(ctx context.Context, req *dto.SubmitDirectoryRequest) (*dto.SubmitResponse, error)

	// GetJob 获取作业详情
	GetJob(ctx context.Context, id int64) (*dto.JobView, error)

	// ListJobs 按提交顺序列出全部作业
	ListJobs(ctx context.Context) ([]*dto.JobView, error)

	// CancelJob 取消运行中的作业
	CancelJob(ctx context.Context, id int64) error

	// PauseJob 暂停运行中的作业
	PauseJob(ctx context.Context, id int64) error

	// ResumeJob 恢复暂停的作业
	ResumeJob(ctx context.Context, id int64) error

	// RetryJob 重试失败/取消/跳过的作业
	RetryJob(ctx context.Context, id int64) error

	// PauseQueue 暂停调度
	PauseQueue(ctx context.Context)

	// ResumeQueue 恢复调度
	ResumeQueue(ctx context.Context)

	// SetConcurrency 调整并发上限
	SetConcurrency(ctx context.Context, n int) error

	// GetStats 队列统计
	GetStats(ctx context.Context) (*dto.QueueStatsResponse, error)
}

type schedulerAppImpl struct {
	scheduler service.Scheduler
	prober    port.Prober
	output    config.OutputConfig

	// reservedMu guards output paths handed out but possibly not yet
	// visible on disk, so one batch never derives the same name twice.
	reservedMu sync.Mutex
	reserved   map[string]struct{}
}

// NewSchedulerApp 创建调度器应用服务
func NewSchedulerApp(scheduler service.Scheduler, prober port.Prober, output config.OutputConfig) SchedulerApp {
	return &schedulerAppImpl{
		scheduler: scheduler,
		prober:    prober,
		output:    output,
		reserved:  make(map[string]struct{}),
	}
}

// SubmitJob 提交单个文件
func (s *schedulerAppImpl) SubmitJob(ctx context.Context, req *dto.SubmitJobRequest) (*dto.SubmitResponse, error) {
	input := strings.TrimSpace(req.InputPath)
	if input == "" {
		return nil, errno.ErrInputPathRequired
	}
	if _, err := os.Stat(input); err != nil {
		return nil, errno.ErrInputNotFound
	}

	outputPath := strings.TrimSpace(req.OutputPath)
	if outputPath == "" {
		outputPath = s.deriveOutputPath(input)
	}

	job := s.scheduler.Submit(ctx, service.SubmitRequest{
		InputPath:  input,
		OutputPath: outputPath,
		Preview:    req.Preview,
	})
	return &dto.SubmitResponse{
		Jobs: []*dto.JobView{dto.JobViewFromSnapshot(job.Snapshot())},
	}, nil
}

// SubmitDirectory 扫描目录并批量提交媒体文件
//
// Files are probed in parallel up front, then submitted strictly in name
// order so queue position matches the listing the operator sees. Files that
// already carry the output suffix are registered as Skipped instead of being
// slowed a second time.
func (s *schedulerAppImpl) SubmitDirectory(ctx context.Context, req *dto.SubmitDirectoryRequest) (*dto.SubmitResponse, error) {
	dir := strings.TrimSpace(req.Directory)
	if dir == "" {
		return nil, errno.ErrInputPathRequired
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errno.ErrInputNotFound
	}

	inputs, err := s.scanMediaFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, errno.ErrNoMediaFiles
	}

	type probed struct {
		media vo.MediaInfo
		err   error
	}
	results := make([]probed, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeParallelism)
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			media, probeErr := s.prober.Probe(gctx, input)
			results[i] = probed{media: media, err: probeErr}
			return nil
		})
	}
	// Probe errors are carried per file; the group itself never fails.
	_ = g.Wait()

	resp := &dto.SubmitResponse{}
	for i, input := range inputs {
		if s.isSlowedOutput(input) {
			skipped := s.scheduler.Skip(input, "", "already a slowed output")
			resp.Jobs = append(resp.Jobs, dto.JobViewFromSnapshot(skipped.Snapshot()))
			continue
		}

		submit := service.SubmitRequest{
			InputPath:  input,
			OutputPath: s.deriveOutputPathUnder(input, dir),
			Preview:    req.Preview,
		}
		if results[i].err == nil {
			media := results[i].media
			submit.Media = &media
		}
		// A probe failure falls through with Media nil; the scheduler
		// re-probes and marks the job Failed with the probe error.
		created := s.scheduler.Submit(ctx, submit)
		resp.Jobs = append(resp.Jobs, dto.JobViewFromSnapshot(created.Snapshot()))
	}

	logger.Infof("Directory submitted dir=%s jobs=%d", dir, len(resp.Jobs))
	return resp, nil
}

// GetJob 获取作业详情
func (s *schedulerAppImpl) GetJob(ctx context.Context, id int64) (*dto.JobView, error) {
	job, ok := s.scheduler.Job(id)
	if !ok {
		return nil, errno.ErrJobNotFound
	}
	return dto.JobViewFromSnapshot(job.Snapshot()), nil
}

// ListJobs 按提交顺序列出全部作业
func (s *schedulerAppImpl) ListJobs(ctx context.Context) ([]*dto.JobView, error) {
	jobs := s.scheduler.Jobs()
	views := make([]*dto.JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, dto.JobViewFromSnapshot(job.Snapshot()))
	}
	return views, nil
}

// CancelJob 取消运行中的作业；对非运行中的作业为静默空操作
func (s *schedulerAppImpl) CancelJob(ctx context.Context, id int64) error {
	if _, ok := s.scheduler.Job(id); !ok {
		return errno.ErrJobNotFound
	}
	s.scheduler.CancelJob(id)
	return nil
}

// PauseJob 暂停运行中的作业
func (s *schedulerAppImpl) PauseJob(ctx context.Context, id int64) error {
	if _, ok := s.scheduler.Job(id); !ok {
		return errno.ErrJobNotFound
	}
	s.scheduler.PauseJob(id)
	return nil
}

// ResumeJob 恢复暂停的作业
func (s *schedulerAppImpl) ResumeJob(ctx context.Context, id int64) error {
	if _, ok := s.scheduler.Job(id); !ok {
		return errno.ErrJobNotFound
	}
	s.scheduler.ResumeJob(id)
	return nil
}

// RetryJob 重试失败/取消/跳过的作业
func (s *schedulerAppImpl) RetryJob(ctx context.Context, id int64) error {
	if err := s.scheduler.Retry(ctx, id); err != nil {
		return errno.ErrJobNotRetryable
	}
	return nil
}

// PauseQueue 暂停调度
func (s *schedulerAppImpl) PauseQueue(ctx context.Context) {
	s.scheduler.PauseQueue()
}

// ResumeQueue 恢复调度
func (s *schedulerAppImpl) ResumeQueue(ctx context.Context) {
	s.scheduler.ResumeQueue()
}

// SetConcurrency 调整并发上限
func (s *schedulerAppImpl) SetConcurrency(ctx context.Context, n int) error {
	if n < 1 {
		return errno.ErrConcurrencyRequired
	}
	s.scheduler.SetConcurrency(n)
	return nil
}

// GetStats 队列统计
func (s *schedulerAppImpl) GetStats(ctx context.Context) (*dto.QueueStatsResponse, error) {
	return dto.QueueStatsFromService(s.scheduler.Stats()), nil
}

// scanMediaFiles walks dir recursively and lists media files sorted by path.
func (s *schedulerAppImpl) scanMediaFiles(dir string) ([]string, error) {
	var inputs []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if s.isMediaFile(d.Name()) {
			inputs = append(inputs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}
	sort.Strings(inputs)
	return inputs, nil
}

func (s *schedulerAppImpl) isMediaFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range s.output.MediaExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// isSlowedOutput reports whether the file name already ends with the output
// suffix, meaning it is itself the product of an earlier run.
func (s *schedulerAppImpl) isSlowedOutput(path string) bool {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.HasSuffix(stem, s.output.Suffix)
}

// deriveOutputPath builds "<stem><suffix><ext>" next to the input (or in the
// configured output directory) and, unless overwrite is enabled, bumps a
// numeric counter until the name collides with nothing on disk and nothing
// already handed out.
func (s *schedulerAppImpl) deriveOutputPath(input string) string {
	return s.deriveOutputPathUnder(input, "")
}

// deriveOutputPathUnder additionally mirrors the input's position relative to
// batchRoot under the configured output directory, so a recursive batch keeps
// its tree shape.
func (s *schedulerAppImpl) deriveOutputPathUnder(input, batchRoot string) string {
	dir := filepath.Dir(input)
	if s.output.Dir != "" {
		dir = s.output.Dir
		if batchRoot != "" {
			if rel, err := filepath.Rel(batchRoot, filepath.Dir(input)); err == nil && rel != "." {
				dir = filepath.Join(s.output.Dir, rel)
			}
		}
		_ = os.MkdirAll(dir, 0o755)
	}
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := filepath.Join(dir, stem+s.output.Suffix+ext)
	if s.output.Overwrite {
		return candidate
	}

	s.reservedMu.Lock()
	defer s.reservedMu.Unlock()
	for n := 2; s.taken(candidate); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s%s (%d)%s", stem, s.output.Suffix, n, ext))
	}
	s.reserved[candidate] = struct{}{}
	return candidate
}

// taken must be called with reservedMu held.
func (s *schedulerAppImpl) taken(path string) bool {
	if _, ok := s.reserved[path]; ok {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}
