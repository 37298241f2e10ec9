package component

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	appsvc "slowdown-service/ddd/application/app"
	"slowdown-service/ddd/application/dto"
	"slowdown-service/pkg/config"
	pkgkafka "slowdown-service/pkg/kafka"
	"slowdown-service/pkg/logger"
	"slowdown-service/pkg/task"
)

// JobConsumer pulls submit requests from Kafka so jobs can be injected
// without going through the HTTP API.
type JobConsumer struct {
	app    appsvc.SchedulerApp
	topic  string
	group  string
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJobConsumer 创建Kafka作业消费组件
func NewJobConsumer(app appsvc.SchedulerApp, cfg config.KafkaConfig) task.BackgroundTask {
	return &JobConsumer{
		app:   app,
		topic: cfg.SubmitTopic,
		group: cfg.GroupID,
	}
}

func (c *JobConsumer) Name() string { return "jobConsumer" }

func (c *JobConsumer) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	reader := pkgkafka.DefaultClient().Reader(c.topic, c.group)
	go func() {
		defer reader.Close()
		logger.Infof("Kafka consumer started topic=%s group=%s", c.topic, c.group)
		for {
			msg, err := reader.ReadMessage(c.ctx)
			if err != nil {
				if c.ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF") {
					logger.Debugf("Kafka reader EOF")
				} else {
					logger.Warnf("Kafka read error error=%s", err.Error())
				}
				continue
			}
			var m struct {
				InputPath  string `json:"input_path"`
				OutputPath string `json:"output_path"`
				Directory  string `json:"directory"`
				Preview    bool   `json:"preview"`
			}
			if err := json.Unmarshal(msg.Value, &m); err != nil {
				logger.Warnf("Kafka message unmarshal error error=%s", err.Error())
				continue
			}
			if m.Directory != "" {
				req := &dto.SubmitDirectoryRequest{Directory: m.Directory, Preview: m.Preview}
				if _, err := c.app.SubmitDirectory(context.Background(), req); err != nil {
					logger.Warnf("SubmitDirectory failed error=%s directory=%s", err.Error(), m.Directory)
				}
				continue
			}
			req := &dto.SubmitJobRequest{InputPath: m.InputPath, OutputPath: m.OutputPath, Preview: m.Preview}
			if _, err := c.app.SubmitJob(context.Background(), req); err != nil {
				logger.Warnf("SubmitJob failed error=%s input=%s", err.Error(), m.InputPath)
			}
		}
	}()
	return nil
}

func (c *JobConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}
