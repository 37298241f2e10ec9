package progress

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"slowdown-service/ddd/domain/entity"
	"slowdown-service/ddd/domain/port"
	"slowdown-service/ddd/domain/vo"
)

// RedisSink publishes scheduler events to a Redis pub/sub channel so other
// processes can follow job progress.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) port.EventSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Record(ctx context.Context, ev vo.JobEvent, _ *entity.Snapshot) error {
	if s.client == nil {
		return nil
	}
	// Raw log lines are too chatty for pub/sub.
	if ev.Kind == vo.EventLog {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}
