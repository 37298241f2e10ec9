package resource

import (
	"slowdown-service/pkg/config"
	"slowdown-service/pkg/kafka"
	"slowdown-service/pkg/manager"
)

// KafkaResource manages the process-wide Kafka client. Kafka is optional;
// with kafka.enabled=false the resource opens as a no-op.
type KafkaResource struct{}

type KafkaResourcePlugin struct{}

func (p *KafkaResourcePlugin) Name() string { return "kafka" }

func (p *KafkaResourcePlugin) MustCreateResource() manager.Resource { return &KafkaResource{} }

func (r *KafkaResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized")
	}
	if !cfg.Kafka.Enabled {
		return
	}
	kafka.DefaultClient().MustOpen()
}

func (r *KafkaResource) Close() { kafka.DefaultClient().Close() }
