package manager

import (
	"sync"

	"slowdown-service/pkg/logger"
)

// Resource is an external connection with an explicit open/close lifecycle
// (database, redis, kafka).
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin lazily creates a named resource during startup.
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

var (
	mu        sync.Mutex
	plugins   []ResourcePlugin
	resources []Resource
)

// RegisterResourcePlugin queues a plugin for MustInitResources.
func RegisterResourcePlugin(p ResourcePlugin) {
	if p == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	plugins = append(plugins, p)
}

// MustInitResources opens every registered resource; a failing resource
// panics, matching the fail-fast startup policy.
func MustInitResources() {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range plugins {
		r := p.MustCreateResource()
		if r == nil {
			continue
		}
		logger.Infof("Opening resource name=%s", p.Name())
		r.MustOpen()
		resources = append(resources, r)
	}
}

// CloseResources closes resources in reverse open order.
func CloseResources() {
	mu.Lock()
	defer mu.Unlock()
	for i := len(resources) - 1; i >= 0; i-- {
		resources[i].Close()
	}
	resources = nil
}
