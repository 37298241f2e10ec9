package observability

import (
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
)

var startOnce sync.Once

// StartProfilingAt attaches the process to the given Pyroscope server; a
// no-op with an empty address so local runs need no profiling backend.
// Starts at most once per process.
func StartProfilingAt(appName, serverAddress string) {
	if serverAddress == "" {
		return
	}
	startOnce.Do(func() {
		_, _ = pyroscope.Start(pyroscope.Config{
			ApplicationName: appName,
			ServerAddress:   serverAddress,
			Tags: map[string]string{
				"hostname": hostname(),
			},
		})
	})
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
