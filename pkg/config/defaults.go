package config

const (
	defaultStorageDriver = "sqlite"

	defaultUpstream     = "http://localhost:11434"
	defaultProxyListen  = ":11435"
	defaultProxyTimeout = "5m"
	defaultAPIListen    = ":11436"

	defaultTemplate         = "forced_reference"
	defaultMaxContextLength = 1000

	defaultPacking      = "best_effort"
	defaultMinRelevance = 0.05

	defaultLearningWorkers   = 3
	defaultLearningQueueSize = 256
	defaultDedupThreshold    = 0.7

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "recall.entries"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Proxy: ProxyConfig{
			Upstream: defaultUpstream,
			Listen:   defaultProxyListen,
			Timeout:  defaultProxyTimeout,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Injection: InjectionConfig{
			Enabled:          true,
			Template:         defaultTemplate,
			MaxContextLength: defaultMaxContextLength,
		},
		Retrieval: RetrievalConfig{
			Packing:      defaultPacking,
			MinRelevance: defaultMinRelevance,
		},
		Learning: LearningConfig{
			Enabled:        true,
			Workers:        defaultLearningWorkers,
			QueueSize:      defaultLearningQueueSize,
			DedupThreshold: defaultDedupThreshold,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
