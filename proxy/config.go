package proxy

import (
	"time"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/storage"
)

// DefaultTimeout bounds a single upstream call when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Minute

// Config is the proxy server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":11435")
	ListenAddr string

	// UpstreamURL is the upstream Ollama URL (e.g., "http://localhost:11434")
	UpstreamURL string

	// Timeout bounds each generate and chat call, including reading a
	// streamed body. Passthrough routes only wait this long for response
	// headers. Exceeding it yields 504 Gateway Timeout.
	Timeout time.Duration

	// Settings is the initial hot-reloadable behaviour.
	Settings Settings

	// LearningWorkers and LearningQueueSize size the learning worker pool.
	LearningWorkers   uint
	LearningQueueSize uint

	// Store is probed by /health. Optional.
	Store storage.Driver

	// Publisher receives an event for each learned entry. Optional.
	Publisher eventstream.Publisher

	// Templates is probed by /health for the stable template names. Optional.
	Templates TemplateRegistry
}

// TemplateRegistry reports whether a template name is registered.
type TemplateRegistry interface {
	Has(name string) bool
}

// Settings is the part of the configuration that can change while the proxy
// runs. It is swapped atomically as a whole.
type Settings struct {
	InjectionEnabled bool
	Template         string
	MaxContextLength int
	LearningEnabled  bool
}
