// Package worker provides the asynchronous learning queue: the proxy enqueues
// one Job per completed exchange and a fixed set of workers runs the memory
// driver's learning cycle and publishes an event for every stored entry.
//
// The pool decouples learning from the proxy's HTTP hot path so that the
// client-proxy-upstream interaction is fully transparent.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is one completed exchange to learn from.
type Job struct {
	// Path is the request path the exchange arrived on.
	Path string

	// Conversation carries the conversation id, model and the un-augmented
	// transcript ending with the assistant reply.
	Conversation entry.Conversation
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Memory runs the learning cycle.
	Memory memory.Driver

	// Publisher receives an event per stored entry. Optional.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Stats counts jobs over the pool's lifetime.
type Stats struct {
	Queued    uint64 `json:"queued"`
	Dropped   uint64 `json:"dropped"`
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Stored    uint64 `json:"stored"`
}

// Pool processes learning jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once

	queued    atomic.Uint64
	dropped   atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
	stored    atomic.Uint64
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Memory == nil {
		return nil, fmt.Errorf("worker pool: %w", memory.ErrNotConfigured)
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.queued.Add(1)
		p.logger.Debug("learning job queued",
			"conversation_id", job.Conversation.ID,
			"model", job.Conversation.Model,
		)
		return true
	default:
		p.dropped.Add(1)
		p.logger.Error("learning job not queued, queue full, job dropped",
			"conversation_id", job.Conversation.ID,
			"model", job.Conversation.Model,
		)
		return false
	}
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Queued:    p.queued.Load(),
		Dropped:   p.dropped.Load(),
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Stored:    p.stored.Load(),
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the proxy HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("learning worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("learning worker stopped", "worker_id", id)
}

// processJob runs one learning cycle. Errors are logged and never retried;
// entries stored before a failure are still published.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()
	conv := job.Conversation

	res, err := p.config.Memory.Learn(ctx, conv)
	p.processed.Add(1)
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("learning failed",
			"conversation_id", conv.ID,
			"error", err,
		)
	}
	if res == nil {
		return
	}

	p.stored.Add(uint64(len(res.Stored)))
	if len(res.Stored) > 0 {
		p.logger.Info("learned entries",
			"conversation_id", conv.ID,
			"model", conv.Model,
			"stored", len(res.Stored),
			"extracted", res.Extracted,
		)
	}

	if p.config.Publisher == nil {
		return
	}
	source := eventstream.EventSource{Model: conv.Model, Path: job.Path}
	for _, e := range res.Stored {
		event := eventstream.NewEntryLearnedEvent(conv.ID, source, e)
		if err := p.config.Publisher.PublishEntry(ctx, event); err != nil {
			p.logger.Warn("failed to publish learned entry",
				"conversation_id", conv.ID,
				"entry_id", e.ID,
				"error", err,
			)
		}
	}
}
