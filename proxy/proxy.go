// Package proxy provides the memory-augmenting Ollama proxy. Generate and chat
// requests are rewritten with retrieved context before they are forwarded,
// and each completed exchange is queued for learning once its response has
// been read.
package proxy

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/google/uuid"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/health"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/template"
	"github.com/papercomputeco/recall/proxy/header"
	"github.com/papercomputeco/recall/proxy/worker"
)

const healthPath = "/health"

// Proxy is a transparent Ollama proxy that injects remembered context into
// prompts and learns new context from responses.
type Proxy struct {
	config        Config
	memory        memory.Driver
	settings      atomic.Pointer[Settings]
	workerPool    *worker.Pool
	health        *health.Checker
	logger        *slog.Logger
	httpClient    *http.Client
	passthrough   *http.Client
	server        *fiber.App
	headerHandler *header.Handler
}

// New creates a new Proxy. The memory driver is injected to serve both
// injection and the learning worker pool.
func New(config Config, mem memory.Driver, log *slog.Logger) (*Proxy, error) {
	if mem == nil {
		return nil, fmt.Errorf("proxy: %w", memory.ErrNotConfigured)
	}
	if config.UpstreamURL == "" {
		return nil, errors.New("upstream URL is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	config.UpstreamURL = strings.TrimSuffix(config.UpstreamURL, "/")

	// Request values outlive the handler: the conversation id and path are
	// read by the stream relay and the learning workers, so fasthttp must
	// not hand out views into its reused buffers.
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StreamRequestBody:     true,
		Immutable:             true,
	})

	app.Use(compress.New())

	wp, err := worker.NewPool(&worker.Config{
		Memory:     mem,
		Publisher:  config.Publisher,
		NumWorkers: config.LearningWorkers,
		QueueSize:  config.LearningQueueSize,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	p := &Proxy{
		config:        config,
		memory:        mem,
		workerPool:    wp,
		logger:        log,
		server:        app,
		headerHandler: header.NewHandler(),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		passthrough: newPassthroughClient(config.Timeout),
	}
	settings := config.Settings
	p.settings.Store(&settings)
	p.health = health.NewChecker(health.DefaultTimeout, p.probes()...)

	app.Get(healthPath, p.handleHealth)
	app.All("/*", p.handleProxy)

	return p, nil
}

// Settings returns the settings currently in effect.
func (p *Proxy) Settings() Settings {
	return *p.settings.Load()
}

// UpdateSettings swaps the hot-reloadable settings. Requests already in
// flight keep the snapshot they started with.
func (p *Proxy) UpdateSettings(s Settings) {
	p.settings.Store(&s)
	p.logger.Info("proxy settings updated",
		"injection_enabled", s.InjectionEnabled,
		"template", s.Template,
		"max_context_length", s.MaxContextLength,
		"learning_enabled", s.LearningEnabled,
	)
}

// LearningStats reports the learning queue counters.
func (p *Proxy) LearningStats() worker.Stats {
	return p.workerPool.Stats()
}

// Run starts the proxy server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		"listen", p.config.ListenAddr,
		"upstream", p.config.UpstreamURL,
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the proxy server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting proxy server",
		"listen", listener.Addr().String(),
		"upstream", p.config.UpstreamURL,
	)

	return p.server.Listener(listener)
}

// Close gracefully shuts down the proxy and waits for the learning queue to drain
func (p *Proxy) Close() error {
	err := p.server.Shutdown()
	p.workerPool.Close()
	p.passthrough.CloseIdleConnections()
	return err
}

// exchange is the per-request state carried from injection to learning.
type exchange struct {
	path           string
	conversationID string
	model          string

	// transcript is the un-augmented conversation leading up to the reply.
	transcript []llm.Message
	learn      bool
}

// handleProxy forwards any request to upstream. Generate and chat requests
// get context injected and their exchanges queued for learning.
func (p *Proxy) handleProxy(c *fiber.Ctx) error {
	startTime := time.Now()
	path := c.Path()
	method := c.Method()
	body := c.Body()

	conversationID := strings.TrimSpace(c.Get(header.ConversationIDHeader))
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	c.Set(header.ConversationIDHeader, conversationID)

	endpoint := llm.EndpointFor(path)
	if method != fiber.MethodPost || !endpoint.Injectable() {
		return p.forward(c, method, path, body, startTime)
	}

	req, err := llm.ParseRequest(endpoint, body)
	if err != nil {
		p.logger.Warn("rejecting malformed request",
			"path", path,
			"conversation_id", conversationID,
			"error", err,
		)
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	settings := p.Settings()
	skip := header.ParseSkip(c.Get(header.SkipHeader))

	ex := &exchange{
		path:           path,
		conversationID: conversationID,
		model:          req.Model,
		transcript:     transcript(req),
		learn:          settings.LearningEnabled && !skip.Learn,
	}

	if settings.InjectionEnabled && !skip.Inject {
		body = p.inject(c.Context(), req, body, settings, conversationID)
	}

	if req.Stream {
		return p.forwardStreaming(c, path, body, ex, startTime)
	}
	return p.forwardBuffered(c, path, body, ex, startTime)
}

// inject rewrites the request prompt with recalled context. Any failure
// leaves the original body untouched.
func (p *Proxy) inject(ctx context.Context, req *llm.Request, body []byte, s Settings, conversationID string) []byte {
	prompt := req.Prompt()
	if strings.TrimSpace(prompt) == "" {
		return body
	}

	rec, err := p.memory.Recall(ctx, memory.RecallRequest{
		Model:     req.Model,
		Prompt:    prompt,
		MaxLength: s.MaxContextLength,
		Template:  s.Template,
	})
	if err != nil {
		p.logger.Warn("context retrieval failed, forwarding without context",
			"conversation_id", conversationID,
			"error", err,
		)
		return body
	}
	if !rec.Injected() {
		return body
	}

	req.SetPrompt(rec.Prompt)
	rewritten, err := req.Encode()
	if err != nil {
		p.logger.Warn("could not encode augmented request, forwarding without context",
			"conversation_id", conversationID,
			"error", err,
		)
		return body
	}

	p.logger.Debug("injected context",
		"conversation_id", conversationID,
		"entries", len(rec.Entries),
		"context_length", rec.Length,
		"template", s.Template,
		"prompt_growth", len(rec.Prompt)-len(prompt),
	)
	return rewritten
}

// forward relays a request untouched. Passthrough routes such as /api/tags
// and /api/pull take this path, streamed or not. Only the wait for response
// headers is bounded by the configured timeout.
func (p *Proxy) forward(c *fiber.Ctx, method, path string, body []byte, startTime time.Time) error {
	httpResp, err := p.do(context.Background(), p.passthrough, c, method, path, body)
	if err != nil {
		return p.upstreamFailure(c, err)
	}

	p.headerHandler.SetClientResponseHeaders(c, httpResp)
	c.Status(httpResp.StatusCode)

	pr, pw := io.Pipe()
	go func() {
		defer httpResp.Body.Close()
		_, err := io.Copy(pw, httpResp.Body)
		pw.CloseWithError(err)
		p.logger.Debug("passthrough complete",
			"method", method,
			"path", path,
			"status", httpResp.StatusCode,
			"duration", time.Since(startTime),
		)
	}()
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// forwardBuffered handles non-streaming generate and chat requests.
func (p *Proxy) forwardBuffered(c *fiber.Ctx, path string, body []byte, ex *exchange, startTime time.Time) error {
	httpResp, err := p.do(c.Context(), p.httpClient, c, fiber.MethodPost, path, body)
	if err != nil {
		return p.upstreamFailure(c, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return p.upstreamFailure(c, fmt.Errorf("reading upstream response: %w", err))
	}

	p.headerHandler.SetClientResponseHeaders(c, httpResp)

	if isSuccess(httpResp.StatusCode) {
		collector, err := llm.Collect(respBody)
		if err != nil {
			p.logger.Warn("could not read assistant reply",
				"conversation_id", ex.conversationID,
				"error", err,
			)
		} else {
			p.enqueueLearning(ex, collector.Model(), collector.Text())
		}
	}

	p.logger.Debug("received response from upstream",
		"conversation_id", ex.conversationID,
		"status", httpResp.StatusCode,
		"duration", time.Since(startTime),
	)

	return c.Status(httpResp.StatusCode).Send(respBody)
}

// forwardStreaming handles streaming generate and chat requests. NDJSON lines
// are relayed as they arrive while the reply text is collected for learning.
func (p *Proxy) forwardStreaming(c *fiber.Ctx, path string, body []byte, ex *exchange, startTime time.Time) error {
	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the streaming callback runs
	// asynchronously in a separate goroutine and needs the upstream connection
	// to remain open.
	httpResp, err := p.do(context.Background(), p.httpClient, c, fiber.MethodPost, path, body)
	if err != nil {
		return p.upstreamFailure(c, err)
	}
	if !isSuccess(httpResp.StatusCode) {
		respBody, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		p.logger.Warn("upstream returned error",
			"conversation_id", ex.conversationID,
			"status", httpResp.StatusCode,
			"body", string(respBody),
		)
		p.headerHandler.SetClientResponseHeaders(c, httpResp)
		return c.Status(httpResp.StatusCode).Send(respBody)
	}

	p.headerHandler.SetClientResponseHeaders(c, httpResp)

	// io.Pipe gives per-chunk backpressure: pw.Write blocks until fasthttp's
	// chunked body writer has consumed and flushed the line.
	pr, pw := io.Pipe()
	go p.relayStream(httpResp, pw, ex, startTime)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (p *Proxy) relayStream(httpResp *http.Response, pw *io.PipeWriter, ex *exchange, startTime time.Time) {
	defer httpResp.Body.Close()

	var collector llm.Collector
	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if err := collector.Add(line); err != nil {
			p.logger.Debug("skipping undecodable stream line",
				"conversation_id", ex.conversationID,
				"error", err,
			)
		}

		out := make([]byte, len(line)+1)
		copy(out, line)
		out[len(line)] = '\n'

		if _, err := pw.Write(out); err != nil {
			// The client went away. Learning still needs the whole reply,
			// so keep draining upstream.
			p.logger.Debug("client stopped reading stream",
				"conversation_id", ex.conversationID,
				"error", err,
			)
			continue
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Error("error reading NDJSON stream",
			"conversation_id", ex.conversationID,
			"error", err,
		)
		pw.CloseWithError(err)
		return
	}
	pw.Close()

	p.logger.Debug("streaming complete",
		"conversation_id", ex.conversationID,
		"done", collector.Done(),
		"duration", time.Since(startTime),
	)

	if collector.Err() != "" {
		p.logger.Warn("upstream reported an in-stream error",
			"conversation_id", ex.conversationID,
			"error", collector.Err(),
		)
		return
	}
	p.enqueueLearning(ex, collector.Model(), collector.Text())
}

// enqueueLearning hands the completed exchange to the learning pool.
func (p *Proxy) enqueueLearning(ex *exchange, model, reply string) {
	if !ex.learn || strings.TrimSpace(reply) == "" || len(ex.transcript) == 0 {
		return
	}
	if model == "" {
		model = ex.model
	}

	conv := entry.Conversation{ID: ex.conversationID, Model: model}
	for _, m := range ex.transcript {
		conv.Append(entry.Role(m.Role), m.Content)
	}
	conv.Append(entry.RoleAssistant, reply)

	p.workerPool.Enqueue(worker.Job{Path: ex.path, Conversation: conv})
}

// newPassthroughClient bounds only the wait for response headers. Passthrough
// bodies such as /api/pull progress streams may run far longer than timeout.
func newPassthroughClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// do sends the request upstream with the client's headers.
func (p *Proxy) do(ctx context.Context, client *http.Client, c *fiber.Ctx, method, path string, body []byte) (*http.Response, error) {
	upstreamURL := p.config.UpstreamURL + path
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		upstreamURL += "?" + string(q)
	}

	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, upstreamURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}

	p.headerHandler.SetUpstreamRequestHeaders(c, httpReq)

	p.logger.Debug("forwarding request to upstream",
		"method", method,
		"url", upstreamURL,
	)

	return client.Do(httpReq)
}

// upstreamFailure maps a transport error onto 504 for timeouts and 502
// otherwise.
func (p *Proxy) upstreamFailure(c *fiber.Ctx, err error) error {
	status, msg := fiber.StatusBadGateway, "upstream request failed"

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		status, msg = fiber.StatusGatewayTimeout, "upstream request timed out"
	}

	p.logger.Error(msg, "upstream", p.config.UpstreamURL, "error", err)
	return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
}

func (p *Proxy) handleHealth(c *fiber.Ctx) error {
	report := p.health.Run(c.Context())
	return c.Status(report.HTTPStatus()).JSON(report)
}

func (p *Proxy) probes() []health.Probe {
	probes := []health.Probe{
		{
			Name:     "proxy",
			Critical: true,
			Check: func(context.Context) (string, error) {
				s := p.workerPool.Stats()
				return fmt.Sprintf("learning: %d processed, %d dropped", s.Processed, s.Dropped), nil
			},
		},
		health.BackendProbe(&http.Client{Timeout: health.DefaultTimeout}, p.config.UpstreamURL),
	}
	if p.config.Store != nil {
		probes = append(probes, health.StoreProbe(p.config.Store))
	}
	if p.config.Templates != nil {
		probes = append(probes, health.TemplatesProbe(p.config.Templates.Has, template.StableNames()...))
	}
	return probes
}

// transcript returns the messages learning should see: the generate prompt,
// or the latest user chat message together with the assistant turn it
// answers. Earlier history was already learned from on previous requests.
func transcript(req *llm.Request) []llm.Message {
	if req.Endpoint == llm.EndpointGenerate {
		prompt := req.Prompt()
		if prompt == "" {
			return nil
		}
		return []llm.Message{{Role: string(entry.RoleUser), Content: prompt}}
	}

	msgs := req.Messages()
	last := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == string(entry.RoleUser) {
			last = i
			break
		}
	}
	if last < 0 {
		return nil
	}

	start := last
	if last > 0 && msgs[last-1].Role == string(entry.RoleAssistant) {
		start = last - 1
	}
	return append([]llm.Message(nil), msgs[start:last+1]...)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
