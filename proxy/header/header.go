// Package header provides header filtering for the recall proxy.
//
// This proxy sits between a client and an upstream Ollama backend like so:
//
//	Client <--> Proxy <--> Upstream backend
//
// and headers are handled accordingly as each leg negotiates compression, hops,
// encoding, etc. independently.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers between proxy connections.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

const (
	// ConversationIDHeader keys a request to a conversation. The proxy
	// generates one when it is absent and echoes it on the response.
	ConversationIDHeader = "X-Recall-Conversation-Id"

	// SkipHeader opts a single request out of injection, learning or both.
	SkipHeader = "X-Recall-Skip"
)

// Skip values accepted by SkipHeader, comma separated.
const (
	SkipInject = "inject"
	SkipLearn  = "learn"
	SkipAll    = "all"
)

// skipRequest is the set of request headers (client --> proxy --> upstream)
// that are not forwarded to the upstream backend.
var skipRequest = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection": {},

	// The Host header is rewritten by Go's http.Transport to match the
	// upstream URL.
	"Host": {},

	// Accept-Encoding is stripped so that Go's http.Transport adds its own
	// "Accept-Encoding: gzip" and transparently decompresses the upstream
	// response.
	"Accept-Encoding": {},

	// The body may be rewritten by injection; http.Request carries the
	// real length.
	"Content-Length": {},

	// Internal recall headers.
	ConversationIDHeader: {},
	SkipHeader:           {},
}

// skipResponse is the set of upstream response headers (client <-- proxy <-- upstream)
// that are not copied back to the downstream client.
var skipResponse = map[string]struct{}{
	"Connection": {},

	// fasthttp manages chunked transfer encoding for the client-facing
	// response independently.
	"Transfer-Encoding": {},

	// The proxy always reads a decompressed body. Fiber's compress
	// middleware sets the correct Content-Encoding when it re-compresses the
	// response back down to the client.
	"Content-Encoding": {},

	// Fiber computes the final Content-Length.
	"Content-Length": {},
}

// SetUpstreamRequestHeaders copies request headers from the Fiber context to
// the outgoing http.Request, filtering headers that the proxy should not forward
// to the upstream API.
func (h *Handler) SetUpstreamRequestHeaders(c *fiber.Ctx, req *http.Request) {
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if _, skip := skipRequest[k]; !skip {
			req.Header.Set(k, string(value))
		}
	})
}

// SetClientResponseHeaders copies response headers from the upstream API
// http.Response to the Fiber context, filtering headers that the proxy should
// not forward back down to the client.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[k]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
}

// SkipSet is the parsed value of SkipHeader.
type SkipSet struct {
	Inject bool
	Learn  bool
}

// ParseSkip parses a SkipHeader value. Unknown values are ignored.
func ParseSkip(value string) SkipSet {
	var s SkipSet
	for _, part := range strings.Split(value, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case SkipInject:
			s.Inject = true
		case SkipLearn:
			s.Learn = true
		case SkipAll:
			s.Inject = true
			s.Learn = true
		}
	}
	return s
}
