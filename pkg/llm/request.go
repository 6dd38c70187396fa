// Package llm contains the Ollama wire helpers used by the proxy: locating and
// rewriting the user prompt in generate and chat requests, and collecting the
// assistant's text from streaming or non-streaming responses.
package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Endpoint identifies an Ollama API route.
type Endpoint uint8

const (
	EndpointOther Endpoint = iota
	EndpointGenerate
	EndpointChat
)

func (e Endpoint) String() string {
	switch e {
	case EndpointGenerate:
		return "generate"
	case EndpointChat:
		return "chat"
	}
	return "other"
}

// EndpointFor maps a request path onto an endpoint.
func EndpointFor(path string) Endpoint {
	switch strings.TrimSuffix(path, "/") {
	case "/api/generate":
		return EndpointGenerate
	case "/api/chat":
		return EndpointChat
	}
	return EndpointOther
}

// Injectable reports whether prompts on this endpoint can be augmented.
func (e Endpoint) Injectable() bool {
	return e == EndpointGenerate || e == EndpointChat
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a decoded generate or chat request. Fields the proxy does not
// understand are kept verbatim and re-emitted by Encode.
type Request struct {
	Endpoint Endpoint
	Model    string

	// Stream follows the backend default: true unless "stream": false.
	Stream bool

	fields   map[string]json.RawMessage
	messages []map[string]json.RawMessage
}

// ParseRequest decodes body for endpoint. Errors wrap ErrMalformedRequest.
func ParseRequest(endpoint Endpoint, body []byte) (*Request, error) {
	if !endpoint.Injectable() {
		return nil, fmt.Errorf("%w: %s endpoint carries no prompt", ErrMalformedRequest, endpoint)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: body is null", ErrMalformedRequest)
	}

	r := &Request{Endpoint: endpoint, Stream: true, fields: fields}

	if raw, ok := fields["model"]; ok {
		if err := json.Unmarshal(raw, &r.Model); err != nil {
			return nil, fmt.Errorf("%w: model: %w", ErrMalformedRequest, err)
		}
	}
	if raw, ok := fields["stream"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &r.Stream); err != nil {
			return nil, fmt.Errorf("%w: stream: %w", ErrMalformedRequest, err)
		}
	}

	switch endpoint {
	case EndpointGenerate:
		if raw, ok := fields["prompt"]; ok && !isNull(raw) {
			var p string
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("%w: prompt: %w", ErrMalformedRequest, err)
			}
		}
	case EndpointChat:
		if raw, ok := fields["messages"]; ok && !isNull(raw) {
			if err := json.Unmarshal(raw, &r.messages); err != nil {
				return nil, fmt.Errorf("%w: messages: %w", ErrMalformedRequest, err)
			}
			for i, m := range r.messages {
				if _, err := decodeMessage(m); err != nil {
					return nil, fmt.Errorf("%w: messages[%d]: %w", ErrMalformedRequest, i, err)
				}
			}
		}
	}

	return r, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeMessage(m map[string]json.RawMessage) (Message, error) {
	var msg Message
	if raw, ok := m["role"]; ok {
		if err := json.Unmarshal(raw, &msg.Role); err != nil {
			return msg, fmt.Errorf("role: %w", err)
		}
	}
	if raw, ok := m["content"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &msg.Content); err != nil {
			return msg, fmt.Errorf("content: %w", err)
		}
	}
	return msg, nil
}

// Messages returns the chat messages. Generate requests have none.
func (r *Request) Messages() []Message {
	out := make([]Message, 0, len(r.messages))
	for _, m := range r.messages {
		msg, _ := decodeMessage(m)
		out = append(out, msg)
	}
	return out
}

// Prompt returns the user prompt: the prompt field for generate, the latest
// user message for chat.
func (r *Request) Prompt() string {
	switch r.Endpoint {
	case EndpointGenerate:
		var p string
		if raw, ok := r.fields["prompt"]; ok {
			_ = json.Unmarshal(raw, &p)
		}
		return p
	case EndpointChat:
		if i := r.lastUser(); i >= 0 {
			msg, _ := decodeMessage(r.messages[i])
			return msg.Content
		}
	}
	return ""
}

// System returns the generate request's system field, if any.
func (r *Request) System() string {
	var s string
	if raw, ok := r.fields["system"]; ok {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

// SetPrompt replaces the user prompt. A chat request without a user message
// gets one appended.
func (r *Request) SetPrompt(prompt string) {
	encoded, _ := json.Marshal(prompt)

	switch r.Endpoint {
	case EndpointGenerate:
		r.fields["prompt"] = encoded
	case EndpointChat:
		i := r.lastUser()
		if i < 0 {
			role, _ := json.Marshal("user")
			r.messages = append(r.messages, map[string]json.RawMessage{"role": role})
			i = len(r.messages) - 1
		}
		r.messages[i]["content"] = encoded
	}
}

func (r *Request) lastUser() int {
	for i := len(r.messages) - 1; i >= 0; i-- {
		msg, _ := decodeMessage(r.messages[i])
		if msg.Role == "user" {
			return i
		}
	}
	return -1
}

// Encode renders the request, including any rewritten prompt.
func (r *Request) Encode() ([]byte, error) {
	if r.Endpoint == EndpointChat && r.messages != nil {
		raw, err := json.Marshal(r.messages)
		if err != nil {
			return nil, fmt.Errorf("encoding messages: %w", err)
		}
		r.fields["messages"] = raw
	}
	return json.Marshal(r.fields)
}
