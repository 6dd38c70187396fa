package llm

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Chunk is one generate or chat response object: a complete non-streaming
// response or a single NDJSON line of a stream.
type Chunk struct {
	Model      string   `json:"model"`
	Response   string   `json:"response,omitempty"`
	Message    *Message `json:"message,omitempty"`
	Done       bool     `json:"done"`
	DoneReason string   `json:"done_reason,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Text returns the assistant text carried by the chunk.
func (c *Chunk) Text() string {
	if c.Message != nil {
		return c.Message.Content
	}
	return c.Response
}

// Collector accumulates assistant text across response chunks.
type Collector struct {
	text  strings.Builder
	model string
	done  bool
	err   string
}

// Add parses one response object. Blank lines are ignored.
func (c *Collector) Add(line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var chunk Chunk
	if err := json.Unmarshal(line, &chunk); err != nil {
		return fmt.Errorf("decoding response chunk: %w", err)
	}

	c.text.WriteString(chunk.Text())
	if chunk.Model != "" {
		c.model = chunk.Model
	}
	if chunk.Error != "" {
		c.err = chunk.Error
	}
	if chunk.Done {
		c.done = true
	}
	return nil
}

// Text returns the text collected so far.
func (c *Collector) Text() string { return c.text.String() }

// Model returns the model reported by the backend.
func (c *Collector) Model() string { return c.model }

// Done reports whether a final chunk was seen.
func (c *Collector) Done() bool { return c.done }

// Err returns an error reported in-band by the backend, if any.
func (c *Collector) Err() string { return c.err }

// Collect parses a full response body, either a single JSON object or NDJSON.
func Collect(body []byte) (*Collector, error) {
	c := &Collector{}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := c.Add(scanner.Bytes()); err != nil {
			return c, err
		}
	}
	if err := scanner.Err(); err != nil {
		return c, fmt.Errorf("reading response: %w", err)
	}
	return c, nil
}

// CollectText extracts the assistant text from a full response body.
func CollectText(body []byte) (string, error) {
	c, err := Collect(body)
	return c.Text(), err
}
