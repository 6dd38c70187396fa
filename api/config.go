// Package api provides the management HTTP API for inspecting and curating
// stored context entries.
package api

import "github.com/papercomputeco/recall/pkg/memory/template"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":11436")
	ListenAddr string

	// Templates lists the registered injection templates for GET /templates.
	Templates *template.Registry

	// MaxContextLength is the /retrieve budget when a request omits one.
	MaxContextLength int

	// DefaultTemplate is the /retrieve template when a request omits one.
	DefaultTemplate string

	// DisableMCP leaves /mcp unmounted.
	DisableMCP bool
}
