package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/memory/template"
)

// RetrieveRequest is the body of POST /retrieve.
type RetrieveRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxLength int    `json:"max_length"`
	Template  string `json:"template"`
}

// handleRetrieve previews what the proxy would inject for a prompt without
// forwarding anything.
func (s *Server) handleRetrieve(c *fiber.Ctx) error {
	var req RetrieveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return badRequest(c, "prompt is required")
	}
	if req.MaxLength <= 0 {
		req.MaxLength = s.config.MaxContextLength
	}
	if req.Template == "" {
		req.Template = s.config.DefaultTemplate
	}

	rec, err := s.memory.Recall(c.Context(), memory.RecallRequest{
		Model:     req.Model,
		Prompt:    req.Prompt,
		MaxLength: req.MaxLength,
		Template:  req.Template,
	})
	if err != nil {
		return s.storeFailure(c, "failed to retrieve context", err)
	}
	if rec.Entries == nil {
		rec.Entries = nonNil(nil)
	}

	return c.JSON(rec)
}

// TemplatesResponse lists the registered templates.
type TemplatesResponse struct {
	Default   string              `json:"default"`
	Templates []template.Template `json:"templates"`
}

func (s *Server) handleTemplates(c *fiber.Ctx) error {
	return c.JSON(TemplatesResponse{
		Default:   s.config.DefaultTemplate,
		Templates: s.config.Templates.Templates(),
	})
}
