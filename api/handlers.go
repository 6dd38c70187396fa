package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/entry"
	"github.com/papercomputeco/recall/pkg/llm"
	"github.com/papercomputeco/recall/pkg/storage"
)

const defaultSearchLimit = 20

// EntryRequest is the body of POST /entries and PUT /entries/:id. On update,
// absent fields keep their stored value.
type EntryRequest struct {
	Content    *string           `json:"content"`
	Type       *entry.Type       `json:"type"`
	Category   *entry.Category   `json:"category"`
	Source     *entry.Source     `json:"source"`
	Confidence *float64          `json:"confidence"`
	Tags       []string          `json:"tags"`
	Metadata   map[string]string `json:"metadata"`
}

func (r *EntryRequest) apply(e *entry.Entry) {
	if r.Content != nil {
		e.Content = strings.TrimSpace(*r.Content)
	}
	if r.Type != nil {
		e.Type = *r.Type
	}
	if r.Category != nil {
		e.Category = *r.Category
	}
	if r.Source != nil {
		e.Source = *r.Source
	}
	if r.Confidence != nil {
		e.Confidence = *r.Confidence
	}
	if r.Tags != nil {
		e.Tags = r.Tags
	}
	if r.Metadata != nil {
		e.Metadata = r.Metadata
	}
}

// ListResponse wraps a page of entries.
type ListResponse struct {
	Count   int            `json:"count"`
	Total   int            `json:"total"`
	Entries []*entry.Entry `json:"entries"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListEntries handles GET /entries.
// Query parameters:
//   - source, type, category (optional): exact filters
//   - limit, offset (optional): paging
func (s *Server) handleListEntries(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	entries, err := s.store.List(c.Context(), filter)
	if err != nil {
		return s.storeFailure(c, "failed to list entries", err)
	}

	total, err := s.store.Count(c.Context())
	if err != nil {
		return s.storeFailure(c, "failed to count entries", err)
	}

	return c.JSON(ListResponse{Count: len(entries), Total: total, Entries: nonNil(entries)})
}

// handleCreateEntry handles POST /entries, creating a manual entry.
func (s *Server) handleCreateEntry(c *fiber.Ctx) error {
	var req EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}
	if req.Content == nil {
		return badRequest(c, "content is required")
	}

	e := entry.New("")
	req.apply(e)
	if err := e.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := s.store.Create(c.Context(), e); err != nil {
		return s.storeFailure(c, "failed to create entry", err)
	}

	s.logger.Info("entry created", "id", e.ID, "category", e.Category.String())
	return c.Status(fiber.StatusCreated).JSON(e)
}

// handleGetEntry returns a single entry by id.
func (s *Server) handleGetEntry(c *fiber.Ctx) error {
	e, err := s.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.storeFailure(c, "failed to get entry", err)
	}
	return c.JSON(e)
}

// handleUpdateEntry handles PUT /entries/:id.
func (s *Server) handleUpdateEntry(c *fiber.Ctx) error {
	var req EntryRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body: "+err.Error())
	}

	e, err := s.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return s.storeFailure(c, "failed to get entry", err)
	}

	req.apply(e)
	e.Touch()
	if err := e.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := s.store.Update(c.Context(), e); err != nil {
		return s.storeFailure(c, "failed to update entry", err)
	}
	return c.JSON(e)
}

// handleDeleteEntry handles DELETE /entries/:id.
func (s *Server) handleDeleteEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.store.Delete(c.Context(), id); err != nil {
		return s.storeFailure(c, "failed to delete entry", err)
	}

	s.logger.Info("entry deleted", "id", id)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleSearchEntries handles GET /entries/search.
// Query parameters:
//   - q (required): case-insensitive substring
//   - limit (optional, default 20)
func (s *Server) handleSearchEntries(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return badRequest(c, "q parameter is required")
	}

	limit, err := positiveInt(c, "limit", defaultSearchLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}

	entries, err := s.store.Search(c.Context(), query, limit)
	if err != nil {
		return s.storeFailure(c, "failed to search entries", err)
	}

	return c.JSON(ListResponse{Count: len(entries), Total: len(entries), Entries: nonNil(entries)})
}

func parseFilter(c *fiber.Ctx) (storage.Filter, error) {
	var f storage.Filter

	if v := c.Query("source"); v != "" {
		src, err := entry.ParseSource(v)
		if err != nil {
			return f, err
		}
		f.Source = &src
	}
	if v := c.Query("type"); v != "" {
		t, err := entry.ParseType(v)
		if err != nil {
			return f, err
		}
		f.Type = &t
	}
	if v := c.Query("category"); v != "" {
		cat, err := entry.ParseCategory(v)
		if err != nil {
			return f, err
		}
		f.Category = &cat
	}

	var err error
	if f.Limit, err = positiveInt(c, "limit", 0); err != nil {
		return f, err
	}
	if v := c.Query("offset"); v != "" {
		f.Offset, err = strconv.Atoi(v)
		if err != nil || f.Offset < 0 {
			return f, errors.New("offset must be a non-negative integer")
		}
	}
	return f, nil
}

func positiveInt(c *fiber.Ctx, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return n, nil
}

func nonNil(entries []*entry.Entry) []*entry.Entry {
	if entries == nil {
		return []*entry.Entry{}
	}
	return entries
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: msg})
}

// storeFailure maps NotFoundError to 404 and anything else to 500.
func (s *Server) storeFailure(c *fiber.Ctx, msg string, err error) error {
	if storage.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	s.logger.Error(msg, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: msg})
}
