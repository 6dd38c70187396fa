package api

import (
	"bytes"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/recall/pkg/transfer"
)

// handleExport handles GET /export?format=json|yaml.
func (s *Server) handleExport(c *fiber.Ctx) error {
	format, err := transfer.ParseFormat(c.Query("format"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	var buf bytes.Buffer
	n, err := transfer.Export(c.Context(), s.store, &buf, format)
	if err != nil {
		return s.storeFailure(c, "failed to export entries", err)
	}

	s.logger.Debug("exported entries", "count", n, "format", string(format))
	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="recall-export.`+string(format)+`"`)
	return c.Send(buf.Bytes())
}

// handleImport handles POST /import?format=json|yaml&overwrite=bool.
func (s *Server) handleImport(c *fiber.Ctx) error {
	format, err := transfer.ParseFormat(c.Query("format"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	overwrite := false
	if v := c.Query("overwrite"); v != "" {
		overwrite, err = strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "overwrite must be a boolean")
		}
	}

	res, err := transfer.Import(c.Context(), s.store, bytes.NewReader(c.Body()), format, transfer.ImportOptions{
		Overwrite:    overwrite,
		MarkImported: true,
	})
	if err != nil {
		if res == nil {
			return badRequest(c, err.Error())
		}
		return s.storeFailure(c, "failed to import entries", err)
	}

	s.logger.Info("imported entries",
		"created", res.Created,
		"updated", res.Updated,
		"skipped", res.Skipped,
	)
	return c.JSON(res)
}
