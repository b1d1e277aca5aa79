package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"caredocs/internal/model"
	"caredocs/internal/service"
)

const presignExpiry = 15 * time.Minute

// Headers populated by the upstream authorization layer. Scope is either a
// single facility id or absent for unrestricted requesters.
const (
	scopeFacilityHeader = "X-Scope-Facility-ID"
	uploaderHeader      = "X-Uploader-ID"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay thin: parse, call the service, translate errors.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Ingest document endpoint (multipart/form-data, field name: file)
	app.Post("/documents", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		in := service.IngestInput{
			Title:        c.FormValue("title"),
			Description:  c.FormValue("description"),
			Category:     c.FormValue("category"),
			Filename:     fh.Filename,
			DeclaredMIME: fh.Header.Get("Content-Type"),
			FacilityID:   c.FormValue("facility_id"),
			ResidentID:   c.FormValue("resident_id"),
			UploaderID:   c.Get(uploaderHeader),
		}

		if v := c.FormValue("expiry_date"); v != "" {
			t, perr := time.Parse("2006-01-02", v)
			if perr != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY_DATE", "expiry_date must be an ISO date (YYYY-MM-DD)")
			}
			in.ExpiryDate = &t
		}
		if v := c.FormValue("confidential"); v != "" {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_CONFIDENTIAL", "confidential must be a boolean")
			}
			in.Confidential = b
		}
		if form, ferr := c.MultipartForm(); ferr == nil {
			in.Tags = form.Value["tags"]
		}

		scope := model.Scope{FacilityID: c.Get(scopeFacilityHeader)}

		doc, err := docSvc.Ingest(c.UserContext(), f, in, scope)
		if err != nil {
			return writeIngestError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	})

	// Get document by ID
	app.Get("/documents/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			return writeIngestError(c, err)
		}
		return c.JSON(doc)
	})

	// Presigned download URL for a document's bytes
	app.Get("/documents/:id/download", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := docSvc.PresignDownload(c.UserContext(), id, presignExpiry)
		if err != nil {
			return writeIngestError(c, err)
		}
		return c.JSON(fiber.Map{"url": u, "expires_in_seconds": int(presignExpiry.Seconds())})
	})

	// Edit mutable metadata of a document
	app.Patch("/documents/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var body struct {
			Title        string   `json:"title"`
			Description  string   `json:"description"`
			Category     string   `json:"category"`
			ExpiryDate   string   `json:"expiry_date"`
			Confidential bool     `json:"confidential"`
			Tags         []string `json:"tags"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		in := service.MetadataUpdate{
			Title:        body.Title,
			Description:  body.Description,
			Category:     body.Category,
			Confidential: body.Confidential,
			Tags:         body.Tags,
		}
		if body.ExpiryDate != "" {
			t, perr := time.Parse("2006-01-02", body.ExpiryDate)
			if perr != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY_DATE", "expiry_date must be an ISO date (YYYY-MM-DD)")
			}
			in.ExpiryDate = &t
		}

		doc, err := docSvc.UpdateMetadata(c.UserContext(), id, in)
		if err != nil {
			return writeIngestError(c, err)
		}
		return c.JSON(doc)
	})

	// Remove document by ID (record and bytes together)
	app.Delete("/documents/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Remove(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeIngestError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
