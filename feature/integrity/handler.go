package integrity

import (
	"errors"

	"incus-sync/core/logger"
	"incus-sync/feature/integrity/checks"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	// Force import for Swagger
	var _ = checks.SchemaReport{}
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/credentials", h.HandleCredentialsCheck)
	group.Get("/hosts", h.HandleConnectivityCheck)
	group.Get("/bucket", h.HandleBucketCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Performs all available integrity checks (Schema, Credentials, Hosts, Bucket). The hosts check dials every enabled host.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Combined Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.Context()
	report := make(map[string]interface{})

	if schema, err := h.service.CheckSchema(); err != nil {
		report["schema"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["schema"] = schema
	}

	if creds, err := h.service.CheckCredentials(ctx); err != nil {
		report["credentials"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["credentials"] = creds
	}

	if results, err := h.service.CheckConnectivity(ctx); err != nil {
		report["hosts"] = map[string]interface{}{"status": "error", "error": err.Error()}
	} else {
		report["hosts"] = results
	}

	bucket, err := h.service.CheckBucket(ctx)
	switch {
	case errors.Is(err, ErrArchiveDisabled):
		report["bucket"] = map[string]interface{}{"status": "disabled"}
	case err != nil:
		report["bucket"] = map[string]interface{}{"status": "error", "error": err.Error()}
	default:
		report["bucket"] = bucket
	}

	return c.JSON(report)
}

// HandleSchemaCheck checks inventory schema integrity.
// @Summary Check Schema
// @Description Checks if the database schema matches the inventory and host models.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {object} checks.SchemaReport "Schema Check Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/schema [get]
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Starting schema check")

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !report.Matched {
		l.Warn("Schema drift detected", zap.Int("tables", len(report.Tables)))
	}

	return c.JSON(report)
}

// HandleCredentialsCheck checks the connection material of every host.
// @Summary Check Host Credentials
// @Description Checks that sockets and certificate files exist and are readable, that client keys are not world readable and that client certificates are not about to expire.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {array} checks.CredentialReport "Credential Reports"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/credentials [get]
func (h *Handler) HandleCredentialsCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	reports, err := h.service.CheckCredentials(c.Context())
	if err != nil {
		l.Error("Credentials check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	for _, r := range reports {
		if r.Status != "ok" {
			l.Warn("Host credentials need attention", zap.String("host", r.Host), zap.Strings("problems", r.Problems))
		}
	}

	return c.JSON(reports)
}

// HandleConnectivityCheck dials every enabled host.
// @Summary Check Host Connectivity
// @Description Connects to every enabled host and runs the API handshake.
// @Tags integrity
// @Accept json
// @Produce json
// @Success 200 {array} hosts.TestResult "Handshake Results"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/hosts [get]
func (h *Handler) HandleConnectivityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	results, err := h.service.CheckConnectivity(c.Context())
	if err != nil {
		l.Error("Connectivity check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(results)
}

// HandleBucketCheck checks and optionally fixes the report bucket.
// @Summary Check Report Bucket
// @Description Checks if the report archive bucket exists. Optionally creates it.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Create the bucket if missing"
// @Success 200 {object} checks.BucketReport "Bucket Report"
// @Failure 404 {object} map[string]string "Archive Disabled"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/bucket [get]
func (h *Handler) HandleBucketCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckBucket(c.Context())
	if errors.Is(err, ErrArchiveDisabled) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		l.Error("Bucket check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Exists && fix {
		l.Info("Attempting to create missing report bucket")
		if err := h.service.FixBucket(c.Context()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to create bucket",
				"details": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status": "fixed",
			"bucket": report.Bucket,
		})
	}

	return c.JSON(report)
}
