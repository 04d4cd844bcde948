package instancesync

import (
	"errors"
	"strings"

	"incus-sync/core/logger"
	"incus-sync/feature/hosts"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests that trigger sync runs.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/", h.HandleSyncAll)
	group.Get("/last", h.HandleLastRun)
	group.Get("/reports", h.HandleListReports)
	group.Get("/reports/*", h.HandleGetReport)
	group.Post("/:host", h.HandleSyncHost)
}

// HandleSyncAll synchronizes every enabled host.
// @Summary Sync All Hosts
// @Description Runs a sync pass over every enabled host and returns the aggregated result.
// @Tags sync
// @Produce json
// @Param dry_run query boolean false "Compute outcomes without writing"
// @Param prune query boolean false "Delete interfaces and disks no longer reported"
// @Success 200 {object} instancesync.RunResult "Run Result"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync [post]
func (h *Handler) HandleSyncAll(c *fiber.Ctx) error {
	return h.run(c, "all")
}

// HandleSyncHost synchronizes one host.
// @Summary Sync Host
// @Description Runs a sync pass over one host, enabled or not.
// @Tags sync
// @Produce json
// @Param host path string true "Host name"
// @Param dry_run query boolean false "Compute outcomes without writing"
// @Param prune query boolean false "Delete interfaces and disks no longer reported"
// @Success 200 {object} instancesync.RunResult "Run Result"
// @Failure 404 {object} map[string]string "Host Not Found"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sync/{host} [post]
func (h *Handler) HandleSyncHost(c *fiber.Ctx) error {
	return h.run(c, c.Params("host"))
}

func (h *Handler) run(c *fiber.Ctx, target string) error {
	l := logger.WithRayID(h.service.logger, c)
	opts := h.service.Options(c.QueryBool("prune"), c.QueryBool("dry_run"))

	l.Info("Sync triggered", zap.String("target", target), zap.Bool("dry_run", opts.DryRun), zap.Bool("prune", opts.Prune))
	res, err := h.service.Run(c.Context(), target, opts)
	if err != nil {
		if errors.Is(err, hosts.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		l.Error("Sync failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(res)
}

// HandleLastRun returns the latest run of this process.
// @Summary Last Run
// @Tags sync
// @Produce json
// @Success 200 {object} instancesync.RunResult "Run Result"
// @Failure 404 {object} map[string]string "No Run Yet"
// @Router /sync/last [get]
func (h *Handler) HandleLastRun(c *fiber.Ctx) error {
	res := h.service.Last()
	if res == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no sync run yet"})
	}
	return c.JSON(res)
}

// HandleListReports lists archived run reports.
// @Summary List Reports
// @Tags sync
// @Produce json
// @Success 200 {array} instancesync.ReportInfo "Reports"
// @Failure 404 {object} map[string]string "Archive Disabled"
// @Router /sync/reports [get]
func (h *Handler) HandleListReports(c *fiber.Ctx) error {
	archive := h.service.Archive()
	if archive == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report archive is disabled"})
	}
	reports, err := archive.List(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Listing reports failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(reports)
}

// HandleGetReport returns one archived report.
// @Summary Get Report
// @Tags sync
// @Produce json
// @Param key path string true "Report key (e.g. runs/2026/01/02/<run id>.json)"
// @Success 200 {object} instancesync.RunResult "Run Result"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /sync/reports/{key} [get]
func (h *Handler) HandleGetReport(c *fiber.Ctx) error {
	archive := h.service.Archive()
	if archive == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "report archive is disabled"})
	}
	key := c.Params("*")
	if !strings.HasPrefix(key, reportPrefix) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown report"})
	}
	res, err := archive.Get(c.Context(), key)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(res)
}
