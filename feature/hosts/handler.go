package hosts

import (
	"errors"

	"incus-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the host registry.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the host routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/hosts")
	group.Get("/", h.HandleListHosts)
	group.Get("/:name", h.HandleGetHost)
	group.Get("/:name/test", h.HandleTestHost)
}

// HandleListHosts returns the registered hosts.
// @Summary List Hosts
// @Description List every registered Incus host.
// @Tags hosts
// @Produce json
// @Success 200 {array} hosts.Host "Hosts"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /hosts [get]
func (h *Handler) HandleListHosts(c *fiber.Ctx) error {
	out, err := h.service.All(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Listing hosts failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(out)
}

// HandleGetHost returns one host.
// @Summary Get Host
// @Tags hosts
// @Produce json
// @Param name path string true "Host name"
// @Success 200 {object} hosts.Host "Host"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /hosts/{name} [get]
func (h *Handler) HandleGetHost(c *fiber.Ctx) error {
	host, err := h.service.Get(c.Context(), c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(host)
}

// HandleTestHost checks connectivity to one host.
// @Summary Test Host
// @Description Dial the host and run the API handshake.
// @Tags hosts
// @Produce json
// @Param name path string true "Host name"
// @Success 200 {object} hosts.TestResult "Reachable"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 502 {object} hosts.TestResult "Unreachable"
// @Router /hosts/{name}/test [get]
func (h *Handler) HandleTestHost(c *fiber.Ctx) error {
	host, err := h.service.Get(c.Context(), c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}

	res := h.service.Test(c.Context(), *host)
	if !res.OK {
		logger.WithRayID(h.service.logger, c).Warn("Host test failed",
			zap.String("host", host.Name), zap.String("error", res.Error))
		return c.Status(fiber.StatusBadGateway).JSON(res)
	}
	return c.JSON(res)
}

func errorResponse(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
