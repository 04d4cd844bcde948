package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"incus-sync/core/loader"
	"incus-sync/core/logger"
	"incus-sync/core/middleware/auth"
	"incus-sync/core/middleware/rayid"

	"incus-sync/feature/hosts"
	"incus-sync/feature/instancesync"
	"incus-sync/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "incus-sync/docs/swagger"
)

// @title Incus Sync API
// @version 1.0
// @description API for synchronizing Incus instances into the virtualization inventory.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync server",
	Long:  `Starts the HTTP server exposing the sync trigger, the host registry and the integrity checks.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Wire services
		a, err := bootstrap()
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		defer a.close()
		logg := a.logger
		zap.ReplaceGlobals(logg)

		// 2. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		// 3. Initialize Feature Loader
		mgr := loader.NewManager()

		hostsFeature := hosts.NewFeature(a.db, logg)
		hostsFeature.Service().WithDialer(hosts.DefaultDial, a.cfg.Sync.Timeout())
		mgr.Register(hostsFeature)
		mgr.Register(instancesync.NewFeature(a.sync))
		mgr.Register(integrity.NewFeature(a.integrity))

		// Middleware Registration
		// 1. RayID (Must be first to trace everything)
		app.Use(rayid.New())

		// 2. Logging Middleware (Zap + RayID)
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// 3. Public endpoints
		app.Get("/swagger/*", swagger.HandlerDefault)
		if a.cfg.Server.Metrics {
			app.Get("/metrics", a.registry.Handler())
		}

		// 4. Auth (Protect API)
		app.Use(auth.New(auth.Config{ApiKey: a.cfg.Server.ApiKey, Skip: []string{"/swagger", "/metrics"}}))

		// 5. Load Features
		if err := mgr.LoadAll(app); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 6. Start Server
		go func() {
			logg.Info("Starting server", zap.String("address", a.cfg.Server.Address()))
			if err := app.Listen(a.cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
