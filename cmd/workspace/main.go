package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/motionworks/workspace/internal/config"
	"github.com/motionworks/workspace/internal/handler"
	"github.com/motionworks/workspace/internal/middleware"
	"github.com/motionworks/workspace/internal/session"
	ws "github.com/motionworks/workspace/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize the workspace session
	sess := session.New(&cfg.Backend, hub)
	log.Printf("Workspace session %s targeting backend %s", sess.ID, cfg.Backend.BaseURL)

	// Initialize handlers
	workspaceHandler := handler.NewWorkspaceHandler(sess, validate)
	imageHandler := handler.NewImageHandler(sess.Images)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Workspace routes
	workspace := app.Group("/workspace", authMiddleware.Authenticate())

	workspace.Get("/images", imageHandler.ListSlots)
	workspace.Post("/images/:slotId", imageHandler.UploadSlot)
	workspace.Delete("/images/:slotId", imageHandler.ClearSlot)

	workspace.Get("/workflow", workspaceHandler.GetWorkflow)
	workspace.Post("/workflow", workspaceHandler.SelectWorkflow)
	workspace.Post("/workflow/toggle", workspaceHandler.ToggleSegmentMode)

	workspace.Post("/generate", workspaceHandler.Generate)
	workspace.Get("/jobs", workspaceHandler.ListJobs)
	workspace.Get("/jobs/:jobId", workspaceHandler.JobStatus)
	workspace.Post("/jobs/:jobId/cancel", workspaceHandler.CancelJob)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Workspace gateway starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
