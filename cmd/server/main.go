package main

import (
	"context"
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
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/avolab/guideline-api/internal/client"
	"github.com/avolab/guideline-api/internal/config"
	"github.com/avolab/guideline-api/internal/generator"
	"github.com/avolab/guideline-api/internal/handler"
	"github.com/avolab/guideline-api/internal/service"
	"github.com/avolab/guideline-api/internal/store"
	"github.com/avolab/guideline-api/internal/worker"
	ws "github.com/avolab/guideline-api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Pick the text generator explicitly at startup. No connectivity
	// probing here; health is reported by /health for orchestration.
	var textGenerator generator.TextGenerator
	generatorMode := "openai"
	openaiClient := client.NewOpenAIClient(&cfg.OpenAI)
	if openaiClient.IsConfigured() {
		textGenerator = generator.NewOpenAIGenerator(openaiClient)
	} else {
		log.Println("Info: OPENAI_API_KEY not set, using static generator output")
		textGenerator = generator.NewStaticGenerator()
		generatorMode = "static"
	}

	// Initialize job store and service
	jobTTL := time.Duration(cfg.Redis.JobTTLDays) * 24 * time.Hour
	jobStore := store.NewRedisJobStore(redisClient, jobTTL)
	jobService := service.NewJobService(jobStore, asynqClient, service.QueueConfig{
		Queue:     cfg.Worker.Queue,
		MaxRetry:  cfg.Worker.MaxRetry,
		Retention: time.Duration(cfg.Worker.RetentionHours) * time.Hour,
	})

	// Initialize handlers
	jobHandler := handler.NewJobHandler(jobService, validate)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":   "guideline-api",
			"version":   "1.0.0",
			"timestamp": time.Now().Unix(),
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		redisOK := redisClient.Ping(c.Context()).Err() == nil
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":     redisOK,
				"generator": generatorMode,
			},
		})
	})

	// API routes
	api := app.Group("/api")
	api.Post("/jobs", jobHandler.Create)
	api.Get("/jobs/:eventId", jobHandler.Status)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/jobs/:eventId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("eventId"))
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, jobStore, textGenerator, hub)

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
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, jobStore store.JobStore, gen generator.TextGenerator, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				cfg.Worker.Queue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("Task %s error: %v", task.Type(), err)
			}),
		},
	)

	guidelineWorker := worker.NewGuidelineWorker(jobStore, gen, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeGuidelineIngest, guidelineWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
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
