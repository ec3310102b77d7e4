package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"caredesk-server/internal/cache"
	"caredesk-server/internal/canvas"
	"caredesk-server/internal/chat"
	"caredesk-server/internal/config"
	"caredesk-server/internal/events"
	"caredesk-server/internal/gateway"
	"caredesk-server/internal/models"
	"caredesk-server/internal/routes"
	"caredesk-server/internal/tasks"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Create a DatabaseConfig for models
	modelDbConfig := models.DatabaseConfig{
		DSN: cfg.Database.DSN,
	}

	// Initialize database connection
	db, err := models.InitDB(modelDbConfig)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	// Redis-backed preview cache. The server runs without it when redis is
	// unreachable; conversation lists just always hit the database.
	var previews *cache.PreviewCache
	var invalidator chat.PreviewInvalidator
	redisStore, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Printf("Redis unavailable, preview cache disabled: %v", err)
	} else {
		previews = cache.NewPreviewCache(redisStore)
		invalidator = previews
		defer redisStore.Close()
	}

	// WhatsApp gateway client and the messaging core
	gw := gateway.NewClient(cfg.Gateway, cfg.GatewaySendRatePerSec)
	bus := events.NewBus()
	chatSvc := chat.NewService(gw, bus, invalidator)

	// Canvas auto-save sessions
	canvasMgr := canvas.NewManager(db, time.Duration(cfg.AutoSaveDelayMillis)*time.Millisecond)

	// Background campaign workers over redis
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL for task queue: %v", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	worker := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Queues:      map[string]int{tasks.QueueCampaigns: 1},
	})
	mux := asynq.NewServeMux()
	tasks.NewCampaignProcessor(db, gw).Register(mux)
	go func() {
		if err := worker.Run(mux); err != nil {
			log.Printf("Campaign worker stopped: %v", err)
		}
	}()

	// Initialize Gin router
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Set up routes
	routes.SetupRoutes(router, routes.Deps{
		DB:       db,
		Config:   cfg,
		Chat:     chatSvc,
		Gateway:  gw,
		Bus:      bus,
		Previews: previews,
		Canvas:   canvasMgr,
		Queue:    queueClient,
	})

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	fmt.Printf("Server running on port %s\n", cfg.Port)
	if err := router.Run(serverAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
