package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/saiganesh141124/flora-intel/auth"
	"github.com/saiganesh141124/flora-intel/cache"
	"github.com/saiganesh141124/flora-intel/config"
	"github.com/saiganesh141124/flora-intel/database"
	"github.com/saiganesh141124/flora-intel/handlers"
	"github.com/saiganesh141124/flora-intel/history"
	"github.com/saiganesh141124/flora-intel/llm"
	"github.com/saiganesh141124/flora-intel/metrics"
	"github.com/saiganesh141124/flora-intel/middleware"
	"github.com/saiganesh141124/flora-intel/openai"
	"github.com/saiganesh141124/flora-intel/pubsub"
	"github.com/saiganesh141124/flora-intel/rabbitmq"
	"github.com/saiganesh141124/flora-intel/service"
	"github.com/saiganesh141124/flora-intel/storage"
	"github.com/saiganesh141124/flora-intel/stubllm"
	ws "github.com/saiganesh141124/flora-intel/websocket"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.SetLevelFromString(cfg.LogLevel)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	log.Info("Starting the plant analysis service...")

	metrics.Register()

	// Initialize database
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.CreatePlantAnalysesTable(); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	ctx := context.Background()

	// Initialize object storage
	imageStore, err := storage.New(ctx, cfg.MinioEndpoint, cfg.MinioRegion, cfg.MinioBucket,
		cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Initialize inference client. Without an API key the service stays up
	// on the deterministic stub so local environments work end to end.
	var llmClient llm.Client
	if cfg.InferenceAPIKey != "" {
		llmClient = openai.NewClient(cfg.InferenceAPIKey, cfg.InferenceModel, cfg.InferenceEndpoint, cfg.InferenceTimeout)
	} else {
		log.Warn("INFERENCE_API_KEY not set, using stub inference client")
		llmClient = stubllm.New()
	}
	log.Infof("Inference provider: %s", llmClient.SourceName())

	// In-process change notification
	broker := pubsub.NewBroker()

	// Optional history list cache
	var listCache *cache.Cache
	if cfg.RedisAddr != "" {
		listCache, err = cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			log.Warnf("Failed to connect to Redis, continuing without cache: %v", err)
			listCache = nil
		}
	}

	// Optional cross-instance change notification
	var publisher *rabbitmq.Publisher
	var subscriber *rabbitmq.Subscriber
	if cfg.AMQPURL != "" {
		publisher, err = rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			log.Warnf("Failed to connect to RabbitMQ, continuing without publisher: %v", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}

		subscriber = rabbitmq.NewSubscriber(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, cfg.AMQPHistoryQueue, broker)
		subscriber.Start()
		defer subscriber.Stop()
	}

	// History store over database + broker
	var store *history.Store
	if publisher != nil {
		store = history.NewStore(db, broker, publisher, listCache)
	} else {
		store = history.NewStore(db, broker, nil, listCache)
	}

	// WebSocket hub for live history updates
	hub := ws.NewHub(broker)
	go hub.Run()

	// Auth and pipeline services
	authService := auth.NewService(cfg.JWTSecret)
	analysisService := service.NewService(llmClient, imageStore, db, store)

	// Initialize handlers
	h := handlers.NewHandlers(analysisService, store, hub, authService)

	// Setup HTTP server
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api/v3")
	api.GET("/live", h.ListenHistory)
	authorized := api.Group("")
	authorized.Use(middleware.AuthMiddleware(authService))
	{
		authorized.POST("/analysis", h.SubmitAnalysis)
		authorized.GET("/analysis", h.ListHistory)
		authorized.GET("/analysis/:id", h.GetAnalysis)
		authorized.DELETE("/analysis/:id", h.DeleteAnalysis)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
