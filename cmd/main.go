package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"petshop/internal/config"
	"petshop/internal/database"
	"petshop/internal/logger"
	"petshop/internal/messaging"
	"petshop/internal/metrics"
	"petshop/internal/services/notification"
	"petshop/internal/services/order"
	"petshop/internal/services/ratelimit"
	"petshop/internal/services/stock"
	"petshop/internal/services/tracking"
	"petshop/migrations"
)

func main() {
	// Parse command line flags
	var (
		mode       = flag.String("mode", "", "Service mode (order-service, confirmation-relay)")
		port       = flag.Int("port", 3000, "HTTP port")
		configPath = flag.String("config", "config.yaml", "Path to config file")
		prefetch   = flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	)
	flag.Parse()

	// Validate required mode flag
	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode": *mode,
		"port": *port,
	})

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		cancel()
	}()

	// Route to appropriate service
	switch *mode {
	case "order-service":
		if err := runOrderService(ctx, cfg, log, *port); err != nil {
			log.Error("service_failed", "Order service failed", requestID, err, nil)
			os.Exit(1)
		}
	case "confirmation-relay":
		if err := runConfirmationRelay(ctx, cfg, log, *prefetch); err != nil {
			log.Error("service_failed", "Confirmation relay failed", requestID, err, nil)
			os.Exit(1)
		}
	default:
		log.Error("validation_failed", fmt.Sprintf("Unknown mode: %s", *mode), requestID, nil, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runOrderService runs the order submission and tracking HTTP service
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger, port int) error {
	requestID := logger.GenerateRequestID()

	// Initialize database
	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Apply the embedded schema migrations
	if err := db.Migrate(ctx, migrations.Files); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Optional Redis cooldown gate
	var rdb *redis.Client
	if addr := cfg.RedisAddr(); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Error("redis_connection_failed", "Redis unavailable, cooldown gate degraded to database only", requestID, err, nil)
		} else {
			log.Info("redis_connected", "Connected to Redis", requestID, nil)
		}
		pingCancel()
	}

	// Initialize messaging
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", "Connected to RabbitMQ", requestID, nil)

	publisher := messaging.NewPublisher(conn, log)
	reg := metrics.NewRegistry()

	// Assemble the submission pipeline
	cooldown := time.Duration(cfg.Orders.CooldownSeconds) * time.Second
	limiter := ratelimit.New(ratelimit.NewRepository(db), rdb, cooldown, log)
	ledger := stock.NewLedger(stock.NewRepository(db), log)

	orderService := order.NewService(order.NewRepository(db), limiter, ledger, publisher,
		log, reg, cooldown, cfg.Orders.MaxItems)
	orderHandler := order.NewHandler(orderService, log)

	trackingService := tracking.NewService(tracking.NewRepository(db), log)
	trackingHandler := tracking.NewHandler(trackingService, log)

	stockHandler := stock.NewHandler(ledger, log, cfg.Admin.Token)

	// Setup HTTP server
	mux := http.NewServeMux()
	orderHandler.Register(mux)
	trackingHandler.Register(mux)
	stockHandler.Register(mux)
	mux.HandleFunc("/health", orderHandler.HealthCheck(func(ctx context.Context) bool {
		return db.Ping(ctx) == nil
	}))
	mux.Handle("/metrics", reg.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	// Start HTTP server in goroutine
	go func() {
		log.Info("service_started", fmt.Sprintf("Order service started on port %d", port), requestID, map[string]interface{}{
			"port":             port,
			"cooldown_seconds": cfg.Orders.CooldownSeconds,
			"max_items":        cfg.Orders.MaxItems,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", "HTTP server failed", requestID, err, nil)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// runConfirmationRelay runs the confirmation consumer
func runConfirmationRelay(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	consumer := messaging.NewConsumer(conn, log, messaging.ConfirmationsQueue, "confirmation-relay", prefetch)
	relay := notification.NewRelay(consumer, log)
	defer relay.Stop()

	if err := relay.Start(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("relay stopped: %w", err)
	}
	return nil
}
