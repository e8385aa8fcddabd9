/**
 * @description
 * This is the main entry point for the ledger-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, message brokers, repositories, the core application service, and
 * the HTTP server. It wires everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paywave/ledger-service/internal/api"
	"github.com/paywave/ledger-service/internal/app"
	"github.com/paywave/ledger-service/internal/config"
	"github.com/paywave/ledger-service/internal/store"
	"github.com/paywave/ledger-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if cfg.AccessTokenSecret == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"access token secret must be configured\" env=ACCESS_TOKEN_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting ledger-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	// Configure connection pool for high-traffic scenarios
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish ledger events. The service
	// only publishes, so a producer is all it needs; a broker outage at boot
	// degrades to the no-op fallback.
	var publisher rabbitmq.Publisher
	rabbitProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		publisher = &rabbitmq.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		publisher = rabbitProducer
	}

	var redisClient *redis.Client
	if cfg.TransferRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; transfer rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; transfer rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; transfer rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Token manager for issuing and verifying bearer tokens.
	tokens := app.NewTokenManager(cfg.AccessTokenSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)

	// Initialize the core application service with its dependencies.
	ledgerService := app.NewService(repository, publisher, tokens, app.FeePolicy{
		MinTransferAmount:     cfg.MinTransferAmount,
		SendMoneyFeeThreshold: cfg.SendMoneyFeeThreshold,
		SendMoneyFlatFee:      cfg.SendMoneyFlatFee,
		CashOutFeeBasisPoints: cfg.CashOutFeeBasisPoints,
	})
	if redisClient != nil {
		ledgerService.SetRateLimiter(
			app.NewRedisTransferRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			cfg.TransferRateLimitPerMinute,
		)
	}

	// Initialize the API handlers and router.
	ledgerHandlers := api.NewLedgerHandlers(ledgerService)
	router := api.LedgerRoutes(ledgerHandlers, tokens)

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
