package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	token_adapter "rental-system/internal/adapters/jwt"
	logger_adapter "rental-system/internal/adapters/logger"
	postgres_adapter "rental-system/internal/adapters/postgres"
	rabbitmq_adapter "rental-system/internal/adapters/rabbitmq"
	"rental-system/internal/adapters/rediscache"
	"rental-system/internal/adapters/rest"
	"rental-system/internal/adapters/s3storage"
	"rental-system/internal/configs"
	"rental-system/internal/constants"
	"rental-system/internal/core/port"
	"rental-system/internal/core/usecase"
	fluentlogger "rental-system/pkg/fluent_logger"
	"rental-system/pkg/postgres"
	"rental-system/pkg/rabbitmq/rabbitmq_common"
	"rental-system/pkg/rabbitmq/rabbitmq_consumer"
	"rental-system/pkg/rabbitmq/rabbitmq_producer"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout       = 15 * time.Second
	consumerRetryInterval = 5 * time.Second
)

type App struct {
	config    *configs.AppConfig
	dbPool    *pgxpool.Pool
	apiServer *rest.Server

	redisClient   *redis.Client
	connManager   *rabbitmq_common.ConnectionManager
	eventProducer *rabbitmq_producer.Publisher

	// set when both redis and rabbitmq are enabled
	newCacheConsumer func() (*rabbitmq_consumer.Consumer, error)
	stopConsumer     context.CancelFunc
	consumerDone     chan struct{}

	fluentClient *fluent.Fluent
	logger       port.LoggerPort
}

func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- loggers ---
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	app := &App{
		config:       appConfig,
		fluentClient: fluentClient,
		logger:       appLogger,
	}

	ctx := context.Background()

	// --- persistence ---
	app.dbPool, err = postgres.NewClient(ctx, postgres.Config{DatabaseURL: appConfig.Database.URL})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		app.closeResources()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

	if appConfig.Database.AutoMigrate {
		if err := postgres_adapter.Migrate(ctx, app.dbPool); err != nil {
			appLogger.Error("Failed to apply database schema", err, nil)
			app.closeResources()
			return nil, err
		}
		appLogger.Info("Database schema is up to date.", nil)
	}

	propertyRepo, err := postgres_adapter.NewPostgresPropertyRepository(app.dbPool)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to create property repository: %w", err)
	}
	conversationRepo, err := postgres_adapter.NewPostgresConversationRepository(app.dbPool)
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("failed to create conversation repository: %w", err)
	}

	objectStorage, err := s3storage.NewS3Storage(ctx, s3storage.Config{
		Bucket:          appConfig.S3.Bucket,
		Region:          appConfig.S3.Region,
		Endpoint:        appConfig.S3.Endpoint,
		AccessKeyID:     appConfig.S3.AccessKeyID,
		SecretAccessKey: appConfig.S3.SecretAccessKey,
		PublicBaseURL:   appConfig.S3.PublicBaseURL,
	})
	if err != nil {
		appLogger.Error("Failed to create object storage client", err, nil)
		app.closeResources()
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	// --- optional collaborators ---
	var listingCache port.ListingCachePort
	if appConfig.Redis.Enabled {
		app.redisClient, err = rediscache.NewClient(ctx, rediscache.Config{
			Addr:     appConfig.Redis.Addr,
			Password: appConfig.Redis.Password,
			DB:       appConfig.Redis.DB,
		})
		if err != nil {
			appLogger.Error("Failed to connect to redis", err, nil)
			app.closeResources()
			return nil, err
		}
		cache, err := rediscache.NewListingCache(app.redisClient, appConfig.Redis.TTL)
		if err != nil {
			app.closeResources()
			return nil, err
		}
		listingCache = cache
		appLogger.Info("Redis listing cache enabled.", port.Fields{"addr": appConfig.Redis.Addr})
	}

	var eventPublisher port.EventPublisherPort
	if appConfig.RabbitMQ.Enabled {
		connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
		app.connManager, err = rabbitmq_common.NewConnectionManager(rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL}, connManagerBridge)
		if err != nil {
			appLogger.Error("Failed to connect to RabbitMQ", err, nil)
			app.closeResources()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}

		app.eventProducer, err = rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			ExchangeName:             appConfig.RabbitMQ.Exchange,
			ExchangeType:             constants.ListingEventsExchangeType,
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,
			Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
		}, app.connManager)
		if err != nil {
			appLogger.Error("Failed to create RabbitMQ producer", err, nil)
			app.closeResources()
			return nil, fmt.Errorf("failed to create RabbitMQ producer: %w", err)
		}

		eventAdapter, err := rabbitmq_adapter.NewEventPublisherAdapter(app.eventProducer)
		if err != nil {
			app.closeResources()
			return nil, err
		}
		eventPublisher = eventAdapter
		appLogger.Info("RabbitMQ event producer initialized.", port.Fields{"exchange": appConfig.RabbitMQ.Exchange})

		if listingCache != nil {
			invalidator, err := rabbitmq_adapter.NewCacheInvalidator(listingCache, baseLogger)
			if err != nil {
				app.closeResources()
				return nil, err
			}
			consumerLogger := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_consumer"}))
			app.newCacheConsumer = func() (*rabbitmq_consumer.Consumer, error) {
				// every replica gets its own queue so each one drops its own entries
				return rabbitmq_consumer.NewConsumer(rabbitmq_consumer.ConsumerConfig{
					Config:              rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
					DeclareQueue:        true,
					ExclusiveQueue:      true,
					AutoDeleteQueue:     true,
					ExchangeNameForBind: appConfig.RabbitMQ.Exchange,
					RoutingKeysForBind:  rabbitmq_adapter.CacheInvalidationRoutingKeys,
					PrefetchCount:       10,
					ConsumerTag:         appConfig.AppName + "-cache-invalidator",
					Logger:              consumerLogger,
				}, invalidator.HandleDelivery, app.connManager)
			}
			appLogger.Info("Cache invalidation consumer configured.", nil)
		}
	}

	tokenService, err := token_adapter.NewTokenService(appConfig.Auth.JWTSecret)
	if err != nil {
		app.closeResources()
		return nil, err
	}
	appLogger.Info("All persistence and service adapters initialized.", nil)

	// --- use cases ---
	listingClient := usecase.NewListingClient(propertyRepo, objectStorage, listingCache, eventPublisher, usecase.ListingClientConfig{
		MaxImageBytes:       appConfig.Listings.MaxImageBytes,
		PlaceholderImageURL: appConfig.Listings.PlaceholderImageURL,
	})
	conversationClient := usecase.NewConversationClient(conversationRepo, propertyRepo, eventPublisher, nil)

	// --- REST ---
	app.apiServer = rest.NewServer(
		rest.ServerConfig{Port: appConfig.Rest.PORT, AllowedOrigins: appConfig.Rest.AllowedOrigins},
		rest.NewListingHandler(listingClient, appConfig.Listings.MaxImageBytes),
		rest.NewConversationHandler(conversationClient),
		rest.NewAuthMiddleware(tokenService),
		baseLogger,
	)
	appLogger.Info("REST API server configured.", nil)

	return app, nil
}

// Run starts the HTTP server and blocks until a signal or a server failure.
func (a *App) Run() error {
	defer a.shutdown()

	a.logger.Info("Application is starting...", nil)

	if a.newCacheConsumer != nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopConsumer = cancel
		a.consumerDone = make(chan struct{})
		go a.consumeCacheEvents(ctx)
	}

	serverErrors := make(chan error, 1)
	go func() {
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	a.logger.Info("Application running. Waiting for signals or server error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
		return nil
	case err := <-serverErrors:
		a.logger.Error("Server failed, shutting down", err, nil)
		return err
	}
}

// consumeCacheEvents keeps a cache invalidation consumer running until ctx is cancelled.
// A dropped connection is retried after consumerRetryInterval.
func (a *App) consumeCacheEvents(ctx context.Context) {
	defer close(a.consumerDone)

	for {
		consumer, err := a.newCacheConsumer()
		if err == nil {
			attemptCtx, stopAttempt := context.WithCancel(ctx)
			err = consumer.StartConsuming(attemptCtx)
			stopAttempt()
			if closeErr := consumer.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
		if ctx.Err() != nil {
			return
		}
		a.logger.Warn("Cache invalidation consumer stopped, retrying", port.Fields{
			"error": fmt.Sprint(err), "retry_in": consumerRetryInterval.String(),
		})

		select {
		case <-ctx.Done():
			return
		case <-time.After(consumerRetryInterval):
		}
	}
}

func (a *App) shutdown() {
	a.logger.Info("Shutdown sequence initiated...", nil)

	if a.stopConsumer != nil {
		a.stopConsumer()
		<-a.consumerDone
		a.stopConsumer = nil
		a.logger.Info("Cache invalidation consumer stopped.", nil)
	}

	if a.apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.apiServer.Stop(ctx); err != nil {
			a.logger.Error("Error during API server shutdown", err, nil)
		}
	}

	a.closeResources()
	a.logger.Info("Application shut down gracefully.", nil)

	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			// fluent may already be gone, so report on stdout
			fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
		}
		a.fluentClient = nil
	}
}

// closeResources releases everything except the loggers. Safe to call on a partially built App.
func (a *App) closeResources() {
	if a.eventProducer != nil {
		if err := a.eventProducer.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ producer", err, nil)
		}
		a.eventProducer = nil
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
		a.connManager = nil
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("Error closing redis client", err, nil)
		}
		a.redisClient = nil
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed.", nil)
		a.dbPool = nil
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
