package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/screening-queue/internal/api/handler"
	"github.com/cuongbtq/screening-queue/internal/api/router"
	"github.com/cuongbtq/screening-queue/internal/bus"
	"github.com/cuongbtq/screening-queue/internal/config"
	"github.com/cuongbtq/screening-queue/internal/notify"
	"github.com/cuongbtq/screening-queue/internal/queue"
	"github.com/cuongbtq/screening-queue/internal/queue/domain"
	"github.com/cuongbtq/screening-queue/internal/queue/store"
	"github.com/cuongbtq/screening-queue/internal/queuelog"
	"github.com/cuongbtq/screening-queue/internal/screener"
	"github.com/cuongbtq/screening-queue/internal/screening"
	"github.com/cuongbtq/screening-queue/internal/ws"
	"github.com/cuongbtq/screening-queue/shared/logger"
	"github.com/cuongbtq/screening-queue/shared/postgresql"
	"github.com/cuongbtq/screening-queue/shared/rabbitmq"
)

// changeBus carries queue change messages both ways
type changeBus interface {
	bus.Publisher
	bus.Subscriber
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("QUEUE_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/queue-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting queue service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("store", cfg.Queue.Store),
		slog.String("bus", cfg.Queue.Bus),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthChecks := make(map[string]handler.HealthCheck)

	var dbClient *postgresql.Client
	if cfg.NeedsDatabase() {
		dbClient, err = initPostgreSQL(ctx, &cfg.Database, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()

		healthChecks["database"] = dbClient.HealthCheck
		appLogger.Info("Database connection established")
	}

	directory, err := initDirectory(ctx, cfg.Screeners, dbClient)
	if err != nil {
		return fmt.Errorf("failed to initialize screener directory: %w", err)
	}

	var queueStore store.Store = store.NewMemory()
	var archive screening.Archiver = screening.NewMemory()
	if dbClient != nil {
		archive = screening.NewPostgres(dbClient.GetDB())
	}
	if cfg.Queue.Store == config.DriverPostgres {
		queueStore = store.NewPostgres(dbClient.GetDB(), cfg.Queue.Key, appLogger.Component("store"))
	}

	var changes changeBus
	switch cfg.Queue.Bus {
	case config.DriverRabbitMQ:
		rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()

		healthChecks["rabbitmq"] = func(ctx context.Context) error {
			if !rabbitClient.IsConnected() {
				return errors.New("rabbitmq connection is closed")
			}
			return nil
		}
		changes = bus.NewRabbitMQ(rabbitClient, appLogger.Component("bus"))
		appLogger.Info("RabbitMQ connection established")
	default:
		changes = bus.NewMemory(cfg.Queue.BusBuffer, appLogger.Component("bus"))
	}

	policy := domain.IsValidScreenerChange
	if cfg.Queue.StrictScreener {
		policy = domain.StrictScreenerChange
	}

	engine := queue.NewEngine(&queue.Config{
		Store:          queueStore,
		Publisher:      changes,
		Logger:         appLogger.Component("queue"),
		MeetingBaseURL: cfg.Queue.MeetingBaseURL,
		ScreenerPolicy: policy,
	})

	hub := ws.NewHub(&ws.Config{
		Queue:          engine,
		Logger:         appLogger.Component("ws"),
		WriteTimeout:   cfg.WebSocket.WriteTimeout,
		ReadLimit:      cfg.WebSocket.ReadLimit,
		OriginPatterns: cfg.WebSocket.OriginPatterns,
	})

	handlers := []notify.Handler{
		notify.NewStudentPush(engine, hub, directory, appLogger.Component("student-push")),
	}
	if cfg.Notify.QueueLog {
		handlers = append(handlers, notify.NewQueueLog(engine, queuelog.NewStorage(dbClient.GetDB()), appLogger.Component("queue-log")))
	}

	dispatcher := notify.NewDispatcher(&notify.Config{
		Name:           "queue-service",
		Subscriber:     changes,
		Handlers:       handlers,
		Logger:         appLogger.Component("notify"),
		Buffer:         cfg.Notify.HandlerBuffer,
		HandlerTimeout: cfg.Notify.HandlerTimeout,
	})
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer dispatcher.Stop()

	deps := &handler.Dependencies{
		Logger:       appLogger.Component("http"),
		Queue:        engine,
		Screeners:    directory,
		Archive:      archive,
		WebSocket:    hub,
		HealthChecks: healthChecks,
	}
	if dbClient != nil {
		deps.QueueLog = queuelog.NewStorage(dbClient.GetDB())
	}

	r := initRouter(cfg.App.Environment, deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	appLogger.Info("Queue service is running",
		slog.String("address", addr),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Server failed",
			slog.Any("error", err),
		)
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.NoColor,
	})
}

// initPostgreSQL connects to the database and applies the schema when enabled
func initPostgreSQL(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	client, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Migrate {
		statements := []string{store.PostgresSchema, screener.Schema, screening.Schema}
		statements = append(statements, queuelog.Schema...)
		if err := client.EnsureSchema(ctx, statements...); err != nil {
			client.Close()
			return nil, err
		}
	}

	return client, nil
}

// initDirectory builds the screener directory and seeds the configured screeners
func initDirectory(ctx context.Context, seeds []config.ScreenerConfig, dbClient *postgresql.Client) (screener.Directory, error) {
	if dbClient == nil {
		static := screener.NewStatic()
		for _, s := range seeds {
			static.Add(screener.Screener{FirstName: s.FirstName, LastName: s.LastName, Email: s.Email})
		}
		return static, nil
	}

	directory := screener.NewPostgres(dbClient.GetDB())
	for _, s := range seeds {
		sc := &screener.Screener{FirstName: s.FirstName, LastName: s.LastName, Email: s.Email}
		if err := directory.Register(ctx, sc); err != nil {
			return nil, err
		}
	}
	return directory, nil
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
	}, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
