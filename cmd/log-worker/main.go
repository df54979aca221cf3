package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/screening-queue/internal/bus"
	"github.com/cuongbtq/screening-queue/internal/config"
	"github.com/cuongbtq/screening-queue/internal/notify"
	"github.com/cuongbtq/screening-queue/internal/queue"
	"github.com/cuongbtq/screening-queue/internal/queue/store"
	"github.com/cuongbtq/screening-queue/internal/queuelog"
	"github.com/cuongbtq/screening-queue/shared/logger"
	"github.com/cuongbtq/screening-queue/shared/postgresql"
	"github.com/cuongbtq/screening-queue/shared/rabbitmq"
)

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

	defaultConfigPath := os.Getenv("LOG_WORKER_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/log-worker/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateLogWorker(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.Logging.NoColor,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting log worker",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbClient, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	if cfg.Database.Migrate {
		if err := dbClient.EnsureSchema(ctx, append([]string{store.PostgresSchema}, queuelog.Schema...)...); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	appLogger.Info("Database connection established")

	rabbitClient, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.RabbitMQ.Host,
		Port:               cfg.RabbitMQ.Port,
		User:               cfg.RabbitMQ.User,
		Password:           cfg.RabbitMQ.Password,
		VHost:              cfg.RabbitMQ.VHost,
		ExchangeName:       cfg.RabbitMQ.Exchange.Name,
		ExchangeType:       cfg.RabbitMQ.Exchange.Type,
		ExchangeDurable:    cfg.RabbitMQ.Exchange.Durable,
		ExchangeAutoDelete: cfg.RabbitMQ.Exchange.AutoDelete,
		RetryAttempts:      cfg.RabbitMQ.Connection.RetryAttempts,
		RetryInterval:      cfg.RabbitMQ.Connection.RetryInterval,
		Heartbeat:          cfg.RabbitMQ.Connection.Heartbeat,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	// the worker only reads the queue; the queue service is the single writer
	reader := queue.NewEngine(&queue.Config{
		Store:  store.NewPostgres(dbClient.GetDB(), cfg.Queue.Key, appLogger.Component("store")),
		Logger: appLogger.Component("queue"),
	})

	dispatcher := notify.NewDispatcher(&notify.Config{
		Name:       "log-worker",
		Subscriber: bus.NewRabbitMQ(rabbitClient, appLogger.Component("bus")),
		Handlers: []notify.Handler{
			notify.NewQueueLog(reader, queuelog.NewStorage(dbClient.GetDB()), appLogger.Component("queue-log")),
		},
		Logger:         appLogger.Component("notify"),
		Buffer:         cfg.Notify.HandlerBuffer,
		HandlerTimeout: cfg.Notify.HandlerTimeout,
	})
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	appLogger.Info("Log worker started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case amqpErr := <-rabbitClient.NotifyClose():
		appLogger.Error("RabbitMQ connection lost",
			slog.Any("error", amqpErr),
		)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		dispatcher.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Dispatcher stopped gracefully")
	case <-time.After(cfg.Server.ShutdownTimeout):
		appLogger.Warn("Dispatcher shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Log worker shutdown complete")
	return nil
}
