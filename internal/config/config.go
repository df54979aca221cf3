package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Driver names for the queue store and the change bus
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRabbitMQ = "rabbitmq"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
	RabbitMQ  RabbitMQConfig   `yaml:"rabbitmq"`
	Logging   LoggingConfig    `yaml:"logging"`
	App       AppConfig        `yaml:"app"`
	Queue     QueueConfig      `yaml:"queue"`
	Notify    NotifyConfig     `yaml:"notify"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
	Screeners []ScreenerConfig `yaml:"screeners"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	Migrate         bool          `yaml:"migrate"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Connection ConnectionConfig `yaml:"connection"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	NoColor      bool   `yaml:"no_color"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// QueueConfig selects the queue backends
type QueueConfig struct {
	Store          string `yaml:"store"`
	Bus            string `yaml:"bus"`
	Key            string `yaml:"key"`
	MeetingBaseURL string `yaml:"meeting_base_url"`
	StrictScreener bool   `yaml:"strict_screener"`
	BusBuffer      int    `yaml:"bus_buffer"`
}

// NotifyConfig holds the change consumer settings
type NotifyConfig struct {
	HandlerBuffer  int           `yaml:"handler_buffer"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
	QueueLog       bool          `yaml:"queue_log"`
}

// WebSocketConfig holds websocket session settings
type WebSocketConfig struct {
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadLimit      int64         `yaml:"read_limit"`
	OriginPatterns []string      `yaml:"origin_patterns"`
}

// ScreenerConfig seeds one screener into the directory at startup
type ScreenerConfig struct {
	FirstName string `yaml:"firstname"`
	LastName  string `yaml:"lastname"`
	Email     string `yaml:"email"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Queue.Store == "" {
		c.Queue.Store = DriverPostgres
	}
	if c.Queue.Bus == "" {
		c.Queue.Bus = DriverRabbitMQ
	}
	if c.Queue.Key == "" {
		c.Queue.Key = "StudentQueue"
	}
	if c.Queue.MeetingBaseURL == "" {
		c.Queue.MeetingBaseURL = "https://meet.jit.si"
	}
	if c.Queue.BusBuffer <= 0 {
		c.Queue.BusBuffer = 64
	}
	if c.RabbitMQ.Exchange.Name == "" {
		c.RabbitMQ.Exchange.Name = "queue"
	}
	if c.RabbitMQ.Exchange.Type == "" {
		c.RabbitMQ.Exchange.Type = "fanout"
	}
	if c.Notify.HandlerBuffer <= 0 {
		c.Notify.HandlerBuffer = 64
	}
	if c.Notify.HandlerTimeout <= 0 {
		c.Notify.HandlerTimeout = 5 * time.Second
	}
	if c.WebSocket.WriteTimeout <= 0 {
		c.WebSocket.WriteTimeout = 5 * time.Second
	}
	if c.WebSocket.ReadLimit <= 0 {
		c.WebSocket.ReadLimit = 32 << 10
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
}

// NeedsDatabase reports whether any enabled component uses PostgreSQL
func (c *Config) NeedsDatabase() bool {
	return c.Queue.Store == DriverPostgres || c.Notify.QueueLog
}

// Validate checks the configuration of the queue service
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	switch c.Queue.Store {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown queue store: %q", c.Queue.Store)
	}

	switch c.Queue.Bus {
	case DriverRabbitMQ, DriverMemory:
	default:
		return fmt.Errorf("unknown queue bus: %q", c.Queue.Bus)
	}

	if c.NeedsDatabase() {
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}

	if c.Queue.Bus == DriverRabbitMQ {
		if err := c.validateRabbitMQ(); err != nil {
			return err
		}
	}

	for i, sc := range c.Screeners {
		if sc.Email == "" {
			return fmt.Errorf("screener %d: email is required", i)
		}
	}

	return nil
}

// ValidateLogWorker checks the configuration of the standalone queue-log consumer
func (c *Config) ValidateLogWorker() error {
	if c.Queue.Store != DriverPostgres {
		return fmt.Errorf("log worker needs the postgres queue store, got %q", c.Queue.Store)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}
	return c.validateRabbitMQ()
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Type != "fanout" {
		return fmt.Errorf("rabbitmq exchange must be fanout, got %q", c.RabbitMQ.Exchange.Type)
	}

	return nil
}
