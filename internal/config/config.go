package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig `json:"server"`

	// MySQL holds the user directory
	Database DatabaseConfig `json:"database"`

	// MongoDB holds messages, media and notifications
	MongoDB MongoDBConfig `json:"mongodb"`

	JWT JWTConfig `json:"jwt"`

	Realtime RealtimeConfig `json:"realtime"`

	Notification NotificationConfig `json:"notification"`

	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host           string   `json:"host"`
	Port           string   `json:"port"`
	GRPCPort       string   `json:"grpc_port"`
	ReadTimeout    int      `json:"read_timeout"`  // Seconds
	WriteTimeout   int      `json:"write_timeout"` // Seconds
	Environment    string   `json:"environment"`   // development, staging, production
	AllowedOrigins []string `json:"allowed_origins"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

type MongoDBConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
}

type JWTConfig struct {
	Secret string        `json:"-"`
	Issuer string        `json:"issuer"`
	TTL    time.Duration `json:"ttl"`
}

// RealtimeConfig tunes the websocket gateway.
type RealtimeConfig struct {
	AuthTimeout           time.Duration `json:"auth_timeout"`
	HandlerTimeout        time.Duration `json:"handler_timeout"`
	SendBufferSize        int           `json:"send_buffer_size"`
	MaxMessageBytes       int64         `json:"max_message_bytes"`
	PongWait              time.Duration `json:"pong_wait"`
	WriteWait             time.Duration `json:"write_wait"`
	EventRate             float64       `json:"event_rate"` // events per second per connection
	EventBurst            int           `json:"event_burst"`
	MaxConnectionsPerUser int           `json:"max_connections_per_user"` // 0 disables the cap
}

// NotificationConfig contains notification system configuration
type NotificationConfig struct {
	Workers           int  `json:"workers"`             // Number of worker goroutines
	ChannelBufferSize int  `json:"channel_buffer_size"` // Channel buffer size
	Enabled           bool `json:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, console
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Host:           getEnvOrDefault("HTTP_HOST", "0.0.0.0"),
			Port:           getEnvOrDefault("HTTP_PORT", "7005"),
			GRPCPort:       getEnvOrDefault("GRPC_PORT", "7006"),
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 15),
			Environment:    getEnvOrDefault("ENVIRONMENT", "development"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Host:         getEnvOrDefault("MYSQL_HOST", "localhost"),
			Port:         getEnvOrDefault("MYSQL_PORT", "3306"),
			Username:     getEnvOrDefault("MYSQL_USERNAME", "gosocial"),
			Password:     getEnvOrDefault("MYSQL_PASSWORD", "gosocial123"),
			DatabaseName: getEnvOrDefault("MYSQL_DATABASE", "gosocial"),
			MaxOpenConns: getEnvAsInt("MYSQL_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("MYSQL_MAX_IDLE_CONNS", 5),
		},
		MongoDB: MongoDBConfig{
			Host:     getEnvOrDefault("MONGO_HOST", "localhost"),
			Port:     getEnvOrDefault("MONGO_PORT", "27017"),
			Username: getEnvOrDefault("MONGO_USERNAME", "admin"),
			Password: getEnvOrDefault("MONGO_PASSWORD", "admin123"),
			Database: getEnvOrDefault("MONGO_DATABASE", "gosocial"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getEnvOrDefault("JWT_ISSUER", "gosocial"),
			TTL:    getEnvAsDuration("JWT_TTL", 24*time.Hour),
		},
		Realtime: RealtimeConfig{
			AuthTimeout:           getEnvAsDuration("REALTIME_AUTH_TIMEOUT", 10*time.Second),
			HandlerTimeout:        getEnvAsDuration("REALTIME_HANDLER_TIMEOUT", 15*time.Second),
			SendBufferSize:        getEnvAsInt("REALTIME_SEND_BUFFER", 256),
			MaxMessageBytes:       int64(getEnvAsInt("REALTIME_MAX_MESSAGE_BYTES", 64*1024)),
			PongWait:              getEnvAsDuration("REALTIME_PONG_WAIT", 60*time.Second),
			WriteWait:             getEnvAsDuration("REALTIME_WRITE_WAIT", 10*time.Second),
			EventRate:             getEnvAsFloat("REALTIME_EVENT_RATE", 20),
			EventBurst:            getEnvAsInt("REALTIME_EVENT_BURST", 40),
			MaxConnectionsPerUser: getEnvAsInt("REALTIME_MAX_CONNS_PER_USER", 10),
		},
		Notification: NotificationConfig{
			Workers:           getEnvAsInt("NOTIF_WORKERS", 5),
			ChannelBufferSize: getEnvAsInt("NOTIF_BUFFER", 1000),
			Enabled:           getEnvAsBool("NOTIF_ENABLED", true),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// Validate rejects configurations the service cannot run with.
func (cfg *Config) Validate() error {
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.Realtime.AuthTimeout <= 0 {
		return fmt.Errorf("REALTIME_AUTH_TIMEOUT must be positive")
	}
	if cfg.Realtime.SendBufferSize <= 0 {
		return fmt.Errorf("REALTIME_SEND_BUFFER must be positive")
	}
	return nil
}

func (cfg *Config) DSN() string {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DatabaseName,
	)
}

func (cfg *Config) GetMongoURI() string {
	if cfg.MongoDB.Username == "" {
		return fmt.Sprintf("mongodb://%s:%s/%s", cfg.MongoDB.Host, cfg.MongoDB.Port, cfg.MongoDB.Database)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin",
		cfg.MongoDB.Username,
		cfg.MongoDB.Password,
		cfg.MongoDB.Host,
		cfg.MongoDB.Port,
		cfg.MongoDB.Database,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Invalid number for %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Invalid bool for %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
