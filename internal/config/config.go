package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Storage   Storage   `mapstructure:"storage"`
	Kafka     Kafka     `mapstructure:"kafka"`
	Redis     Redis     `mapstructure:"redis"`
	Retry     Retry     `mapstructure:"retry"`
	Upload    Upload    `mapstructure:"upload"`
	Migration Migration `mapstructure:"migration"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP address to listen on, e.g. ":8080"
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Storage holds configuration for the object storage holding renditions.
type Storage struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	BucketName    string `mapstructure:"bucket_name"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"` // CDN origin used in rendition URLs
	CacheControl  string `mapstructure:"cache_control"`
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	Brokers          []string `mapstructure:"brokers"`           // List of Kafka broker addresses
	UploadTopic      string   `mapstructure:"upload_topic"`      // Topic receiving asset uploaded events
	MaintenanceTopic string   `mapstructure:"maintenance_topic"` // Topic carrying migration commands
	GroupID          string   `mapstructure:"group_id"`          // Consumer group ID
}

// Redis holds configuration for the document read cache.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Upload holds the upload pipeline limits.
type Upload struct {
	Timeout     time.Duration `mapstructure:"timeout"`       // Deadline for a whole batch
	MaxFileSize int64         `mapstructure:"max_file_size"` // Per-file limit in bytes
	Quality     int           `mapstructure:"quality"`       // Lossy encoding quality, 1..100
}

// Migration holds bulk migration settings.
type Migration struct {
	Collections []string `mapstructure:"collections"` // Collections migrated when none are given
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

func setDefaults() {
	viper.SetDefault("server.http_port", ":8080")
	viper.SetDefault("storage.cache_control", "public, max-age=5184000")
	viper.SetDefault("kafka.upload_topic", "catalog.assets.uploaded")
	viper.SetDefault("kafka.maintenance_topic", "catalog.maintenance")
	viper.SetDefault("kafka.group_id", "catalog-images")
	viper.SetDefault("redis.ttl", 10*time.Minute)
	viper.SetDefault("retry.attempts", 3)
	viper.SetDefault("retry.delay", 100*time.Millisecond)
	viper.SetDefault("retry.backoff", 2.0)
	viper.SetDefault("upload.timeout", 30*time.Second)
	viper.SetDefault("upload.max_file_size", 10<<20)
	viper.SetDefault("upload.quality", 80)
	viper.SetDefault("migration.collections", []string{"products", "categories"})
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",
		"storage.access_key":   "MINIO_ACCESS_KEY",
		"storage.secret_key":   "MINIO_SECRET_KEY",
		"redis.password":       "REDIS_PASSWORD",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigFile(path)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("invalid config")
	}

	return &cfg
}

// Validate checks the values the services cannot start without.
func (c *Config) Validate() error {
	if c.Storage.BucketName == "" {
		return fmt.Errorf("storage.bucket_name is required")
	}

	if c.Upload.Quality < 1 || c.Upload.Quality > 100 {
		return fmt.Errorf("upload.quality must be within 1..100, got %d", c.Upload.Quality)
	}

	if c.Upload.Timeout <= 0 {
		return fmt.Errorf("upload.timeout must be positive")
	}

	return nil
}
