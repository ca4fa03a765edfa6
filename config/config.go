package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Env         string `mapstructure:"env"`
	Port        string `mapstructure:"port"`
	SiteURL     string `mapstructure:"site_url"`
	FrontendURL string `mapstructure:"frontend_url"`
	AdminURL    string `mapstructure:"admin_url"`

	DB      DBConfig      `mapstructure:",squash"`
	Redis   RedisConfig   `mapstructure:",squash"`
	Session SessionConfig `mapstructure:",squash"`
	SMTP    SMTPConfig    `mapstructure:",squash"`
	Kafka   KafkaConfig   `mapstructure:",squash"`
	Mongo   MongoConfig   `mapstructure:",squash"`
	Events  EventsConfig  `mapstructure:",squash"`
}

type DBConfig struct {
	Driver string `mapstructure:"db_driver"`
	URL    string `mapstructure:"database_url"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"redis_addr"`
	Password string `mapstructure:"redis_password"`
	DB       int    `mapstructure:"redis_db"`
}

type SessionConfig struct {
	CookieName string        `mapstructure:"session_cookie_name"`
	TTL        time.Duration `mapstructure:"session_ttl"`
	Secure     bool          `mapstructure:"session_cookie_secure"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"smtp_host"`
	Port     int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"smtp_username"`
	Password string `mapstructure:"smtp_password"`
	From     string `mapstructure:"smtp_from"`
	SSL      bool   `mapstructure:"smtp_ssl"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"kafka_brokers"`
	OrdersTopic string   `mapstructure:"kafka_topic_orders"`
}

type MongoConfig struct {
	URI        string `mapstructure:"mongo_uri"`
	Database   string `mapstructure:"mongo_database"`
	Collection string `mapstructure:"mongo_audit_collection"`
}

type EventsConfig struct {
	Workers   int `mapstructure:"events_workers"`
	QueueSize int `mapstructure:"events_queue_size"`
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.Port != 0 && c.From != ""
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.OrdersTopic != ""
}

func LoadEnv() error {
	// A missing .env is normal outside local development; the process
	// environment is used as is.
	_ = godotenv.Load()
	return nil
}

var keys = []string{
	"env", "port", "site_url", "frontend_url", "admin_url",
	"db_driver", "database_url",
	"redis_addr", "redis_password", "redis_db",
	"session_cookie_name", "session_ttl", "session_cookie_secure",
	"smtp_host", "smtp_port", "smtp_username", "smtp_password", "smtp_from", "smtp_ssl",
	"kafka_brokers", "kafka_topic_orders",
	"mongo_uri", "mongo_database", "mongo_audit_collection",
	"events_workers", "events_queue_size",
}

// Load reads configuration from the environment. Every key is the upper-case
// form of its mapstructure tag, e.g. DATABASE_URL or SMTP_HOST.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("port", "8080")
	v.SetDefault("site_url", "http://localhost:8080")
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("database_url", "host=localhost user=postgres password=postgres dbname=storefront port=5432 sslmode=disable")
	v.SetDefault("redis_db", 0)
	v.SetDefault("session_cookie_name", "sessionid")
	v.SetDefault("session_ttl", 14*24*time.Hour)
	v.SetDefault("smtp_port", 465)
	v.SetDefault("smtp_ssl", true)
	v.SetDefault("kafka_topic_orders", "orders.checkout-completed")
	v.SetDefault("mongo_database", "storefront")
	v.SetDefault("mongo_audit_collection", "audit_logs")
	v.SetDefault("events_workers", 2)
	v.SetDefault("events_queue_size", 256)

	// AutomaticEnv only answers Get calls; Unmarshal needs every key bound.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitAndTrim(cfg.Kafka.Brokers)

	return &cfg, nil
}

// ValidateEnv checks that critical environment variables are set.
// Returns an error if any critical variable is missing.
func ValidateEnv(log *zap.Logger) error {
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	if os.Getenv("SMTP_HOST") == "" || os.Getenv("SMTP_FROM") == "" {
		log.Warn("SMTP_HOST/SMTP_FROM not set - order confirmations will only be logged")
	}
	if os.Getenv("REDIS_ADDR") == "" {
		log.Warn("REDIS_ADDR not set - guest sessions are kept in process memory")
	}
	if os.Getenv("KAFKA_BROKERS") == "" {
		log.Warn("KAFKA_BROKERS not set - checkout events are not streamed")
	}
	if os.Getenv("MONGO_URI") == "" {
		log.Warn("MONGO_URI not set - audit events are written to the log only")
	}
	if os.Getenv("FRONTEND_URL") == "" {
		log.Warn("FRONTEND_URL not set - CORS may not work correctly")
	}

	return nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// splitAndTrim accepts both "a,b" as a single element and already split slices.
func splitAndTrim(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if pt := strings.TrimSpace(p); pt != "" {
				out = append(out, pt)
			}
		}
	}
	return out
}
