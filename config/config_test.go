package config

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadEnv(t *testing.T) {
	// LoadEnv returns nil when no .env file exists
	err := LoadEnv()
	if err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("PORT")
	os.Unsetenv("DB_DRIVER")
	os.Unsetenv("KAFKA_BROKERS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DB.Driver != "postgres" {
		t.Errorf("expected default driver postgres, got %q", cfg.DB.Driver)
	}
	if cfg.Session.CookieName != "sessionid" {
		t.Errorf("expected cookie name sessionid, got %q", cfg.Session.CookieName)
	}
	if cfg.Session.TTL != 14*24*time.Hour {
		t.Errorf("expected 14 day session ttl, got %v", cfg.Session.TTL)
	}
	if cfg.Kafka.Enabled() {
		t.Error("expected kafka to be disabled without brokers")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	os.Setenv("PORT", "9090")
	os.Setenv("SMTP_HOST", "smtp.test")
	os.Setenv("SMTP_PORT", "2525")
	os.Setenv("SMTP_FROM", "shop@test.com")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	os.Setenv("SESSION_TTL", "1h")
	defer func() {
		for _, k := range []string{"PORT", "SMTP_HOST", "SMTP_PORT", "SMTP_FROM", "KAFKA_BROKERS", "SESSION_TTL"} {
			os.Unsetenv(k)
		}
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.SMTP.Port != 2525 || !cfg.SMTP.Enabled() {
		t.Errorf("expected smtp enabled on 2525, got %+v", cfg.SMTP)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Session.TTL != time.Hour {
		t.Errorf("expected 1h ttl, got %v", cfg.Session.TTL)
	}
}

func TestValidateEnvAllSet(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("DATABASE_URL", "test-db-url")
	defer os.Unsetenv("JWT_SECRET")
	defer os.Unsetenv("DATABASE_URL")

	err := ValidateEnv(zap.NewNop())
	if err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestValidateEnvMissingJWTSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")
	os.Setenv("DATABASE_URL", "test-db-url")
	defer os.Unsetenv("DATABASE_URL")

	err := ValidateEnv(zap.NewNop())
	if err == nil {
		t.Error("expected error for missing JWT_SECRET")
	}
}

func TestValidateEnvMissingDatabaseURL(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("JWT_SECRET")

	err := ValidateEnv(zap.NewNop())
	if err == nil {
		t.Error("expected error for missing DATABASE_URL")
	}
}

func TestGetEnvExisting(t *testing.T) {
	os.Setenv("TEST_GET_ENV_KEY", "test-value")
	defer os.Unsetenv("TEST_GET_ENV_KEY")

	result := GetEnv("TEST_GET_ENV_KEY", "default")
	if result != "test-value" {
		t.Errorf("expected 'test-value', got '%s'", result)
	}
}

func TestGetEnvMissing(t *testing.T) {
	os.Unsetenv("TEST_GET_ENV_MISSING")
	result := GetEnv("TEST_GET_ENV_MISSING", "fallback")
	if result != "fallback" {
		t.Errorf("expected 'fallback', got '%s'", result)
	}
}
