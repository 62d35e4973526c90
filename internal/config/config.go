package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port   string
	AppEnv string // "development" or "production"

	LogLevel string

	// Storage. Database.URL selects Postgres, otherwise JSON files in DataDir.
	Database DatabaseConfig
	DataDir  string

	StartingBalance float64

	// Live report stream
	WSPushInterval time.Duration

	// Coach alerts
	AlertCooldown           time.Duration
	FirebaseCredentialsPath string
	FirebaseCredentialsJSON string
}

// DatabaseConfig sizes the journal's Postgres pool. The journal has a single
// writer, so a few connections are enough.
type DatabaseConfig struct {
	URL               string
	SSLMode           string // added when URL carries no sslmode
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsePostgres reports whether a database URL was configured.
func (c *Config) UsePostgres() bool {
	return c.Database.URL != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnvDefault("PORT", "8080"),
		AppEnv:                  strings.ToLower(getEnvDefault("APP_ENV", "development")),
		LogLevel:                strings.ToLower(getEnvDefault("LOG_LEVEL", "info")),
		Database:                loadDatabase(),
		DataDir:                 getEnvDefault("JOURNAL_DATA_DIR", "./data"),
		StartingBalance:         getEnvFloat("STARTING_BALANCE", 50000),
		WSPushInterval:          getEnvDuration("WS_PUSH_INTERVAL", 5*time.Second),
		AlertCooldown:           getEnvDuration("ALERT_COOLDOWN", 30*time.Minute),
		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
	}

	if cfg.AppEnv != "development" && cfg.AppEnv != "production" {
		return nil, fmt.Errorf("APP_ENV must be 'development' or 'production', got %q", cfg.AppEnv)
	}
	if cfg.StartingBalance <= 0 {
		return nil, fmt.Errorf("STARTING_BALANCE must be positive, got %v", cfg.StartingBalance)
	}
	if cfg.WSPushInterval < time.Second {
		cfg.WSPushInterval = time.Second
	}

	return cfg, nil
}

func loadDatabase() DatabaseConfig {
	db := DatabaseConfig{
		URL:               strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SSLMode:           strings.TrimSpace(getEnvDefault("DB_SSLMODE", "prefer")),
		MaxConns:          getEnvInt32("DB_MAX_CONNS", 4),
		MinConns:          getEnvInt32("DB_MIN_CONNS", 0),
		MaxConnLifetime:   getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		MaxConnIdleTime:   getEnvDuration("DB_MAX_CONN_IDLE_TIME", 10*time.Minute),
		HealthCheckPeriod: getEnvDuration("DB_HEALTHCHECK_PERIOD", time.Minute),
	}
	if db.MaxConns < 1 {
		db.MaxConns = 1
	}
	if db.MinConns < 0 {
		db.MinConns = 0
	}
	if db.MinConns > db.MaxConns {
		db.MinConns = db.MaxConns
	}
	return db
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvInt32(key string, def int32) int32 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return def
	}
	return int32(n)
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
