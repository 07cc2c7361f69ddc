package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret is only meant for local runs; Load logs a warning when it is in use.
const DevJWTSecret = "agriconnect-dev-secret"

// Database drivers accepted in DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the runtime settings of the API server.
type Config struct {
	AppPort      string
	DBDriver     string
	DatabaseDSN  string
	JWTSecret    string
	TokenTTL     time.Duration
	RabbitMQURL  string
	RedisAddr    string
	CacheTTL     time.Duration
	SeedDemoData bool
	CORSOrigins  string
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":5000")
	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "agriconnect.db")
	v.SetDefault("JWT_SECRET", DevJWTSecret)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("SEED_DEMO_DATA", false)
	v.SetDefault("CORS_ORIGINS", "*")
}

// Load reads a .env file when one exists, then the environment, on top of
// the defaults.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppPort:      v.GetString("APP_PORT"),
		DBDriver:     strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:  v.GetString("DATABASE_DSN"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		TokenTTL:     v.GetDuration("TOKEN_TTL"),
		RabbitMQURL:  v.GetString("RABBITMQ_URL"),
		RedisAddr:    v.GetString("REDIS_ADDR"),
		CacheTTL:     v.GetDuration("CACHE_TTL"),
		SeedDemoData: v.GetBool("SEED_DEMO_DATA"),
		CORSOrigins:  v.GetString("CORS_ORIGINS"),
	}

	switch cfg.DBDriver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (want sqlite, postgres or memory)", cfg.DBDriver)
	}
	if cfg.DBDriver != DriverMemory && cfg.DatabaseDSN == "" {
		return Config{}, fmt.Errorf("DATABASE_DSN is required for driver %s", cfg.DBDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if !strings.HasPrefix(cfg.AppPort, ":") && !strings.Contains(cfg.AppPort, ":") {
		cfg.AppPort = ":" + cfg.AppPort
	}
	if cfg.JWTSecret == DevJWTSecret {
		log.Println("Warning: JWT_SECRET is not set, using the development secret")
	}
	return cfg, nil
}
