package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"prospector/models"
)

// Config is everything the dashboard reads from the environment. Loaded
// once in main and passed down; no package-level state.
type Config struct {
	Environment string
	ServerPort  string
	LogLevel    string

	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBMaxIdleConns int
	DBMaxOpenConns int

	RedisEnabled  bool
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Sibling services
	SendMailURL      string
	AutoFollowupURL  string
	GmailNotifierURL string
	MailWriterURL    string
	OdooURL          string
	OdooSecret       string

	// Dashboard auth. Empty AuthSecret disables auth (local dev).
	AuthSecret    string
	AuthAccessKey string

	SentryDSN string

	StatsRefreshInterval time.Duration
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "prospector"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 50),

		RedisEnabled:  getEnv("REDIS_ADDRESS", "") != "",
		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SendMailURL:      strings.TrimRight(getEnv("SEND_MAIL_SERVICE_URL", ""), "/"),
		AutoFollowupURL:  strings.TrimRight(getEnv("AUTO_FOLLOWUP_URL", ""), "/"),
		GmailNotifierURL: strings.TrimRight(getEnv("GMAIL_NOTIFIER_URL", ""), "/"),
		MailWriterURL:    strings.TrimRight(getEnv("MAIL_WRITER_URL", ""), "/"),
		OdooURL:          strings.TrimRight(getEnv("ODOO_DB_URL", ""), "/"),
		OdooSecret:       getEnv("ODOO_SECRET", ""),

		AuthSecret:    getEnv("AUTH_SECRET", ""),
		AuthAccessKey: getEnv("AUTH_ACCESS_KEY", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),

		StatsRefreshInterval: time.Duration(getEnvAsInt("STATS_REFRESH_SECONDS", 300)) * time.Second,
	}

	if cfg.DBPassword == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	if cfg.Environment == "production" {
		if cfg.SendMailURL == "" {
			return nil, fmt.Errorf("SEND_MAIL_SERVICE_URL is required in production")
		}
		if cfg.AuthSecret == "" || cfg.AuthAccessKey == "" {
			return nil, fmt.Errorf("AUTH_SECRET and AUTH_ACCESS_KEY are required in production")
		}
	}

	return cfg, nil
}

// ConnectDB opens the Postgres handle, tunes the pool and migrates the
// dashboard tables.
func ConnectDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return db, nil
}

// ConnectRedis opens the redis handle for the stats cache. Returns nil
// when redis is not configured; callers treat a nil client as "no
// cache".
func ConnectRedis(cfg *Config) *redis.Client {
	if !cfg.RedisEnabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewLogger builds the application logger: JSON in production, text
// locally, level from LOG_LEVEL.
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.Environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return fallback
	}
	return value
}
