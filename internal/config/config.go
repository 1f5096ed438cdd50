package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	OTLPEndpoint string

	Metrics MetricsConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	SongDataRoot string
	LogDataRoot  string

	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration

	MigrationDirection string
}

type MetricsConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "sparkload"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Metrics: MetricsConfig{
			Exporter:  strings.ToLower(getenv("METRICS_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("METRICS_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_AUTH_TOKEN", "")),
		},
		DBType:             strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:             getenv("DATABASE_HOST", "127.0.0.1"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "sparkifydb"),
		DBUser:             getenv("DATABASE_USER", "student"),
		DBPassword:         getenv("DATABASE_PASSWORD", "student"),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBPath:             getenv("DATABASE_PATH", "sparkify.db"),
		DBMaxIdleConn:      getenvInt("DATABASE_MAX_IDLE_CONN", 2),
		DBMaxOpenConn:      getenvInt("DATABASE_MAX_OPEN_CONN", 4),
		DBConnMaxLifetime:  getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:  getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		SongDataRoot:       getenv("SONG_DATA_ROOT", "data/song_data"),
		LogDataRoot:        getenv("LOG_DATA_ROOT", "data/log_data"),
		S3Region:           getenv("S3_REGION", "us-west-2"),
		S3Endpoint:         strings.TrimSpace(getenv("S3_ENDPOINT", "")),
		S3PathStyle:        getenvBool("S3_PATH_STYLE", false),
		RedisAddr:          strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:      getenv("REDIS_PASSWORD", ""),
		LockTTL:            time.Duration(getenvInt("LOCK_TTL_SECONDS", 1800)) * time.Second,
		MigrationDirection: strings.ToLower(getenv("MIGRATION_DIRECTION", "up")),
	}

	return cfg
}

// IsPostgres reports whether the configured database is Postgres.
func (c Config) IsPostgres() bool {
	return c.DBType == "postgres"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
