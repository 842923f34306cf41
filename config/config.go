package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Redis      RedisConfig
	Cloudinary CloudinaryConfig
	Logging    LoggingConfig
	Points     PointsConfig
	RateLimit  RateLimitConfig
	Admin      AdminConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// PublicBaseURL is the origin printed into profile QR codes, e.g. https://metabento.app
	PublicBaseURL string
}

type DatabaseConfig struct {
	Driver          string // mysql | sqlite
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
	// NonceExpiry bounds how long a wallet sign-in nonce stays usable.
	NonceExpiry time.Duration
}

type RedisConfig struct {
	Addr           string // empty disables the leaderboard cache
	Password       string
	DB             int
	LeaderboardTTL time.Duration
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type LoggingConfig struct {
	Level  string
	Format string // json | text
}

// PointsConfig holds the reward table and swap terms.
type PointsConfig struct {
	ConnectionBase       int64
	QRScanConnection     int64
	FirstConnectionBonus int64
	RepeatScanBonus      int64
	DailyBonus           int64
	SwapMinimum          int64
	ExchangeRate         int64 // points per token
	MaxAdminAward        int64
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// AdminConfig seeds the first admin account on startup when Email is set.
type AdminConfig struct {
	Email    string
	Password string
}

func Load() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8099"),
			Env:           getEnv("APP_ENV", "development"),
			ReadTimeout:   getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "https://metabento.app"),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			DSN:             getEnv("DB_DSN", "metabento:metabento@tcp(localhost:3306)/metabento?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  getEnvDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvDuration("JWT_REFRESH_EXPIRY", 30*24*time.Hour),
			Issuer:        getEnv("JWT_ISSUER", "metabento"),
			NonceExpiry:   getEnvDuration("AUTH_NONCE_EXPIRY", 10*time.Minute),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvInt("REDIS_DB", 0),
			LeaderboardTTL: getEnvDuration("LEADERBOARD_CACHE_TTL", 30*time.Second),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Points:    DefaultPoints(),
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 20),
		},
		Admin: AdminConfig{
			Email:    strings.ToLower(getEnv("ADMIN_EMAIL", "")),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}
}

// DefaultPoints returns the reward table, honouring POINTS_* overrides.
func DefaultPoints() PointsConfig {
	return PointsConfig{
		ConnectionBase:       getEnvInt64("POINTS_CONNECTION_BASE", 10),
		QRScanConnection:     getEnvInt64("POINTS_QR_SCAN_CONNECTION", 15),
		FirstConnectionBonus: getEnvInt64("POINTS_FIRST_CONNECTION_BONUS", 25),
		RepeatScanBonus:      getEnvInt64("POINTS_REPEAT_SCAN_BONUS", 5),
		DailyBonus:           getEnvInt64("POINTS_DAILY_BONUS", 10),
		SwapMinimum:          getEnvInt64("POINTS_SWAP_MINIMUM", 100),
		ExchangeRate:         getEnvInt64("POINTS_EXCHANGE_RATE", 100),
		MaxAdminAward:        getEnvInt64("POINTS_MAX_ADMIN_AWARD", 100000),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
