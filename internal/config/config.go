// Package config loads settings from the environment, optionally seeded
// from a .env file in the working directory.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"slidedeck/internal/history"
)

const defaultJWTSecret = "change-this-secret-in-production"

// Config is the whole application configuration.
type Config struct {
	Store   StoreConfig
	Redis   RedisConfig
	AI      AIConfig
	Media   MediaConfig
	Auth    AuthConfig
	Server  ServerConfig
	Editor  EditorConfig
	LogFile string
}

// StoreConfig selects the deck store. With no DSN the decks are read from
// SlidesDir into memory.
type StoreConfig struct {
	DSN             string
	SlidesDir       string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig enables the shared comment feed. Empty Addr keeps the feed
// in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AIConfig enables generation when APIKey is set.
type AIConfig struct {
	APIKey     string
	TextModel  string
	ImageModel string
}

// MediaConfig is the object storage for generated images.
type MediaConfig struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// AuthConfig signs and checks session tokens.
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
	Token       string
	UserID      string
}

// ServerConfig is the share server.
type ServerConfig struct {
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	PublicBaseURL string
}

// EditorConfig tunes the terminal editor.
type EditorConfig struct {
	HistoryCapacity int
	ExportDir       string
	Style           string
}

// Load reads the configuration. A missing .env file is not an error.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env: %v", err)
	}

	return &Config{
		Store: StoreConfig{
			DSN:             getEnv("DATABASE_URL", ""),
			SlidesDir:       getEnv("SLIDES_DIR", "slides"),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 20),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			AutoMigrate:     getBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		AI: AIConfig{
			APIKey:     firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")),
			TextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
			ImageModel: getEnv("GEMINI_IMAGE_MODEL", "imagen-3.0-generate-002"),
		},
		Media: MediaConfig{
			Endpoint:      getEnv("MINIO_ENDPOINT", ""),
			Region:        getEnv("MINIO_REGION", "us-east-1"),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
			Bucket:        getEnv("MINIO_BUCKET", "slide-images"),
			UseSSL:        getBool("MINIO_USE_SSL", false),
			PublicBaseURL: getEnv("MINIO_PUBLIC_BASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
			TokenExpiry: getDuration("TOKEN_EXPIRY", 24*time.Hour),
			Token:       getEnv("SLIDEDECK_TOKEN", ""),
			UserID:      getEnv("SLIDEDECK_USER", ""),
		},
		Server: ServerConfig{
			Port:          getEnv("PORT", ":8080"),
			ReadTimeout:   getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:   getDuration("IDLE_TIMEOUT", 120*time.Second),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Editor: EditorConfig{
			HistoryCapacity: getInt("HISTORY_CAPACITY", history.DefaultCapacity),
			ExportDir:       getEnv("EXPORT_DIR", "."),
			Style:           getEnv("GLAMOUR_STYLE", "auto"),
		},
		LogFile: getEnv("LOG_FILE", ""),
	}
}

// ValidateServer checks the settings the share server cannot run without.
func (c *Config) ValidateServer() error {
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set to a non-default value")
	}
	if c.Store.DSN == "" {
		return errors.New("DATABASE_URL is required to serve shared decks")
	}
	return nil
}

// AIEnabled reports whether generation is configured.
func (c *Config) AIEnabled() bool { return c.AI.APIKey != "" }

// MediaEnabled reports whether generated images can be stored.
func (c *Config) MediaEnabled() bool { return c.Media.Endpoint != "" && c.Media.Bucket != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration accepts Go durations or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if !strings.ContainsAny(value, "smh") {
			if secs, err := strconv.Atoi(value); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
