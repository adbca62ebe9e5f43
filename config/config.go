package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server types
const (
	ServerWebsocket = "websocket"
	ServerHTTP      = "http"
	ServerBoth      = "both"
)

// Config holds all server configuration
type Config struct {
	Port            int
	HTTPPort        int    // Port for the HTTP API (used when ServerType is "both")
	ServerType      string // "websocket", "http", or "both"
	RedisURL        string
	RedisPassword   string
	MaxSessions     int
	SessionTimeout  time.Duration
	AllowedOrigins  []string
	KeepAlivePeriod time.Duration
	MaxBufferSize   int // Maximum buffered attachment bytes per session

	GeminiAPIKey      string // Optional; without it no remote collaborator is used
	GeminiModel       string
	EnableOCR         bool
	EnableIntentModel bool

	MenuSource  string // "file" or "redis"
	MenuFile    string
	NatsURL     string // Empty disables the menu change watcher
	MenuSubject string

	StoreBackend string // "redis", "sqlite" or "memory"
	SQLitePath   string
	ArchiveTTL   time.Duration

	ClassifierMinConfidence float64
	FuzzyCutoff             float64
	TurnTimeout             time.Duration

	LogLevel    string
	LogFormat   string
	Environment string
}

// Production reports whether error details must be hidden from customers.
func (c *Config) Production() bool {
	return c.Environment == "production"
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:                    8080,
		HTTPPort:                8081,
		ServerType:              ServerWebsocket,
		RedisURL:                "localhost:6379",
		MaxSessions:             100,
		SessionTimeout:          30 * time.Minute,
		AllowedOrigins:          []string{"*"},
		KeepAlivePeriod:         30 * time.Second,
		MaxBufferSize:           5 * 1024 * 1024, // 5MB default
		GeminiModel:             "gemini-2.5-flash",
		EnableOCR:               true,
		EnableIntentModel:       false,
		MenuSource:              "file",
		MenuFile:                "menu.yaml",
		MenuSubject:             "menu.changed",
		StoreBackend:            "redis",
		SQLitePath:              "orders.db",
		ArchiveTTL:              7 * 24 * time.Hour,
		ClassifierMinConfidence: 0.4,
		FuzzyCutoff:             0.6,
		TurnTimeout:             15 * time.Second,
		LogLevel:                "info",
		LogFormat:               "text",
		Environment:             "development",
	}

	var err error
	if config.Port, err = intEnv("PORT", config.Port); err != nil {
		return nil, err
	}
	if config.HTTPPort, err = intEnv("HTTP_PORT", config.HTTPPort); err != nil {
		return nil, err
	}
	if config.MaxSessions, err = intEnv("MAX_SESSIONS", config.MaxSessions); err != nil {
		return nil, err
	}
	if config.MaxBufferSize, err = intEnv("MAX_BUFFER_SIZE", config.MaxBufferSize); err != nil {
		return nil, err
	}

	// SESSION_TIMEOUT is in minutes, KEEPALIVE_PERIOD and TURN_TIMEOUT in seconds
	if config.SessionTimeout, err = durationEnv("SESSION_TIMEOUT", config.SessionTimeout, time.Minute); err != nil {
		return nil, err
	}
	if config.KeepAlivePeriod, err = durationEnv("KEEPALIVE_PERIOD", config.KeepAlivePeriod, time.Second); err != nil {
		return nil, err
	}
	if config.TurnTimeout, err = durationEnv("TURN_TIMEOUT", config.TurnTimeout, time.Second); err != nil {
		return nil, err
	}
	if config.ArchiveTTL, err = durationEnv("ARCHIVE_TTL", config.ArchiveTTL, time.Hour); err != nil {
		return nil, err
	}

	if config.EnableOCR, err = boolEnv("ENABLE_OCR", config.EnableOCR); err != nil {
		return nil, err
	}
	if config.EnableIntentModel, err = boolEnv("ENABLE_INTENT_MODEL", config.EnableIntentModel); err != nil {
		return nil, err
	}

	if config.ClassifierMinConfidence, err = ratioEnv("CLASSIFIER_MIN_CONFIDENCE", config.ClassifierMinConfidence); err != nil {
		return nil, err
	}
	if config.FuzzyCutoff, err = ratioEnv("FUZZY_CUTOFF", config.FuzzyCutoff); err != nil {
		return nil, err
	}

	stringEnv("REDIS_URL", &config.RedisURL)
	stringEnv("REDIS_PASSWORD", &config.RedisPassword)
	stringEnv("GEMINI_API_KEY", &config.GeminiAPIKey)
	stringEnv("GEMINI_MODEL", &config.GeminiModel)
	stringEnv("MENU_FILE", &config.MenuFile)
	stringEnv("NATS_URL", &config.NatsURL)
	stringEnv("MENU_SUBJECT", &config.MenuSubject)
	stringEnv("SQLITE_PATH", &config.SQLitePath)
	stringEnv("LOG_LEVEL", &config.LogLevel)
	stringEnv("LOG_FORMAT", &config.LogFormat)
	stringEnv("ENVIRONMENT", &config.Environment)

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	if v := os.Getenv("SERVER_TYPE"); v != "" {
		switch v {
		case ServerWebsocket, ServerHTTP, ServerBoth:
			config.ServerType = v
		default:
			return nil, fmt.Errorf("invalid SERVER_TYPE: must be 'websocket', 'http', or 'both'")
		}
	}

	if v := os.Getenv("MENU_SOURCE"); v != "" {
		switch v {
		case "file", "redis":
			config.MenuSource = v
		default:
			return nil, fmt.Errorf("invalid MENU_SOURCE: must be 'file' or 'redis'")
		}
	}

	if v := os.Getenv("STORE_BACKEND"); v != "" {
		switch v {
		case "redis", "sqlite", "memory":
			config.StoreBackend = v
		default:
			return nil, fmt.Errorf("invalid STORE_BACKEND: must be 'redis', 'sqlite', or 'memory'")
		}
	}

	return config, nil
}

func stringEnv(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def, unit time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * unit, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func ratioEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("invalid %s: %v is outside [0,1]", key, f)
	}
	return f, nil
}
