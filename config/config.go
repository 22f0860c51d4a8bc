// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port           string
	DatabaseURL    string
	GatewayToken   string
	AllowedOrigins []string

	LogLevel  string
	LogFormat string // text or json
	LogFile   string

	// NotifyTransport picks the balance/announcement push: nats, websocket or none.
	NotifyTransport string
	NotifyBuffer    int
	NATSURL         string
	NATSToken       string
	NATSSubject     string
	WebsocketAddr   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	WagerLimit    int
	WagerWindow   time.Duration

	R2AccountID    string
	R2AccessKey    string
	R2SecretKey    string
	R2Bucket       string
	ExportPrefix   string
	ExportBatch    int
	ExportInterval time.Duration

	SweepInterval     time.Duration
	ReconcileInterval time.Duration

	Settings Settings
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("⚠️  No .env file found, reading environment variables directly")
	}

	cfg := &Config{
		Port:           getenv("PORT", "5200"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		GatewayToken:   os.Getenv("GATEWAY_TOKEN"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
		LogFile:   os.Getenv("LOG_FILE"),

		NotifyTransport: strings.ToLower(getenv("NOTIFY_TRANSPORT", "websocket")),
		NotifyBuffer:    getenvInt("NOTIFY_BUFFER", 1024),
		NATSURL:         getenv("NATS_URL", "nats://127.0.0.1:4222"),
		NATSToken:       os.Getenv("NATS_TOKEN"),
		NATSSubject:     getenv("NATS_SUBJECT_PREFIX", "wallet"),
		WebsocketAddr:   getenv("WS_ADDR", ":5201"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),
		WagerLimit:    getenvInt("WAGER_RATE_LIMIT", 10),
		WagerWindow:   getenvDuration("WAGER_RATE_WINDOW", time.Second),

		R2AccountID:    os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKey:    os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretKey:    os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2Bucket:       os.Getenv("R2_BUCKET_NAME"),
		ExportPrefix:   getenv("LEDGER_EXPORT_PREFIX", "ledger"),
		ExportBatch:    getenvInt("LEDGER_EXPORT_BATCH", 5000),
		ExportInterval: getenvDuration("LEDGER_EXPORT_INTERVAL", time.Hour),

		SweepInterval:     getenvDuration("TOURNAMENT_SWEEP_INTERVAL", time.Minute),
		ReconcileInterval: getenvDuration("RECONCILE_INTERVAL", 24*time.Hour),
	}

	settings, err := SettingsFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable not set")
	}
	if cfg.GatewayToken == "" {
		return nil, errors.New("GATEWAY_TOKEN environment variable not set")
	}
	return cfg, nil
}

// ExportEnabled reports whether ledger export has somewhere to write.
func (c *Config) ExportEnabled() bool {
	return c.R2AccountID != "" && c.R2Bucket != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid integer %q, using %d", v, fallback)
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.WithField("key", key).Warnf("invalid duration %q, using %s", v, fallback)
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
