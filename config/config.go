package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL      string
	DatabaseName     string
	DBMaxConns       int32
	StatementTimeout time.Duration

	// HTTP configuration
	HTTPAddr       string
	JWTSecret      string
	AllowedOrigins string
	RateLimitRPS   int
	RateLimitBurst int

	// Revenue splits, in whole percentages
	TicketSplitPlatform   int64
	TicketSplitPrize      int64
	TicketSplitCreator    int64
	DonationSplitPlatform int64
	DonationSplitCreator  int64
	DonationSplitPrize    int64

	// Largest ticket quantity accepted by a single purchase
	MaxTicketsPerPurchase int64

	// Retry and background work
	MaxConflictRetries  int
	AuditRetryAttempts  int
	AuditQueueSize      int
	ExpiryCheckInterval time.Duration

	// Access control
	BootstrapAdminIDs []string

	// Integrations (optional)
	NATSURL                  string
	DiscordToken             string
	DiscordAnnounceChannelID string

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	mu       sync.Mutex
)

// Get returns the global configuration instance, loading it on first use
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance == nil {
		cfg, err := load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		instance = cfg
	}
	return instance
}

// SetTestConfig replaces the global configuration. Tests only.
func SetTestConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// ResetConfig clears the global configuration so the next Get reloads it
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
}

// NewTestConfig returns a configuration with test defaults
func NewTestConfig() *Config {
	return &Config{
		HTTPAddr:              ":0",
		JWTSecret:             "test-secret",
		AllowedOrigins:        "*",
		RateLimitRPS:          100,
		RateLimitBurst:        100,
		TicketSplitPlatform:   50,
		TicketSplitPrize:      40,
		TicketSplitCreator:    10,
		DonationSplitPlatform: 50,
		DonationSplitCreator:  40,
		DonationSplitPrize:    10,
		MaxTicketsPerPurchase: 1000,
		MaxConflictRetries:    5,
		AuditRetryAttempts:    3,
		AuditQueueSize:        64,
		ExpiryCheckInterval:   time.Minute,
		LogLevel:              "debug",
		LogFormat:             "text",
		Environment:           "test",
	}
}

// load loads configuration from the environment, reading .env first when present
func load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseName:     os.Getenv("DATABASE_NAME"),
		DBMaxConns:       int32(getEnvInt("DB_MAX_CONNS", 20)),
		StatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 15*time.Second),

		HTTPAddr:       getEnvWithDefault("HTTP_ADDR", ":8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AllowedOrigins: getEnvWithDefault("ALLOWED_ORIGINS", "*"),
		RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		TicketSplitPlatform:   int64(getEnvInt("TICKET_SPLIT_PLATFORM", 50)),
		TicketSplitPrize:      int64(getEnvInt("TICKET_SPLIT_PRIZE", 40)),
		TicketSplitCreator:    int64(getEnvInt("TICKET_SPLIT_CREATOR", 10)),
		DonationSplitPlatform: int64(getEnvInt("DONATION_SPLIT_PLATFORM", 50)),
		DonationSplitCreator:  int64(getEnvInt("DONATION_SPLIT_CREATOR", 40)),
		DonationSplitPrize:    int64(getEnvInt("DONATION_SPLIT_PRIZE", 10)),
		MaxTicketsPerPurchase: int64(getEnvInt("MAX_TICKETS_PER_PURCHASE", 1000)),

		MaxConflictRetries:  getEnvInt("MAX_CONFLICT_RETRIES", 5),
		AuditRetryAttempts:  getEnvInt("AUDIT_RETRY_ATTEMPTS", 5),
		AuditQueueSize:      getEnvInt("AUDIT_QUEUE_SIZE", 1024),
		ExpiryCheckInterval: getEnvDuration("EXPIRY_CHECK_INTERVAL", time.Minute),

		BootstrapAdminIDs: splitList(os.Getenv("BOOTSTRAP_ADMIN_IDS")),

		NATSURL:                  os.Getenv("NATS_URL"),
		DiscordToken:             os.Getenv("DISCORD_TOKEN"),
		DiscordAnnounceChannelID: os.Getenv("DISCORD_ANNOUNCE_CHANNEL_ID"),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would otherwise fail at first use
func (c *Config) Validate() error {
	if sum := c.TicketSplitPlatform + c.TicketSplitPrize + c.TicketSplitCreator; sum != 100 {
		return fmt.Errorf("ticket split percentages must sum to 100, got %d", sum)
	}
	if sum := c.DonationSplitPlatform + c.DonationSplitCreator + c.DonationSplitPrize; sum != 100 {
		return fmt.Errorf("donation split percentages must sum to 100, got %d", sum)
	}
	if c.MaxTicketsPerPurchase < 1 {
		return fmt.Errorf("MAX_TICKETS_PER_PURCHASE must be at least 1")
	}
	if c.MaxConflictRetries < 1 {
		return fmt.Errorf("MAX_CONFLICT_RETRIES must be at least 1")
	}
	if c.DiscordToken != "" && c.DiscordAnnounceChannelID == "" {
		return fmt.Errorf("DISCORD_ANNOUNCE_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}
	return nil
}

// IsTest reports whether the service runs under tests
func (c *Config) IsTest() bool {
	return c.Environment == "test"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
