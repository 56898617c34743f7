package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Provider ProviderConfig
	Campaign CampaignConfig
	Auth     AuthConfig
	Debug    bool
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ProviderConfig points at the WhatsApp gateway instance used for outbound
// sends. BaseURL is overridable so tests and staging can target a stub.
type ProviderConfig struct {
	BaseURL     string
	Instance    string
	Token       string
	ClientToken string
	Timeout     time.Duration
}

type CampaignConfig struct {
	// PacingDelay is the mandatory wait between consecutive sends. It keeps
	// the account under the gateway's abuse thresholds and is never skipped,
	// even after a failed attempt.
	PacingDelay      time.Duration
	MaxMessageLength int
	RunLockTTL       time.Duration
}

type AuthConfig struct {
	APIToken string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "campaigns"),
			Password: GetEnv("DB_PASSWORD", "campaigns123"),
			DBName:   GetEnv("DB_NAME", "church_campaigns"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Provider: ProviderConfig{
			BaseURL:     GetEnv("PROVIDER_BASE_URL", "https://api.z-api.io"),
			Instance:    GetEnv("PROVIDER_INSTANCE", ""),
			Token:       GetEnv("PROVIDER_TOKEN", ""),
			ClientToken: GetEnv("PROVIDER_CLIENT_TOKEN", ""),
			Timeout:     time.Duration(GetEnvAsInt("PROVIDER_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		Campaign: CampaignConfig{
			PacingDelay:      GetEnvAsDuration("CAMPAIGN_PACING_DELAY", 2*time.Second),
			MaxMessageLength: GetEnvAsInt("CAMPAIGN_MAX_MESSAGE_LENGTH", 1000),
			RunLockTTL:       GetEnvAsDuration("CAMPAIGN_RUN_LOCK_TTL", 30*time.Minute),
		},
		Auth: AuthConfig{
			APIToken: GetEnv("API_TOKEN", ""),
		},
		Debug: GetEnvAsBool("DEBUG", false),
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
