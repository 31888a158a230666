package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the client.
type Config struct {
	App     AppConfig
	API     APIConfig
	Storage StorageConfig
	Logger  LoggerConfig
	Mock    MockServerConfig
}

// AppConfig controls client level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Version string
}

// APIConfig points the client at the backend REST API.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// StorageConfig locates the durable token file.
type StorageConfig struct {
	TokenPath string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// MockServerConfig configures the local development API stub.
type MockServerConfig struct {
	Host            string
	Port            string
	JWTSecret       string
	TokenTTLMinutes int
	BcryptCost      int
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "medika-client"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		API: APIConfig{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:8080"),
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			TokenPath: os.Getenv("TOKEN_PATH"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Mock: MockServerConfig{
			Host:            getEnv("MOCK_HOST", "0.0.0.0"),
			Port:            getEnv("MOCK_PORT", "8080"),
			JWTSecret:       getEnv("MOCK_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("MOCK_TOKEN_TTL_MINUTES", 25),
			BcryptCost:      getEnvAsInt("MOCK_BCRYPT_COST", 12),
		},
	}

	return cfg, nil
}

// Addr returns the mock server bind address.
func (m MockServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", m.Host, m.Port)
}

// Timeout returns the configured request timeout duration.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
