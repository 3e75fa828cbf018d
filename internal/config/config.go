package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-only-jwt-secret-change-me-in-production-32b"

// Config holds every setting the binaries read from the environment.
type Config struct {
	Port         string
	DatabasePath string
	LogLevel     string
	LogFormat    string

	JWTSecret         string
	AccessTokenExpiry time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	GeminiAPIKey string
	GeminiModel  string

	BrapiAPIKey           string
	TwelveDataAPIKey      string
	TwelveDataMinInterval time.Duration

	GCSBucket       string
	BigQueryProject string
	BigQueryDataset string

	GitHubToken     string
	GitHubRepoOwner string
	GitHubRepoName  string

	CORSAllowedOrigins []string
	ProxyAllowedHosts  []string
	MaxUploadSizeBytes int64
	RateLimitRPS       float64
	RateLimitBurst     int

	MaxRefreshSymbols int
}

// Load reads an optional .env file and then the process environment.
// Missing or malformed values fall back to defaults; the returned warnings
// describe each fallback so callers can log them once a logger exists.
func Load() (*Config, []string) {
	var warnings []string
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		warnings = append(warnings, "could not load .env file: "+err.Error())
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./carteira.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "console"),

		JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "postmessage"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		BrapiAPIKey:      getEnv("BRAPI_API_KEY", ""),
		TwelveDataAPIKey: getEnv("TWELVEDATA_API_KEY", ""),

		GCSBucket:       getEnv("GCS_BUCKET", ""),
		BigQueryProject: getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", "carteira"),

		GitHubToken:     getEnv("GITHUB_TOKEN", ""),
		GitHubRepoOwner: getEnv("GITHUB_REPO_OWNER", ""),
		GitHubRepoName:  getEnv("GITHUB_REPO_NAME", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		ProxyAllowedHosts:  getEnvAsList("PROXY_ALLOWED_HOSTS", []string{"googleusercontent.com"}),
	}

	if cfg.JWTSecret == defaultJWTSecret {
		warnings = append(warnings, "using default insecure JWT_SECRET; set JWT_SECRET in production")
	}

	cfg.AccessTokenExpiry = getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 24*time.Hour, &warnings)
	cfg.TwelveDataMinInterval = getEnvAsDuration("TWELVEDATA_MIN_INTERVAL", 7500*time.Millisecond, &warnings)
	cfg.MaxUploadSizeBytes = int64(getEnvAsInt("MAX_UPLOAD_SIZE_BYTES", 10*1024*1024, &warnings))
	cfg.RateLimitRPS = getEnvAsFloat("RATE_LIMIT_RPS", 5, &warnings)
	cfg.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", 20, &warnings)
	cfg.MaxRefreshSymbols = getEnvAsInt("MAX_REFRESH_SYMBOLS", 50, &warnings)

	return cfg, warnings
}

// GitHubDispatchEnabled reports whether all repository-dispatch settings are present.
func (c *Config) GitHubDispatchEnabled() bool {
	return c.GitHubToken != "" && c.GitHubRepoOwner != "" && c.GitHubRepoName != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int, warnings *[]string) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		*warnings = append(*warnings, "invalid "+key+" "+strconv.Quote(valueStr)+", using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64, warnings *[]string) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		*warnings = append(*warnings, "invalid "+key+" "+strconv.Quote(valueStr)+", using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration, warnings *[]string) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		*warnings = append(*warnings, "invalid "+key+" "+strconv.Quote(valueStr)+", using default")
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
