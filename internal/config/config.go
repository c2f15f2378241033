package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Database
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// LLM providers, tried in order: OpenRouter, then Anthropic
	OpenRouterAPIKey  string
	OpenRouterAPIURL  string
	OpenRouterModel   string
	OpenRouterReferer string
	AnthropicAPIKey   string
	AnthropicModel    string
	AITimeout         time.Duration

	// Video search
	YouTubeAPIKey string

	// Judge0
	Judge0URL          string
	Judge0APIKey       string
	Judge0RapidAPIHost string
	JudgePollInterval  time.Duration
	JudgeTimeout       time.Duration
	JudgeConcurrency   int

	// Admin
	AdminEmails  string
	AdminUserIDs string
	AdminToken   string

	// Logging
	LogRetention time.Duration

	// Server
	Port        string
	CORSOrigins string
}

func Load() *Config {
	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "careerforge"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		SQLitePath: getEnv("SQLITE_PATH", "careerforge.db"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h"), 168*time.Hour),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterAPIURL:  getEnv("OPENROUTER_API_URL", "https://openrouter.ai/api/v1/chat/completions"),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		OpenRouterReferer: getEnv("OPENROUTER_REFERER", "https://careerforge.app"),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		AITimeout:         parseDuration(getEnv("AI_TIMEOUT", "60s"), 60*time.Second),

		YouTubeAPIKey: getEnv("YOUTUBE_API_KEY", ""),

		Judge0URL:          getEnv("JUDGE0_URL", "https://judge0-ce.p.rapidapi.com"),
		Judge0APIKey:       getEnv("JUDGE0_KEY", ""),
		Judge0RapidAPIHost: getEnv("JUDGE0_RAPIDAPI_HOST", ""),
		JudgePollInterval:  parseDuration(getEnv("JUDGE_POLL_INTERVAL", "800ms"), 800*time.Millisecond),
		JudgeTimeout:       parseDuration(getEnv("JUDGE_TIMEOUT", "35s"), 35*time.Second),
		JudgeConcurrency:   parseInt(getEnv("JUDGE_CONCURRENCY", "4"), 4),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),
		AdminToken:   getEnv("ADMIN_TOKEN", ""),

		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
