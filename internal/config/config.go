package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	LogLevel string

	DBDSN     string
	JWTSecret string
	TokenTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ChatContextWindowSize int
	ChatMaxContentLength  int
	ChatListCap           int

	// AI provider
	AIProvider        string
	AITimeout         time.Duration
	AIReplyPrefix     string
	GeminiAPIKey      string
	GeminiModel       string
	OllamaBaseURL     string
	OllamaModel       string
	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterSiteURL string
	OpenRouterAppName string

	// rabbitMQ
	RabbitURL         string
	RabbitQueue       string
	WorkerConcurrency int
}

func Load() Config {
	// DSN demo:
	// sqlite:./data/chat.db
	// app:apppass@tcp(127.0.0.1:3306)/ai_chatroom?charset=utf8mb4&parseTime=true&loc=UTC
	dsn := getEnv("DB_DSN", "sqlite:./data/chat.db")

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	// AI provider config
	aiProvider := strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", "gemini")))

	return Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDSN:     dsn,
		JWTSecret: secret,
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),

		// empty address disables the recent-messages cache
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ChatContextWindowSize: getEnvInt("CHAT_CONTEXT_WINDOW_SIZE", 10),
		ChatMaxContentLength:  getEnvInt("CHAT_MAX_CONTENT_LENGTH", 2000),
		ChatListCap:           getEnvInt("CHAT_LIST_CAP", 100),

		AIProvider:        aiProvider,
		AITimeout:         getEnvDuration("AI_TIMEOUT", 30*time.Second),
		AIReplyPrefix:     getEnv("AI_REPLY_PREFIX", "🤖 "),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "llama3:latest"),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "openrouter/auto"),
		OpenRouterSiteURL: os.Getenv("OPENROUTER_SITE_URL"),
		OpenRouterAppName: os.Getenv("OPENROUTER_APP_NAME"),

		// empty URL disables event publishing
		RabbitURL:         os.Getenv("RABBIT_URL"),
		RabbitQueue:       getEnv("RABBIT_QUEUE", "chat_events"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
	}
}

// AIModel returns the model id recorded on AI-authored messages.
func (c Config) AIModel() string {
	switch c.AIProvider {
	case "ollama":
		return c.OllamaModel
	case "openrouter":
		return c.OpenRouterModel
	default:
		return c.GeminiModel
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR cannot be empty"))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN cannot be empty"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be > 0"))
	}
	if c.AITimeout <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT must be > 0"))
	}
	if c.ChatMaxContentLength <= 0 {
		errs = append(errs, errors.New("CHAT_MAX_CONTENT_LENGTH must be > 0"))
	}
	if c.ChatListCap <= 0 {
		errs = append(errs, errors.New("CHAT_LIST_CAP must be > 0"))
	}
	switch c.AIProvider {
	case "gemini", "ollama", "openrouter":
	default:
		errs = append(errs, errors.New("AI_PROVIDER must be one of gemini, ollama, openrouter"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return d
}
