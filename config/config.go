package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	DiscordToken  string
	// AllowedChatID, when set, is the only chat the bot answers and the only
	// user scheduled jobs target.
	AllowedChatID *int64
	DatabasePath  string

	LLMProvider    string // openai, anthropic, ollama, gemini, none
	OpenAIKey      string
	OpenAIModel    string
	AnthropicKey   string // API key (X-Api-Key header)
	AnthropicToken string // OAuth token (Authorization: Bearer header)
	GeminiKey      string
	LLMModel       string
	OllamaBaseURL  string
	LLMTimeout     time.Duration

	CheckinHour       int
	ChoresMorningHour int
	ChoresConfirmHour int
	ReflectionHour    int
	WeeklyReviewDay   time.Weekday
	WeeklyReviewHour  int
	StaleTaskDays     int

	ClassifierFile       string
	BroadcastConcurrency int

	LogLevel  string
	LogFormat string
}

// EnvFile is the env file read at startup, from TODO_ENV_FILE or
// ~/.config/todo.env.
func EnvFile() string {
	if v := os.Getenv("TODO_ENV_FILE"); v != "" {
		return expandHome(v)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "todo.env")
}

// Load reads the env file (or ./.env) without overriding the process
// environment, then parses and validates every setting.
func Load() (*Config, error) {
	if envFile := EnvFile(); fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load() // ignore error if no .env
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DiscordToken:  os.Getenv("DISCORD_BOT_TOKEN"),
		AllowedChatID: p.optionalInt64("ALLOWED_CHAT_ID"),
		DatabasePath:  envOr("DATABASE_PATH", "./todocoach.db"),

		LLMProvider:    strings.ToLower(envOr("LLM_PROVIDER", "openai")),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    envOr("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicToken: os.Getenv("ANTHROPIC_AUTH_TOKEN"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		OllamaBaseURL:  envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		LLMTimeout:     time.Duration(p.int("LLM_TIMEOUT_SECONDS", 60, 5, 600)) * time.Second,

		CheckinHour:       p.int("CHECKIN_HOUR_UTC", 16, 0, 23),
		ChoresMorningHour: p.int("CHORES_MORNING_HOUR_UTC", 8, 0, 23),
		ChoresConfirmHour: p.int("CHORES_CONFIRM_HOUR_UTC", 20, 0, 23),
		ReflectionHour:    p.int("REFLECTION_HOUR_UTC", 21, 0, 23),
		WeeklyReviewDay:   p.weekday("WEEKLY_REVIEW_DAY", time.Sunday),
		WeeklyReviewHour:  p.int("WEEKLY_REVIEW_HOUR_UTC", 17, 0, 23),
		StaleTaskDays:     p.int("STALE_TASK_DAYS", 7, 1, 365),

		ClassifierFile:       os.Getenv("CLASSIFIER_FILE"),
		BroadcastConcurrency: p.int("BROADCAST_CONCURRENCY", 4, 1, 64),

		LogLevel:  strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envOr("LOG_FORMAT", "json")),
	}
	if p.err != nil {
		return nil, p.err
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return nil, fmt.Errorf("LOG_FORMAT must be json or console. Got: %s", cfg.LogFormat)
	}
	return cfg, nil
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case "anthropic":
		return c.AnthropicKey
	case "gemini":
		return c.GeminiKey
	default:
		return c.OpenAIKey
	}
}

// Model returns LLM_MODEL when set, else the provider's own default.
func (c *Config) Model() string {
	if c.LLMModel != "" {
		return c.LLMModel
	}
	if c.LLMProvider == "openai" {
		return c.OpenAIModel
	}
	return ""
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// parser keeps the first validation error.
type parser struct {
	err error
}

func (p *parser) int(key string, fallback, lo, hi int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" || p.err != nil {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.err = fmt.Errorf("%s must be an integer. Got: %s", key, raw)
		return fallback
	}
	if v < lo || v > hi {
		p.err = fmt.Errorf("%s must be between %d and %d. Got: %d", key, lo, hi, v)
		return fallback
	}
	return v
}

func (p *parser) optionalInt64(key string) *int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" || p.err != nil {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.err = fmt.Errorf("%s must be an integer. Got: %s", key, raw)
		return nil
	}
	return &v
}

func (p *parser) weekday(key string, fallback time.Weekday) time.Weekday {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" || p.err != nil {
		return fallback
	}
	if len(raw) > 3 {
		raw = raw[:3]
	}
	d, ok := weekdays[raw]
	if !ok {
		p.err = fmt.Errorf("%s must be one of mon, tue, wed, thu, fri, sat, sun. Got: %s", key, os.Getenv(key))
		return fallback
	}
	return d
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
