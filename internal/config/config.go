// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Analysis backend selectors.
const (
	BackendTogether = "together"
	BackendLocal    = "local"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	// Analysis provider.
	AnalysisBackend string // "together" (remote) or "local" (in-process classifier)
	TogetherAPIKey  string
	TogetherURL     string
	Model           string
	MaxTokens       int
	RequestTimeout  time.Duration

	// Session behaviour.
	AnonymousUsername string

	// Mood tracker storage.
	MoodDBPath string

	// Dialog content, loaded once at startup.
	Persona   string
	Questions []string

	Transcript TranscriptConfig
}

// TranscriptConfig controls NDJSON conversation transcript logging.
type TranscriptConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TRANSCRIPT_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		FrontendURL:       getEnv("FRONTEND_URL", ""),
		AnalysisBackend:   getEnv("ANALYSIS_BACKEND", BackendTogether),
		TogetherAPIKey:    getEnv("TOGETHER_API_KEY", ""),
		TogetherURL:       getEnv("TOGETHER_API_URL", "https://api.together.xyz/v1/chat/completions"),
		Model:             getEnv("MODEL_NAME", "mistralai/Mistral-7B-Instruct-v0.1"),
		MaxTokens:         getEnvInt("MAX_TOKENS", 512),
		RequestTimeout:    getEnvDuration("ANALYSIS_TIMEOUT", 30*time.Second),
		AnonymousUsername: getEnv("ANONYMOUS_USERNAME", "guest"),
		MoodDBPath:        getEnv("MOOD_DB_PATH", "./data/mentalyze.db"),
		Transcript: TranscriptConfig{
			Enabled:       getEnvBool("TRANSCRIPT_LOG_ENABLED", false),
			Dir:           getEnv("TRANSCRIPT_LOG_DIR", "./data/logs/transcripts"),
			GlobalEnabled: getEnvBool("TRANSCRIPT_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("TRANSCRIPT_LOG_GLOBAL_PATH", "./data/logs/transcripts/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	persona, err := loadText(os.Getenv("PERSONA_FILE"), defaultPersona)
	if err != nil {
		return nil, fmt.Errorf("load persona: %w", err)
	}
	cfg.Persona = persona

	questions, err := loadLines(os.Getenv("QUESTIONS_FILE"), defaultQuestions)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	cfg.Questions = questions

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// A missing provider credential is deliberately not a startup error: the
// analysis client degrades to a diagnostic reply instead.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.AnalysisBackend {
	case BackendTogether, BackendLocal:
	default:
		return fmt.Errorf("ANALYSIS_BACKEND must be %q or %q, got %q", BackendTogether, BackendLocal, c.AnalysisBackend)
	}
	if c.TogetherURL == "" {
		return fmt.Errorf("TOGETHER_API_URL cannot be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("MODEL_NAME cannot be empty")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("MAX_TOKENS must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT must be > 0")
	}
	if c.AnonymousUsername == "" {
		return fmt.Errorf("ANONYMOUS_USERNAME cannot be empty")
	}
	if c.MoodDBPath == "" {
		return fmt.Errorf("MOOD_DB_PATH cannot be empty")
	}
	if c.Persona == "" {
		return fmt.Errorf("persona preamble cannot be empty")
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("question bank cannot be empty")
	}
	if c.Transcript.Dir == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_DIR cannot be empty")
	}
	if c.Transcript.GlobalPath == "" {
		return fmt.Errorf("TRANSCRIPT_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.Transcript.QueueSize <= 0 {
		return fmt.Errorf("TRANSCRIPT_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// loadText returns the trimmed contents of path, or fallback when path is empty.
func loadText(path, fallback string) (string, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%s is empty", path)
	}
	return text, nil
}

// loadLines returns the non-blank lines of path, or fallback when path is empty.
func loadLines(path string, fallback []string) ([]string, error) {
	if path == "" {
		out := make([]string, len(fallback))
		copy(out, fallback)
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s contains no questions", path)
	}
	return lines, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
