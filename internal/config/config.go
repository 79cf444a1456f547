// Package config loads runtime configuration from the environment, with a
// .env file honored for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// STT provider names accepted by STT_PROVIDER.
const (
	ProviderWhisper = "whisper"
	ProviderGoogle  = "google"
	ProviderMock    = "mock"
)

// Config holds every runtime-tunable knob.
type Config struct {
	Port string

	// Speech-to-text
	STTProvider   string
	WhisperAPIKey string
	WhisperURL    string
	WhisperModel  string

	// Language model
	GeminiAPIKey string
	GeminiModel  string

	// Pipeline tuning
	MaxSegmentDuration  time.Duration
	OverlapWindow       time.Duration
	MinTrailingDuration time.Duration
	MaxConcurrentCalls  int
	MaxTranslationJobs  int

	// Content
	GlossaryPath string

	// Auth
	JWTSecret string
}

// Load reads configuration from the environment. A missing .env file is not
// an error; explicit environment variables always win over defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		STTProvider:   getEnv("STT_PROVIDER", ProviderWhisper),
		WhisperAPIKey: os.Getenv("OPENAI_API_KEY"),
		WhisperURL:    os.Getenv("WHISPER_BASE_URL"),
		WhisperModel:  getEnv("WHISPER_MODEL", "whisper-1"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GlossaryPath:  getEnv("GLOSSARY_PATH", "data/glossary.json"),
		JWTSecret:     getEnv("JWT_SECRET", "development-secret"),
	}

	var err error
	if cfg.MaxSegmentDuration, err = getDuration("MAX_SEGMENT_DURATION", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.OverlapWindow, err = getDuration("OVERLAP_WINDOW", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.MinTrailingDuration, err = getDuration("MIN_TRAILING_SEGMENT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentCalls, err = getInt("MAX_CONCURRENT_CALLS", 4); err != nil {
		return nil, err
	}
	if cfg.MaxTranslationJobs, err = getInt("MAX_TRANSLATION_JOBS", 3); err != nil {
		return nil, err
	}

	switch cfg.STTProvider {
	case ProviderWhisper, ProviderGoogle, ProviderMock:
	default:
		return nil, fmt.Errorf("unknown STT_PROVIDER %q", cfg.STTProvider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
