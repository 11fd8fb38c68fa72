// Package config loads process configuration from the environment (spec §6.6),
// following the singleton-plus-defaults-cascade pattern used throughout the
// source repository's own internal/config package.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Config holds every environment-derived setting the orchestrator needs.
type Config struct {
	LLMAPIKey    string
	LLMModel     string
	LLMBaseURL   string

	VectorDBEndpoint   string
	VectorDBUsername   string
	VectorDBKey        string
	VectorDBCollection string

	ProfileAPIBaseURL string
	CasualStoreURL    string

	EmbeddingAPIURL    string
	EmbeddingModelName string
	SparseAPIURL       string
	SparseModelName    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CriticalTimeout       time.Duration
	BackgroundTimeout     time.Duration
	TurnDeadline          time.Duration
	CircuitBreakerTimeout time.Duration
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads the process environment once and caches the result;
// subsequent calls return the cached Config (or the cached error).
func LoadConfig() (*Config, error) {
	once.Do(func() {
		c := &Config{
			LLMAPIKey:          os.Getenv("LLM_API_KEY"),
			LLMModel:           os.Getenv("LLM_MODEL"),
			LLMBaseURL:         os.Getenv("LLM_BASE_URL"),
			VectorDBEndpoint:   os.Getenv("VECTORDB_ENDPOINT"),
			VectorDBUsername:   os.Getenv("VECTORDB_USERNAME"),
			VectorDBKey:        os.Getenv("VECTORDB_KEY"),
			VectorDBCollection: os.Getenv("VECTORDB_COLLECTION"),
			ProfileAPIBaseURL:  os.Getenv("PROFILE_API_BASE_URL"),
			CasualStoreURL:     os.Getenv("CASUAL_STORE_BASE_URL"),
			EmbeddingAPIURL:    os.Getenv("EMBEDDING_API_URL"),
			EmbeddingModelName: os.Getenv("EMBEDDING_MODEL_NAME"),
			SparseAPIURL:       os.Getenv("SPARSE_API_URL"),
			SparseModelName:    os.Getenv("SPARSE_MODEL_NAME"),
			RedisAddr:          os.Getenv("REDIS_ADDR"),
			RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		}
		applyDefaults(c)
		if c.LLMAPIKey == "" {
			cfgErr = fmt.Errorf("LLM_API_KEY is required")
			return
		}
		cfg = c
	})
	return cfg, cfgErr
}

func applyDefaults(c *Config) {
	if c.LLMModel == "" {
		c.LLMModel = "glm-4-flash"
	}
	if c.LLMBaseURL == "" {
		c.LLMBaseURL = "http://localhost:8000/v1/chat/completions"
	}
	if c.VectorDBCollection == "" {
		c.VectorDBCollection = "user_vectors_1024"
	}
	if c.ProfileAPIBaseURL == "" {
		c.ProfileAPIBaseURL = "http://localhost:8000"
	}
	if c.CasualStoreURL == "" {
		c.CasualStoreURL = "http://localhost:8000"
	}
	if c.EmbeddingAPIURL == "" {
		c.EmbeddingAPIURL = "http://localhost:9000/v1/embeddings"
	}
	if c.EmbeddingModelName == "" {
		c.EmbeddingModelName = "bge-m3"
	}
	if c.SparseModelName == "" {
		c.SparseModelName = "splade-v3"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
	if c.CriticalTimeout == 0 {
		c.CriticalTimeout = 60 * time.Second
	}
	if c.BackgroundTimeout == 0 {
		c.BackgroundTimeout = 120 * time.Second
	}
	if c.TurnDeadline == 0 {
		c.TurnDeadline = 60 * time.Second
	}
	if c.CircuitBreakerTimeout == 0 {
		c.CircuitBreakerTimeout = 5 * time.Minute
	}
}

// GetConfig returns the loaded config (must call LoadConfig first).
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only).
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
