package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LLM_API_KEY", "LLM_MODEL", "LLM_BASE_URL",
		"VECTORDB_ENDPOINT", "VECTORDB_USERNAME", "VECTORDB_KEY", "VECTORDB_COLLECTION",
		"PROFILE_API_BASE_URL", "CASUAL_STORE_BASE_URL",
		"EMBEDDING_MODEL_NAME", "SPARSE_MODEL_NAME",
		"REDIS_ADDR", "REDIS_PASSWORD",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoadConfig_Valid(t *testing.T) {
	ResetConfigForTest()
	clearEnv(t)
	os.Setenv("LLM_API_KEY", "test-key")
	defer os.Unsetenv("LLM_API_KEY")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.LLMModel != "glm-4-flash" {
		t.Errorf("expected default model, got %q", cfg.LLMModel)
	}
	if cfg.VectorDBCollection != "user_vectors_1024" {
		t.Errorf("expected default collection, got %q", cfg.VectorDBCollection)
	}
	if cfg.ProfileAPIBaseURL != "http://localhost:8000" {
		t.Errorf("expected default profile api base url, got %q", cfg.ProfileAPIBaseURL)
	}
}

func TestLoadConfig_MissingAPIKey(t *testing.T) {
	ResetConfigForTest()
	clearEnv(t)

	_, err := LoadConfig()
	if err == nil {
		t.Errorf("expected error when LLM_API_KEY is unset")
	}
}

func TestLoadConfig_Singleton(t *testing.T) {
	ResetConfigForTest()
	clearEnv(t)
	os.Setenv("LLM_API_KEY", "key-one")
	defer os.Unsetenv("LLM_API_KEY")

	first, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	os.Setenv("LLM_API_KEY", "key-two")
	second, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected LoadConfig to return the cached singleton")
	}
	if second.LLMAPIKey != "key-one" {
		t.Errorf("expected cached value key-one, got %q", second.LLMAPIKey)
	}
}
