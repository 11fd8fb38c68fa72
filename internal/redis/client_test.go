package redisdb

import (
	"testing"
	"go-llama/internal/config"
)

func TestNewClient_BasicConfig(t *testing.T) {
	cfg := &config.Config{
		RedisAddr:     "localhost:6379",
		RedisPassword: "",
		RedisDB:       15,
	}

	client := NewClient(cfg)
	if client == nil {
		t.Fatalf("NewClient returned nil")
	}
	// Check that options are set as expected
	opts := client.Options()
	if opts.Addr != cfg.RedisAddr {
		t.Errorf("expected Addr %s, got %s", cfg.RedisAddr, opts.Addr)
	}
	if opts.Password != cfg.RedisPassword {
		t.Errorf("expected Password %s, got %s", cfg.RedisPassword, opts.Password)
	}
	if opts.DB != cfg.RedisDB {
		t.Errorf("expected DB %d, got %d", cfg.RedisDB, opts.DB)
	}
}
