package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "mysql", cfg.StoreDriver)
	assert.Equal(t, "none", cfg.EventBroker)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10, cfg.MaxPriority)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("http_port: \"9090\"\nstore_driver: memory\njwt_secret: from-file\njwt_ttl: 2h\nrate_limit: 3.5\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("HTTP_PORT", "7070")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.HTTPPort, "env overrides file")
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.InDelta(t, 3.5, cfg.RateLimit, 0.0001)
}

func TestLoadConfig_SecretFromFile(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "jwt")
	require.NoError(t, os.WriteFile(secretPath, []byte("  file-secret\n"), 0o600))

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET_FILE", secretPath)
	t.Setenv("JWT_SECRET", "ignored")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"bad store", func(c *Config) { c.StoreDriver = "postgres" }, true},
		{"bad broker", func(c *Config) { c.EventBroker = "nats" }, true},
		{"kafka without brokers", func(c *Config) { c.EventBroker = "kafka" }, true},
		{"kafka with brokers", func(c *Config) { c.EventBroker = "kafka"; c.KafkaBrokers = "localhost:9092" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			c.JWTSecret = "x"
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBrokers(t *testing.T) {
	c := &Config{KafkaBrokers: " kafka-1:9092, ,kafka-2:9092 "}
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.Brokers())
	assert.Empty(t, (&Config{}).Brokers())
}
