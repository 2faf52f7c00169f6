package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "tasksync.db" {
			t.Errorf("expected database path tasksync.db, got %s", config.Database.Path)
		}

		if config.Sync.DefaultPriority != 3 {
			t.Errorf("expected default priority 3, got %d", config.Sync.DefaultPriority)
		}

		if config.Sync.RateLimit != 5.0 {
			t.Errorf("expected rate limit 5.0, got %f", config.Sync.RateLimit)
		}

		if config.Credentials.Microsoft.TokenURL == "" {
			t.Error("expected microsoft token URL to be set")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[sync]
default_priority = 1
rate_limit = 2.5

[credentials.microsoft]
client_id = "test_client_id"
client_secret = "test_secret"
refresh_token = "test_refresh"
token_url = "https://example.com/token"

[credentials.caldav]
url = "https://dav.example.com/tasks"
username = "user@example.com"
access_token = "caldav_token"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected custom database path, got %s", config.Database.Path)
		}

		if config.Sync.DefaultPriority != 1 {
			t.Errorf("expected default priority 1, got %d", config.Sync.DefaultPriority)
		}

		if config.Credentials.Microsoft.ClientID != "test_client_id" {
			t.Errorf("expected microsoft client_id test_client_id, got %s", config.Credentials.Microsoft.ClientID)
		}

		if config.Credentials.Caldav.URL != "https://dav.example.com/tasks" {
			t.Errorf("expected caldav url, got %s", config.Credentials.Caldav.URL)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
