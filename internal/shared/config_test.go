package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./spin.db" {
			t.Errorf("expected database path ./spin.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Refresh.PageSize != 50 {
			t.Errorf("expected page size 50, got %d", config.Refresh.PageSize)
		}

		if config.Refresh.RecentLimit != 10 || config.Refresh.TopArtistsLimit != 10 {
			t.Errorf("expected home page limits of 10, got %d/%d", config.Refresh.RecentLimit, config.Refresh.TopArtistsLimit)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
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

[server]
host = "0.0.0.0"
port = 8080

[credentials.spotify]
username = "spinner"
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:8080/"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		if config.Credentials.Spotify.Username != "spinner" {
			t.Errorf("expected username spinner, got %s", config.Credentials.Spotify.Username)
		}

		if config.Refresh.PageSize != 50 {
			t.Errorf("missing keys should keep defaults, got page size %d", config.Refresh.PageSize)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env_client")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "env_secret")
		t.Setenv("SPINDB_PORT", "9090")

		config := DefaultConfig()
		if err := ApplyEnv(config); err != nil {
			t.Fatalf("failed to apply env: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "env_client" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "env_secret" {
			t.Errorf("expected env client secret, got %s", config.Credentials.Spotify.ClientSecret)
		}
		if config.Server.Port != 9090 {
			t.Errorf("expected env port 9090, got %d", config.Server.Port)
		}
		if config.Database.Path != "./spin.db" {
			t.Errorf("unset env vars should not clear values, got %s", config.Database.Path)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate, got %v", err)
		}

		config.Credentials.Spotify.ClientSecret = ""
		if err := config.Validate(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		config = DefaultConfig()
		config.Server.Port = 0
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
