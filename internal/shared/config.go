package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file and the environment.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Refresh     RefreshConfig     `toml:"refresh"`
	Cache       CacheConfig       `toml:"cache"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
//
// Username selects whose public playlists are scanned; when empty the authenticated user's
// playlists are used.
type SpotifyConfig struct {
	Username     string `toml:"username" env:"SPOTIFY_USERNAME"`
	ClientID     string `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"SPOTIFY_REDIRECT_URI"`
	TokenPath    string `toml:"token_path" env:"SPINDB_TOKEN_PATH"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"SPINDB_DATABASE"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host" env:"SPINDB_HOST"`
	Port int    `toml:"port" env:"SPINDB_PORT"`
}

// RefreshConfig tunes the aggregation run.
type RefreshConfig struct {
	PageSize int `toml:"page_size"`
	// RateLimit caps source API requests per second.
	RateLimit float64 `toml:"rate_limit"`
	// RecentLimit and TopArtistsLimit size the home page lists.
	RecentLimit     int `toml:"recent_limit"`
	TopArtistsLimit int `toml:"top_artists_limit"`
	// LegacyDedup reproduces the original track counting.
	LegacyDedup bool `toml:"legacy_dedup"`
}

// CacheConfig sizes the report cache.
type CacheConfig struct {
	Size int `toml:"size"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" env:"SPINDB_LOG_LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults; environment variables
// override both.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := ApplyEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overlays environment variables onto config.
func ApplyEnv(config *Config) error {
	if err := cleanenv.ReadEnv(config); err != nil {
		return fmt.Errorf("%w: failed to read environment: %v", ErrInvalidConfig, err)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports whether the Spotify credentials needed for the auth flow are present.
func (c *Config) Validate() error {
	sp := c.Credentials.Spotify
	switch {
	case sp.ClientID == "":
		return fmt.Errorf("%w: spotify client_id", ErrMissingCredentials)
	case sp.ClientSecret == "":
		return fmt.Errorf("%w: spotify client_secret", ErrMissingCredentials)
	case sp.RedirectURI == "":
		return fmt.Errorf("%w: spotify redirect_uri", ErrMissingCredentials)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d", ErrInvalidConfig, c.Server.Port)
	}

	return nil
}

// Addr returns the listen address for the dashboard.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
