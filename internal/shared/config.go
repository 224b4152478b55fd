package shared

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variable names that override values from the config file.
const (
	EnvClientID           = "CLIENT_ID"
	EnvClientSecret       = "CLIENT_SECRET"
	EnvSourcePlaylistID   = "SOURCE_PLAYLIST_ID"
	EnvTargetNameTemplate = "TARGET_PLAYLIST_NAME_TEMPLATE"
	EnvUserID             = "USER_ID"
)

// WeekPlaceholder is substituted with the ISO week number in [CopyConfig.TargetNameTemplate].
const WeekPlaceholder = "{0}"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Copy        CopyConfig        `toml:"copy"`
	Schedule    ScheduleConfig    `toml:"schedule"`
	Token       TokenConfig       `toml:"token"`
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map returns the credentials in the form expected by services.NewSpotifyService.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// CopyConfig describes the source playlist and the weekly destination playlist.
type CopyConfig struct {
	SourcePlaylistID   string `toml:"source_playlist_id"`
	TargetNameTemplate string `toml:"target_name_template"`
	UserID             string `toml:"user_id"`
}

// ScheduleConfig contains the recurring trigger settings.
type ScheduleConfig struct {
	Cron     string   `toml:"cron"`
	Timezone string   `toml:"timezone"`
	Timeout  Duration `toml:"timeout"`
}

// Location resolves the configured time zone, defaulting to UTC.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, s.Timezone, err)
	}
	return loc, nil
}

// TokenConfig points at the refresh token file.
type TokenConfig struct {
	Path string `toml:"path"`
}

// ServerConfig contains settings for the local OAuth callback listener.
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	AuthTimeout Duration `toml:"auth_timeout"`
}

// Addr returns the host:port the callback listener binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains run journal connection settings. An empty path disables the journal.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Enabled reports whether the run journal is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Path != ""
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Duration wraps [time.Duration] so it can be written as "5m" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, string(text))
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
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

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadEnvFile loads a dotenv file into the process environment when it exists.
//
// Variables already present in the environment are not overwritten.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values with non-empty environment variables.
//
// lookup is usually [os.LookupEnv].
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for name, target := range map[string]*string{
		EnvClientID:         &c.Credentials.Spotify.ClientID,
		EnvClientSecret:     &c.Credentials.Spotify.ClientSecret,
		EnvSourcePlaylistID: &c.Copy.SourcePlaylistID,
		EnvUserID:           &c.Copy.UserID,
	} {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}

	// The name template is used verbatim, surrounding spaces included.
	if v, ok := lookup(EnvTargetNameTemplate); ok && strings.TrimSpace(v) != "" {
		c.Copy.TargetNameTemplate = v
	}
}

// ValidateAuth checks the values needed to talk to the token endpoint.
func (c *Config) ValidateAuth() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: %s and %s must be set", ErrMissingCredentials, EnvClientID, EnvClientSecret)
	}
	if c.Token.Path == "" {
		return fmt.Errorf("%w: token.path must be set", ErrInvalidConfig)
	}
	return nil
}

// Validate checks everything a scheduled copy needs.
func (c *Config) Validate() error {
	if err := c.ValidateAuth(); err != nil {
		return err
	}

	var missing []string
	if c.Copy.SourcePlaylistID == "" {
		missing = append(missing, EnvSourcePlaylistID)
	}
	if c.Copy.TargetNameTemplate == "" {
		missing = append(missing, EnvTargetNameTemplate)
	}
	if c.Copy.UserID == "" {
		missing = append(missing, EnvUserID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if !strings.Contains(c.Copy.TargetNameTemplate, WeekPlaceholder) {
		return fmt.Errorf("%w: %s must contain %s", ErrInvalidConfig, EnvTargetNameTemplate, WeekPlaceholder)
	}
	if c.Schedule.Cron == "" {
		return fmt.Errorf("%w: schedule.cron must be set", ErrInvalidConfig)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	return nil
}
