package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.Credentials.Spotify.RedirectURI != "http://localhost:3000/callback" {
			t.Errorf("unexpected redirect uri %s", config.Credentials.Spotify.RedirectURI)
		}
		if config.Schedule.Cron != "0 4 * * 1" {
			t.Errorf("expected monday 04:00 schedule, got %s", config.Schedule.Cron)
		}
		if config.Schedule.Timeout.Duration != 5*time.Minute {
			t.Errorf("expected 5m timeout, got %v", config.Schedule.Timeout)
		}
		if config.Server.AuthTimeout.Duration != 0 {
			t.Errorf("expected no auth timeout, got %v", config.Server.AuthTimeout)
		}
		if config.Token.Path != "refresh_token.txt" {
			t.Errorf("expected refresh_token.txt, got %s", config.Token.Path)
		}
		if config.Database.Enabled() {
			t.Error("expected run journal to be disabled by default")
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

		if config.Copy.TargetNameTemplate != DefaultConfig().Copy.TargetNameTemplate {
			t.Errorf("created config template doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[copy]
source_playlist_id = "src123"
target_name_template = "Week {0} Mix"
user_id = "me"

[schedule]
cron = "30 6 * * 2"
timeout = "90s"

[server]
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Copy.SourcePlaylistID != "src123" {
			t.Errorf("expected source src123, got %s", config.Copy.SourcePlaylistID)
		}
		if config.Schedule.Timeout.Duration != 90*time.Second {
			t.Errorf("expected 90s timeout, got %v", config.Schedule.Timeout)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Server.Host != "localhost" {
			t.Errorf("expected unset host to keep default, got %s", config.Server.Host)
		}
		if config.Schedule.Timezone != "UTC" {
			t.Errorf("expected unset timezone to keep default, got %s", config.Schedule.Timezone)
		}
	})

	t.Run("LoadConfig rejects bad duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[schedule]\ntimeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid duration")
		}
	})

	t.Run("LoadConfigOrDefault", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected defaults, got port %d", config.Server.Port)
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Copy.UserID = "someone"
		config.Schedule.Timeout = Duration{2 * time.Minute}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if loaded.Copy.UserID != "someone" {
			t.Errorf("expected user id someone, got %s", loaded.Copy.UserID)
		}
		if loaded.Schedule.Timeout.Duration != 2*time.Minute {
			t.Errorf("expected 2m timeout, got %v", loaded.Schedule.Timeout)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			EnvClientID:           "cid",
			EnvClientSecret:       "secret",
			EnvSourcePlaylistID:   "  source  ",
			EnvTargetNameTemplate: " Weekly {0} ",
			EnvUserID:             "",
		}
		lookup := func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}

		config := DefaultConfig()
		config.Copy.UserID = "from-file"
		config.ApplyEnv(lookup)

		if config.Credentials.Spotify.ClientID != "cid" {
			t.Errorf("expected client id from env, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Copy.SourcePlaylistID != "source" {
			t.Errorf("expected trimmed source id, got %q", config.Copy.SourcePlaylistID)
		}
		if config.Copy.UserID != "from-file" {
			t.Errorf("expected empty env value to keep file value, got %s", config.Copy.UserID)
		}
		if config.Copy.TargetNameTemplate != " Weekly {0} " {
			t.Errorf("expected name template kept verbatim, got %q", config.Copy.TargetNameTemplate)
		}
	})

	t.Run("LoadEnvFile", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte("WEEKCOPY_TEST_VALUE=from-dotenv\n"), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("WEEKCOPY_TEST_VALUE") })

		if err := LoadEnvFile(envPath); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := os.Getenv("WEEKCOPY_TEST_VALUE"); got != "from-dotenv" {
			t.Errorf("expected value from dotenv, got %q", got)
		}

		if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Errorf("missing env file should be ignored, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		valid := func() *Config {
			c := DefaultConfig()
			c.Credentials.Spotify.ClientID = "id"
			c.Credentials.Spotify.ClientSecret = "secret"
			c.Copy.SourcePlaylistID = "src"
			c.Copy.UserID = "user"
			return c
		}

		if err := valid().Validate(); err != nil {
			t.Fatalf("expected valid config, got %v", err)
		}

		tc := []struct {
			name   string
			mutate func(c *Config)
			want   error
		}{
			{"missing client id", func(c *Config) { c.Credentials.Spotify.ClientID = "" }, ErrMissingCredentials},
			{"missing source", func(c *Config) { c.Copy.SourcePlaylistID = "" }, ErrMissingConfig},
			{"missing user", func(c *Config) { c.Copy.UserID = "" }, ErrMissingConfig},
			{"template without placeholder", func(c *Config) { c.Copy.TargetNameTemplate = "Weekly" }, ErrInvalidConfig},
			{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, ErrInvalidConfig},
			{"empty cron", func(c *Config) { c.Schedule.Cron = "" }, ErrInvalidConfig},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				c := valid()
				tt.mutate(c)
				if err := c.Validate(); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}
