package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-secret"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ELJUNIOR_MOODLE_URL", "https://moodle.example.edu")
	t.Setenv("ELJUNIOR_AUTH_JWT_SECRET", testSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	chdir(t, t.TempDir())

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "https://moodle.example.edu", cfg.Moodle.URL)
	assert.Equal(t, "moodle_mobile_app", cfg.Moodle.Service)
	assert.Equal(t, 30*time.Second, cfg.Moodle.Timeout)
	assert.Equal(t, 5.0, cfg.Moodle.RequestsPerSecond)
	assert.Equal(t, "data/eljunior.db", cfg.Storage.DBPath)
	assert.Empty(t, cfg.Storage.SessionKey)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())

	loc, err := cfg.Schedule.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ELJUNIOR_MOODLE_TIMEOUT", "5s")
	t.Setenv("ELJUNIOR_SERVER_PORT", "9191")
	t.Setenv("ELJUNIOR_LOG_LEVEL", "debug")
	t.Setenv("ELJUNIOR_SCHEDULE_TIMEZONE", "UTC")
	chdir(t, t.TempDir())

	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Moodle.Timeout)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "UTC", cfg.Schedule.Timezone)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Setenv("ELJUNIOR_AUTH_JWT_SECRET", testSecret)
	dir := t.TempDir()
	path := filepath.Join(dir, "eljunior.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
moodle:
  url: https://lms.example.org/
  rps: 0
schedule:
  ics: webcal://timetable.example.org/group.ics
`), 0o600))

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "https://lms.example.org/", cfg.Moodle.URL)
	assert.Equal(t, 0.0, cfg.Moodle.RequestsPerSecond)
	assert.Equal(t, "webcal://timetable.example.org/group.ics", cfg.Schedule.ICS)
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("ELJUNIOR_AUTH_JWT_SECRET", testSecret)
	// registered so the variable godotenv sets is removed after the test
	t.Setenv("ELJUNIOR_MOODLE_URL", "")
	require.NoError(t, os.Unsetenv("ELJUNIOR_MOODLE_URL"))

	dir := t.TempDir()
	chdir(t, dir)
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("ELJUNIOR_MOODLE_URL=https://dotenv.example.edu\n"), 0o600))

	cfg, err := Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example.edu", cfg.Moodle.URL)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	setRequired(t)
	chdir(t, t.TempDir())

	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Moodle:  MoodleConfig{URL: "https://moodle.example.edu", Service: "moodle_mobile_app", Timeout: time.Second},
			Storage: StorageConfig{DBPath: ":memory:"},
			Auth:    AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
			Server:  ServerConfig{Host: "127.0.0.1", Port: 8080},
			Log:     LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing moodle url", func(c *Config) { c.Moodle.URL = "" }, true},
		{"non-http moodle url", func(c *Config) { c.Moodle.URL = "ftp://moodle.example.edu" }, true},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"short session key", func(c *Config) { c.Storage.SessionKey = "short" }, true},
		{"session key long enough", func(c *Config) { c.Storage.SessionKey = testSecret }, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }, true},
		{"unknown timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	t.Setenv("PWD", abs)
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			panic("chdir: restoring working directory: " + err.Error())
		}
	})
}
