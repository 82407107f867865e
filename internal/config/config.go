// Package config loads the application configuration.
//
// Values come from, in increasing priority: built-in defaults, an optional
// config file, a .env file, and ELJUNIOR_* environment variables. Nested keys
// map to variables with dots replaced by underscores, so moodle.url is read
// from ELJUNIOR_MOODLE_URL.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "ELJUNIOR"

type Config struct {
	Moodle   MoodleConfig   `mapstructure:"moodle"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// MoodleConfig points at the e-learning platform.
type MoodleConfig struct {
	URL               string        `mapstructure:"url" validate:"required,url"`
	Service           string        `mapstructure:"service" validate:"required"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"rps" validate:"gte=0"`
	Burst             int           `mapstructure:"burst" validate:"gte=0"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path" validate:"required"`
	// SessionKey encrypts the stored token. Empty stores it in plain text.
	SessionKey string `mapstructure:"session_key" validate:"omitempty,min=16"`
}

// AuthConfig configures the tokens issued to the local UI.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// SlogLevel converts Level for slog.HandlerOptions.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// ScheduleConfig selects the timetable source. With ICS empty the built-in
// sample timetable is served.
type ScheduleConfig struct {
	ICS      string `mapstructure:"ics"`
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone, defaulting to the local zone.
func (c ScheduleConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("moodle.url", "")
	v.SetDefault("moodle.service", "moodle_mobile_app")
	v.SetDefault("moodle.timeout", 30*time.Second)
	v.SetDefault("moodle.rps", 5.0)
	v.SetDefault("moodle.burst", 5)

	v.SetDefault("storage.db_path", "data/eljunior.db")
	v.SetDefault("storage.session_key", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)

	v.SetDefault("log.level", "info")

	v.SetDefault("schedule.ics", "")
	v.SetDefault("schedule.timezone", "")
}

// Load reads the configuration. configPath may be empty, in which case an
// eljunior.{yaml,toml,json} in the working directory is used if present.
// dotEnvPath, when non-empty and present, is loaded into the process
// environment first; variables that are already set win.
func Load(configPath, dotEnvPath string) (*Config, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, fmt.Errorf("loading %s: %w", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking %s: %w", dotEnvPath, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("eljunior")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields the application cannot start without.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if !strings.HasPrefix(c.Moodle.URL, "http://") && !strings.HasPrefix(c.Moodle.URL, "https://") {
		return fmt.Errorf("invalid config: moodle.url must be http or https, got %q", c.Moodle.URL)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("invalid config: schedule.timezone: %w", err)
	}
	return nil
}
