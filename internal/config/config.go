package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"apexrun/internal/analysis"
	"apexrun/internal/store"
)

// EnvPrefix prefixes environment overrides, e.g. APEXRUN_ATHLETE_AGE
const EnvPrefix = "APEXRUN"

// Config represents the application configuration
type Config struct {
	Athlete AthleteConfig `json:"athlete" mapstructure:"athlete"`
	Storage StorageConfig `json:"storage" mapstructure:"storage"`
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Strava  StravaConfig  `json:"strava" mapstructure:"strava"`
}

// AthleteConfig holds the personal settings used by the heart rate models
type AthleteConfig struct {
	Sex   string  `json:"sex" mapstructure:"sex"`
	Age   int     `json:"age" mapstructure:"age"`       // 0 when unknown
	MaxHR float64 `json:"max_hr" mapstructure:"max_hr"` // 0 means estimate from data
}

// StorageConfig selects the history backend
type StorageConfig struct {
	Driver string `json:"driver" mapstructure:"driver"`
	Path   string `json:"path" mapstructure:"path"` // empty means inside the config dir
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
	RefreshToken string `json:"refresh_token" mapstructure:"refresh_token"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Athlete: AthleteConfig{Sex: string(analysis.SexMale)},
		Storage: StorageConfig{Driver: store.DriverJSON},
		Server:  ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// Dir returns the config directory, ~/.apexrun unless APEXRUN_HOME is set
func Dir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".apexrun"), nil
}

// Path returns the config file location
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from the default path
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a JSON config file and applies APEXRUN_* environment
// overrides on top. Missing keys take their DefaultConfig values.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoConfig
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("athlete.sex", d.Athlete.Sex)
	v.SetDefault("athlete.age", d.Athlete.Age)
	v.SetDefault("athlete.max_hr", d.Athlete.MaxHR)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("strava.client_id", "")
	v.SetDefault("strava.client_secret", "")
	v.SetDefault("strava.refresh_token", "")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to the default path
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration as indented JSON, readable only by the owner
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// CreateExample writes the default config to path unless a file is already there
func CreateExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	cfg := DefaultConfig()
	return SaveTo(path, &cfg)
}

// Validate checks field ranges
func (c *Config) Validate() error {
	switch analysis.Sex(c.Athlete.Sex) {
	case analysis.SexMale, analysis.SexFemale:
	default:
		return fmt.Errorf("athlete.sex must be \"male\" or \"female\", got %q", c.Athlete.Sex)
	}
	if c.Athlete.Age < 0 || c.Athlete.Age > 120 {
		return fmt.Errorf("athlete.age must be between 0 and 120, got %d", c.Athlete.Age)
	}
	if c.Athlete.MaxHR != 0 && (c.Athlete.MaxHR < 100 || c.Athlete.MaxHR > 250) {
		return fmt.Errorf("athlete.max_hr must be 0 or between 100 and 250, got %v", c.Athlete.MaxHR)
	}

	switch c.Storage.Driver {
	case store.DriverJSON, store.DriverSQLite:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", store.DriverJSON, store.DriverSQLite, c.Storage.Driver)
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	return nil
}

// ValidateStrava checks the credentials needed by strava-auth and strava-sync
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// Profile converts the athlete settings for the analysis models
func (a AthleteConfig) Profile() analysis.Athlete {
	return analysis.Athlete{
		Sex:           analysis.Sex(a.Sex),
		Age:           a.Age,
		MaxHROverride: a.MaxHR,
	}
}

// StoragePath returns the history location, defaulting by driver inside dir
func (s StorageConfig) StoragePath(dir string) string {
	if s.Path != "" {
		return s.Path
	}
	if s.Driver == store.DriverSQLite {
		return filepath.Join(dir, "history.db")
	}
	return filepath.Join(dir, "history.json")
}
