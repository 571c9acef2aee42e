package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apexrun/internal/analysis"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Athlete.Sex != "male" {
		t.Errorf("Athlete.Sex = %q, want %q", cfg.Athlete.Sex, "male")
	}
	if cfg.Athlete.MaxHR != 0 {
		t.Errorf("Athlete.MaxHR = %v, want 0 (estimate from data)", cfg.Athlete.MaxHR)
	}
	if cfg.Storage.Driver != "json" {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, "json")
	}
	if cfg.Strava.ClientID != "" {
		t.Errorf("Strava.ClientID should be empty, got %q", cfg.Strava.ClientID)
	}
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"female", func(c *Config) { c.Athlete.Sex = "female" }, ""},
		{"unknown sex", func(c *Config) { c.Athlete.Sex = "other" }, "athlete.sex"},
		{"negative age", func(c *Config) { c.Athlete.Age = -1 }, "athlete.age"},
		{"implausible max hr", func(c *Config) { c.Athlete.MaxHR = 300 }, "athlete.max_hr"},
		{"max hr override", func(c *Config) { c.Athlete.MaxHR = 192 }, ""},
		{"sqlite", func(c *Config) { c.Storage.Driver = "sqlite" }, ""},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }, "storage.driver"},
		{"no server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidateStrava(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorContains(t, cfg.ValidateStrava(), "client_id")

	cfg.Strava.ClientID = "12345"
	assert.ErrorContains(t, cfg.ValidateStrava(), "client_secret")

	cfg.Strava.ClientSecret = "secret"
	assert.NoError(t, cfg.ValidateStrava())
}

func TestLoadFromMissing(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	want := Config{
		Athlete: AthleteConfig{Sex: "female", Age: 34, MaxHR: 188},
		Storage: StorageConfig{Driver: "sqlite", Path: "/tmp/runs.db"},
		Server:  ServerConfig{Addr: ":9000"},
		Strava:  StravaConfig{ClientID: "1", ClientSecret: "s", RefreshToken: "r"},
	}

	require.NoError(t, SaveTo(path, &want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadFrom(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("LoadFrom() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"athlete": {"age": 40}}`), 0o600))

	t.Setenv("APEXRUN_STORAGE_DRIVER", "sqlite")
	t.Setenv("APEXRUN_ATHLETE_MAX_HR", "191")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Athlete.Age)
	assert.Equal(t, "male", cfg.Athlete.Sex, "default")
	assert.Equal(t, 191.0, cfg.Athlete.MaxHR, "env override")
	assert.Equal(t, "sqlite", cfg.Storage.Driver, "env override")
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestLoadFromCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoConfig)
}

func TestCreateExampleDoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"athlete": {"age": 50}}`), 0o600))

	require.NoError(t, CreateExample(path))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Athlete.Age)
}

func TestDirHonoursEnv(t *testing.T) {
	t.Setenv("APEXRUN_HOME", "/srv/apexrun")

	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, "/srv/apexrun", dir)

	path, err := Path()
	require.NoError(t, err)
	assert.Equal(t, "/srv/apexrun/config.json", path)
}

func TestProfileAndStoragePath(t *testing.T) {
	a := AthleteConfig{Sex: "female", Age: 30, MaxHR: 190}
	assert.Equal(t, analysis.Athlete{Sex: analysis.SexFemale, Age: 30, MaxHROverride: 190}, a.Profile())

	assert.Equal(t, "/d/history.json", StorageConfig{Driver: "json"}.StoragePath("/d"))
	assert.Equal(t, "/d/history.db", StorageConfig{Driver: "sqlite"}.StoragePath("/d"))
	assert.Equal(t, "/x.db", StorageConfig{Driver: "sqlite", Path: "/x.db"}.StoragePath("/d"))
}
