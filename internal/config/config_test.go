package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "record.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
database:
  host: file-host
  port: 6543
  user: app
  database: blog
migrations_dir: db/migrate
verbose: true
`)
	t.Setenv("RECORD_DATABASE__USER", "env-user")
	t.Setenv("RECORD_MODELS_DIR", "app/models")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("host", "", "")
	flags.String("driver", "", "")
	flags.Int("port", 0, "")
	require.NoError(t, flags.Parse([]string{"--host=flag-host", "--driver=pq"}))

	cfg, used, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "flag-host", cfg.Database.Host)
	assert.Equal(t, "pq", cfg.Database.Driver)
	assert.Equal(t, 6543, cfg.Database.Port, "unset flags keep the file value")
	assert.Equal(t, "env-user", cfg.Database.User)
	assert.Equal(t, "blog", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "db/migrate", cfg.MigrationsDir)
	assert.Equal(t, "app/models", cfg.ModelsDir)
	assert.True(t, cfg.Verbose)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"bad yaml", "database: [", "error reading config file"},
		{"unknown driver", "database:\n  driver: mysql\n", "unknown driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}

	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
