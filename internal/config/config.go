// Package config loads the configuration of the record command.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gopsql/record/dial"
	"github.com/gopsql/record/generate"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	DefaultFile      = "record.yaml"
	EnvPrefix        = "RECORD_"
	DefaultMigrTable = "schema_migrations"
)

// Config holds all options of the record command.
type Config struct {
	Database          dial.Config `koanf:"database" yaml:"database"`
	MigrationsDir     string      `koanf:"migrations_dir" yaml:"migrations_dir"`
	MigrationsPackage string      `koanf:"migrations_package" yaml:"migrations_package"`
	MigrationsTable   string      `koanf:"migrations_table" yaml:"migrations_table"`
	ModelsDir         string      `koanf:"models_dir" yaml:"models_dir"`
	ModelsPackage     string      `koanf:"models_package" yaml:"models_package"`
	Verbose           bool        `koanf:"verbose" yaml:"verbose"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Database: dial.Config{
			Driver:  dial.DriverPgx,
			Host:    dial.DefaultHost,
			Port:    dial.DefaultPort,
			SSLMode: dial.DefaultSSLMode,
		},
		MigrationsDir:     generate.DefaultMigrationsDir,
		MigrationsPackage: generate.DefaultMigrationsPkg,
		MigrationsTable:   DefaultMigrTable,
		ModelsDir:         generate.DefaultModelsDir,
		ModelsPackage:     generate.DefaultModelsPackage,
	}
}

func defaults() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"database.driver":    d.Database.Driver,
		"database.host":      d.Database.Host,
		"database.port":      d.Database.Port,
		"database.sslmode":   d.Database.SSLMode,
		"migrations_dir":     d.MigrationsDir,
		"migrations_package": d.MigrationsPackage,
		"migrations_table":   d.MigrationsTable,
		"models_dir":         d.ModelsDir,
		"models_package":     d.ModelsPackage,
		"verbose":            false,
	}
}

// Load reads the configuration. Precedence (highest to lowest): flags that
// were set, RECORD_ environment variables, the config file, defaults.
//
// Environment variables use a double underscore for nesting:
// RECORD_DATABASE__HOST sets database.host. An empty cfgFile means
// record.yaml if it exists.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	used := cfgFile
	if used == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			used = DefaultFile
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"driver":         "database.driver",
	"host":           "database.host",
	"port":           "database.port",
	"user":           "database.user",
	"password":       "database.password",
	"database":       "database.database",
	"sslmode":        "database.sslmode",
	"migrations-dir": "migrations_dir",
	"models-dir":     "models_dir",
	"verbose":        "verbose",
}
