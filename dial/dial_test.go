package dial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "defaults",
			cfg:  Config{},
			want: "host=localhost port=5432 sslmode=disable",
		},
		{
			name: "full",
			cfg: Config{
				Host:     "db.internal",
				Port:     6543,
				User:     "app",
				Password: "secret",
				Database: "blog",
				SSLMode:  "require",
			},
			want: "host=db.internal port=6543 dbname=blog sslmode=require user=app password=secret",
		},
		{
			name: "quoted values and options",
			cfg: Config{
				Database: "my db",
				Password: `it's`,
				Options:  map[string]string{"search_path": "app", "application_name": "record"},
			},
			want: `host=localhost port=5432 dbname='my db' sslmode=disable password='it\'s' application_name=record search_path=app`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestConfigString(t *testing.T) {
	cfg := Config{User: "app", Password: "secret"}
	assert.NotContains(t, cfg.String(), "secret")
	assert.Contains(t, cfg.DSN(), "secret")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		errSubstr string
	}{
		{"default driver", Config{Database: "app"}, ""},
		{"pq", Config{Driver: DriverPq, Database: "app"}, ""},
		{"unknown driver", Config{Driver: "mysql"}, "unknown driver"},
		{"bad sslmode", Config{SSLMode: "sometimes"}, "invalid connection config"},
		{"bad port", Config{Port: 70000}, "invalid connection config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := Open(Config{Driver: "sqlite"})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	assert.Panics(t, func() { MustOpen(Config{SSLMode: "sometimes"}) })
}
