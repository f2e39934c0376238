package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	valid := Options{
		ServerAddr:     "localhost:8080",
		DatabaseDriver: "postgres",
		DatabaseDSN:    "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable",
		SigningSecret:  "c29tZV9zZWNyZXQ=",
		AllowedOrigins: []string{"http://localhost:3000"},
	}

	tcases := []struct {
		name   string
		modify func(*Options)
		err    bool
	}{
		{
			name:   "valid config",
			modify: func(o *Options) {},
		},
		{
			name:   "empty address",
			modify: func(o *Options) { o.ServerAddr = "" },
			err:    true,
		},
		{
			name:   "empty DSN",
			modify: func(o *Options) { o.DatabaseDSN = "" },
			err:    true,
		},
		{
			name: "memory driver needs no DSN",
			modify: func(o *Options) {
				o.DatabaseDriver = "memory"
				o.DatabaseDSN = ""
			},
		},
		{
			name:   "unknown driver",
			modify: func(o *Options) { o.DatabaseDriver = "mysql" },
			err:    true,
		},
		{
			name:   "empty signing key",
			modify: func(o *Options) { o.SigningSecret = "" },
			err:    true,
		},
		{
			name:   "invalid signing key",
			modify: func(o *Options) { o.SigningSecret = "invalid_base64" },
			err:    true,
		},
		{
			name:   "negative storage timeout",
			modify: func(o *Options) { o.StorageTimeout = -time.Second },
			err:    true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			opts := valid
			tc.modify(&opts)

			config, err := NewConfig(opts)
			if tc.err {
				assert.Error(t, err, "expected error for config: %s", tc.name)
				return
			}
			require.NoError(t, err, "expected no error for config: %s", tc.name)

			assert.Equal(t, opts.ServerAddr, config.ServerAddr, "expected server address to match")
			assert.Equal(t, opts.DatabaseDSN, config.DatabaseDSN, "expected database DSN to match")
			assert.Equal(t, opts.AllowedOrigins, config.AllowedOrigins, "expected allowed origins to match")
			assert.Equal(t, []byte("some_secret"), config.SigningKey)
			assert.Equal(t, DefaultStorageTimeout, config.StorageTimeout)
		})
	}
}

func TestNewConfig_AnonymousEditRequiresAnonymous(t *testing.T) {
	opts := Options{
		ServerAddr:         ":8000",
		DatabaseDriver:     "memory",
		SigningSecret:      "c29tZV9zZWNyZXQ=",
		AnonymousMayMutate: true,
	}

	config, err := NewConfig(opts)
	require.NoError(t, err)
	assert.False(t, config.AnonymousMayMutate)

	opts.AllowAnonymous = true
	config, err = NewConfig(opts)
	require.NoError(t, err)
	assert.True(t, config.AnonymousMayMutate)
}

func Test_decodeSigningKey(t *testing.T) {
	tcases := []struct {
		name         string
		base64Secret string
		expectedKey  []byte
		expectError  bool
	}{
		{
			name:         "valid base64 secret",
			base64Secret: "c29tZV9zZWNyZXQ=",
			expectedKey:  []byte("some_secret"),
		},
		{
			name:         "invalid base64 secret",
			base64Secret: "invalid_base64",
			expectError:  true,
		},
		{
			name:         "empty base64 secret",
			base64Secret: "",
			expectError:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := decodeSigningSecret(tc.base64Secret)
			if tc.expectError {
				assert.Error(t, err, "expected error for base64 secret: %s", tc.base64Secret)
			} else {
				assert.NoError(t, err, "expected no error for base64 secret: %s", tc.base64Secret)
				assert.Equal(t, tc.expectedKey, key, "expected decoded key to match for base64 secret: %s", tc.base64Secret)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("CODECOLLAB_TEST_DSN", "file:collab.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
addr: ":9000"
db_driver: sqlite3
dsn: ${CODECOLLAB_TEST_DSN}
allowed_origins:
  - http://localhost:5173
allow_anonymous: true
storage_timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	opts := Options{SigningSecret: "c29tZV9zZWNyZXQ=", ServerAddr: "localhost:8000"}
	require.NoError(t, Load(path, &opts))

	assert.Equal(t, ":9000", opts.ServerAddr)
	assert.Equal(t, "sqlite3", opts.DatabaseDriver)
	assert.Equal(t, "file:collab.db", opts.DatabaseDSN)
	assert.Equal(t, []string{"http://localhost:5173"}, opts.AllowedOrigins)
	assert.True(t, opts.AllowAnonymous)
	assert.Equal(t, 2*time.Second, opts.StorageTimeout)
	assert.Equal(t, "c29tZV9zZWNyZXQ=", opts.SigningSecret)
}

func TestLoad_Errors(t *testing.T) {
	var opts Options
	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml"), &opts))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: [unterminated"), 0o600))
	assert.Error(t, Load(path, &opts))
}
