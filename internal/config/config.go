package config

import (
	"encoding/base64"
	"fmt"
	"slices"
	"time"

	"github.com/npezzotti/go-codecollab/internal/database"
)

const DefaultStorageTimeout = 5 * time.Second

var drivers = []string{
	database.DriverPostgres,
	database.DriverPgx,
	database.DriverSqlite,
	database.DriverMemory,
}

// Options holds raw settings as read from flags or a config file.
type Options struct {
	ServerAddr         string        `yaml:"addr"`
	DatabaseDriver     string        `yaml:"db_driver"`
	DatabaseDSN        string        `yaml:"dsn"`
	SigningSecret      string        `yaml:"signing_key"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
	AllowAnonymous     bool          `yaml:"allow_anonymous"`
	AnonymousMayMutate bool          `yaml:"anonymous_may_edit"`
	StorageTimeout     time.Duration `yaml:"storage_timeout"`
}

type Config struct {
	ServerAddr         string
	DatabaseDriver     string
	DatabaseDSN        string
	SigningKey         []byte
	AllowedOrigins     []string
	AllowAnonymous     bool
	AnonymousMayMutate bool
	StorageTimeout     time.Duration
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("empty key")
	}
	return key, nil
}

func NewConfig(opts Options) (*Config, error) {
	if opts.ServerAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if !slices.Contains(drivers, opts.DatabaseDriver) {
		return nil, fmt.Errorf("unsupported database driver %q", opts.DatabaseDriver)
	}
	if opts.DatabaseDriver != database.DriverMemory && opts.DatabaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if opts.SigningSecret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if opts.StorageTimeout < 0 {
		return nil, fmt.Errorf("storage timeout cannot be negative")
	}

	signingKey, err := decodeSigningSecret(opts.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	timeout := opts.StorageTimeout
	if timeout == 0 {
		timeout = DefaultStorageTimeout
	}

	return &Config{
		ServerAddr:         opts.ServerAddr,
		DatabaseDriver:     opts.DatabaseDriver,
		DatabaseDSN:        opts.DatabaseDSN,
		SigningKey:         signingKey,
		AllowedOrigins:     opts.AllowedOrigins,
		AllowAnonymous:     opts.AllowAnonymous,
		AnonymousMayMutate: opts.AllowAnonymous && opts.AnonymousMayMutate,
		StorageTimeout:     timeout,
	}, nil
}
