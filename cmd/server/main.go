package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/npezzotti/go-codecollab/internal/access"
	"github.com/npezzotti/go-codecollab/internal/api"
	"github.com/npezzotti/go-codecollab/internal/config"
	"github.com/npezzotti/go-codecollab/internal/database"
	"github.com/npezzotti/go-codecollab/internal/persistence"
	"github.com/npezzotti/go-codecollab/internal/server"
	"github.com/npezzotti/go-codecollab/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	configPath         string
	addr               string
	dbDriver           string
	dsn                string
	signingKey         string
	allowedOrigins     stringSliceFlag
	allowAnonymous     bool
	anonymousMayMutate bool
	storageTimeout     time.Duration
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadOptions builds options from the config file, if any, and lets flags
// given on the command line override it.
func loadOptions() (config.Options, error) {
	opts := config.Options{
		ServerAddr:         addr,
		DatabaseDriver:     dbDriver,
		DatabaseDSN:        dsn,
		SigningSecret:      signingKey,
		AllowedOrigins:     allowedOrigins,
		AllowAnonymous:     allowAnonymous,
		AnonymousMayMutate: anonymousMayMutate,
		StorageTimeout:     storageTimeout,
	}
	if configPath == "" {
		return opts, nil
	}

	if err := config.Load(configPath, &opts); err != nil {
		return opts, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			opts.ServerAddr = addr
		case "db-driver":
			opts.DatabaseDriver = dbDriver
		case "dsn":
			opts.DatabaseDSN = dsn
		case "signing-key":
			opts.SigningSecret = signingKey
		case "allowed-origins":
			opts.AllowedOrigins = allowedOrigins
		case "allow-anonymous":
			opts.AllowAnonymous = allowAnonymous
		case "anonymous-may-edit":
			opts.AnonymousMayMutate = anonymousMayMutate
		case "storage-timeout":
			opts.StorageTimeout = storageTimeout
		}
	})

	return opts, nil
}

func openRepository(cfg *config.Config, logger *log.Logger) (database.Repository, error) {
	if cfg.DatabaseDriver == database.DriverMemory {
		logger.Println("using in-memory storage, documents will not survive a restart")
		return database.NewMemoryRepository(), nil
	}

	if err := database.Migrate(cfg.DatabaseDriver, cfg.DatabaseDSN); err != nil {
		return nil, err
	}

	return database.NewSQLRepository(cfg.DatabaseDriver, cfg.DatabaseDSN)
}

func main() {
	logger := log.New(os.Stderr, "[codecollab] ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Fatal("load .env:", err)
	}

	flag.StringVar(&configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dbDriver, "db-driver", envOr("CODECOLLAB_DB_DRIVER", database.DriverPostgres), "database driver: postgres, pgx, sqlite3 or memory")
	flag.StringVar(&dsn, "dsn", envOr("CODECOLLAB_DSN", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", envOr("CODECOLLAB_SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.BoolVar(&allowAnonymous, "allow-anonymous", false, "accept connections without a token")
	flag.BoolVar(&anonymousMayMutate, "anonymous-may-edit", false, "let anonymous connections edit documents")
	flag.DurationVar(&storageTimeout, "storage-timeout", config.DefaultStorageTimeout, "timeout for each storage call")
	flag.Parse()

	opts, err := loadOptions()
	if err != nil {
		logger.Fatal("config:", err)
	}

	cfg, err := config.NewConfig(opts)
	if err != nil {
		logger.Fatal("config:", err)
	}

	repo, err := openRepository(cfg, logger)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	gw := persistence.NewStoreGateway(repo, logger, statsUpdater, cfg.StorageTimeout)
	checker := access.NewChecker(repo, cfg.AnonymousMayMutate)

	hub, err := server.NewHub(logger, gw, checker, statsUpdater)
	if err != nil {
		logger.Fatal("new hub:", err)
	}

	srv := api.NewCollabApp(mux, logger, hub, repo, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	logger.Println("shutting down hub...")
	if err := hub.Shutdown(shutDownCtx); err != nil {
		logger.Println("hub shutdown:", err)
	}

	logger.Println("shutdown complete")
}
