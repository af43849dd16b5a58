package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/linkcrawl/internal/config"
	"github.com/nao1215/linkcrawl/internal/database"
	"github.com/nao1215/linkcrawl/internal/log"
)

// loadConfig builds a Config from defaults, the configuration file, and the
// environment. Command specific flags are applied by the caller afterwards,
// so the precedence is defaults < file < environment < flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicitly given file must exist; otherwise a missing file just
	// means defaults.
	path := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case path != "":
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	lookup, err := config.EnvLookup(config.DefaultEnvFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	cfg.Verbose, err = cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	cfg.JSONLog, err = cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// override copies the value of flag name onto dst when the flag was given
// on the command line.
func override[T any](cmd *cobra.Command, name string, dst *T, get func(string) (T, error)) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// addStoreFlags registers the graph store flags shared by crawl and stats.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("db-driver", config.DefaultDriver,
		"Graph store driver (sqlite or postgres)")
	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")
	cmd.Flags().String("dsn", "",
		"PostgreSQL connection string (postgres driver only)")
}

// applyStoreFlags overlays the graph store flags onto cfg.
func applyStoreFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	return joinErrors(
		override(cmd, "db-driver", &cfg.DBDriver, f.GetString),
		override(cmd, "db-dir", &cfg.DBDir, f.GetString),
		override(cmd, "dsn", &cfg.DSN, f.GetString),
	)
}

// joinErrors returns the first non-nil error.
func joinErrors(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// newLogger creates the process logger. Credentials are redacted by the
// secure handler regardless of format.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.JSONLog {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// openStore opens the graph store described by cfg. create controls whether
// a missing SQLite database is created.
func openStore(cfg *config.Config, create bool) (*database.GraphDB, error) {
	opts := database.DefaultOptions()
	opts.Driver = cfg.DBDriver
	opts.Dir = cfg.DBDir
	opts.DSN = cfg.DSN
	opts.CreateIfNotExists = create

	db, err := database.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
