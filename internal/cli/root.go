// Package cli implements the recall diagnostic CLI: inspect, sweep, and
// remove cache entries from the command line.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/backend"
	"github.com/recallhq/recall/internal/backend/filestore"
	"github.com/recallhq/recall/internal/backend/sqlstore"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/logging"
	"github.com/recallhq/recall/internal/store"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Shared with subcommands after setup.

// NewRootCmd creates the root Cobra command for the recall CLI.
func NewRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recall",
		Short:   "Inspect and manage recall result caches",
		Long:    "recall: per-client, disk-backed result caching with age-based expiry",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			logger = logging.Setup(level)
			return nil
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().String("config", "", "config file (default ~/.recall/config.yaml)")
	cmd.AddCommand(newListCmd(), newClearCmd(), newRemoveCmd(), newPathCmd(), newKeyCmd())

	return cmd
}

const rootCmdExample = `  # List cached entries for a client
  recall list myreport

  # Sweep entries older than two days
  recall clear myreport --max-age 48h

  # Remove a single entry
  recall remove myreport fx-fetch_rates-5f31a0c8d2e44b17

  # Show where a client's cache lives on disk
  recall path myreport

  # Compute the cache key for a call
  recall key fetch_rates --ns fx --arg base=EUR --arg day=2026-08-31`

// openStore loads configuration and builds a Store over the configured
// backend.
func openStore(cmd *cobra.Command) (*store.Store, *config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
		path = defaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	root := cfg.CacheDir
	if root == "" {
		root, err = filestore.DefaultRoot()
		if err != nil {
			return nil, nil, err
		}
	}

	var b backend.Backend
	switch cfg.Backend {
	case config.BackendSQLite:
		b, err = sqlstore.Open(filepath.Join(root, "recall.db"))
	default:
		b, err = filestore.New(root)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s backend: %w", cfg.Backend, err)
	}

	return store.New(b, store.WithLogger(logger)), cfg, nil
}

// ensureNamespace resolves the client argument into a namespace handle.
func ensureNamespace(cmd *cobra.Command, clientID string) (*store.Namespace, *config.Config, error) {
	st, cfg, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	ns, created, err := st.Ensure(clientID)
	if err != nil {
		return nil, nil, err
	}
	if created {
		logger.Debug().Str("client", clientID).Msg("provisioned empty namespace")
	}
	return ns, cfg, nil
}
