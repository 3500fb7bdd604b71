package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"logdex/internal/cache"
	"logdex/internal/config"
	"logdex/internal/service"
	"logdex/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "logdex",
	Short:        "Build and query error-message indexes for printer firmware",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newService builds the version store, blob store, and cache from the
// environment. The returned cleanup closes the database.
func newService() (*service.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create db directory: %w", err)
	}

	versions, err := version.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := cfg.NewBlobStore()
	if err != nil {
		versions.Close()
		return nil, nil, err
	}
	snapCache, err := cache.New(blobs, cfg.CacheSize)
	if err != nil {
		versions.Close()
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := service.New(versions, blobs, snapCache, logger)
	return svc, func() { versions.Close() }, nil
}
