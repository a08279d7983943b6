package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/borgrestore/borg"
	"github.com/stupid-simple/borgrestore/config"
	"github.com/stupid-simple/borgrestore/database"
	"github.com/stupid-simple/borgrestore/fileutils"
	"github.com/stupid-simple/borgrestore/restorer"
)

// loadConfig reads the given config file, or the default location, or falls
// back to an empty config when no file exists at the default location.
func loadConfig(path string, logger zerolog.Logger) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}

	defaultPath, err := defaultConfigPath()
	if err != nil {
		return nil, err
	}
	if !fileutils.Exists(defaultPath) {
		return &config.Config{}, nil
	}

	logger.Debug().Str("path", defaultPath).Msg("loading config")
	return config.LoadFromFile(defaultPath)
}

func defaultConfigPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine config directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "borgrestore", "config.json"), nil
}

// newRestorer opens the index database and wires the borg adapters into a
// restorer. The caller must close the returned database.
func newRestorer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*restorer.Restorer, *database.Database, error) {
	cachePath, err := cfg.CachePath()
	if err != nil {
		return nil, nil, err
	}

	cacheDir := filepath.Dir(cachePath)
	if err := os.MkdirAll(cacheDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("could not create cache directory: %w", err)
	}
	if err := fileutils.VerifyWritable(cacheDir); err != nil {
		return nil, nil, fmt.Errorf("cache directory must be writable: %w", err)
	}

	db, err := database.Open(cachePath, logger, database.WithCacheBytes(cfg.CacheSize.Size))
	if err != nil {
		return nil, nil, fmt.Errorf("could not open database: %w", err)
	}
	if err := db.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("could not initialize database: %w", err)
	}

	patterns, err := cfg.CompileRewrites()
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	rules := make([]restorer.RewriteRule, len(patterns))
	for i, pattern := range patterns {
		rules[i] = restorer.RewriteRule{
			Pattern:     pattern,
			Replacement: cfg.Rewrites[i].Replacement,
		}
	}

	borgCli := borg.New(cfg.Repository, logger)

	r := restorer.New(restorer.Params{
		Database:  db,
		Source:    borgCli,
		Extractor: borgCli,
		Strategy:  restorer.Strategy(cfg.Strategy),
		Rules:     rules,
		Logger:    logger,
	})
	return r, db, nil
}
