package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func restoreCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	cfg, err := loadConfig(args.Restore.Config, logger)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	r, db, err := newRestorer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if args.Restore.UpdateCache {
		startTime := time.Now()
		logger.Info().Msg("updating cache")
		if err := r.UpdateCache(ctx); err != nil {
			return err
		}
		logger.Info().Float64("seconds", time.Since(startTime).Seconds()).Msg("cache update done")
	}

	if args.Restore.Path == "" {
		if args.Restore.UpdateCache {
			return nil
		}
		return fmt.Errorf("no path given")
	}

	abs, err := filepath.Abs(args.Restore.Path)
	if err != nil {
		return fmt.Errorf("could not resolve path: %w", err)
	}

	// Archives store paths without the leading slash.
	lookup := strings.TrimPrefix(r.RewritePath(abs), "/")

	archives, err := r.FindArchives(ctx, lookup)
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		return nil
	}

	for i, archive := range archives {
		logger.Info().
			Int("version", i+1).
			Str("archive", archive.Name).
			Time("mtime", archive.ModTime).
			Msg("found version")
	}

	selected := &archives[len(archives)-1]
	if args.Restore.Time != "" {
		selected, err = r.SelectArchiveByAge(archives, args.Restore.Time)
		if err != nil {
			return err
		}
		if selected == nil {
			logger.Warn().Str("time", args.Restore.Time).Msg("no version older than the given age")
			return nil
		}
	}

	destination := args.Restore.Destination
	if destination == "" {
		destination = filepath.Dir(abs)
	}

	startTime := time.Now()
	logger.Info().
		Str("archive", selected.Name).
		Str("destination", destination).
		Msg("starting restore")
	if err := r.Restore(ctx, lookup, selected.Name, destination); err != nil {
		return err
	}
	logger.Info().Float64("seconds", time.Since(startTime).Seconds()).Msg("restore done")
	return nil
}
