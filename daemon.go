package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stupid-simple/borgrestore/config"
	"github.com/stupid-simple/borgrestore/fileutils"
	"github.com/stupid-simple/borgrestore/scheduler"
)

const defaultSchedule = "@daily"

func daemonCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	cfg, err := config.LoadFromFile(args.Daemon.Config)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	sched := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger: logger,
	})

	if err := addUpdateJobFromConfig(ctx, sched, cfg, logger); err != nil {
		return fmt.Errorf("could not add update job: %w", err)
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	startConfigFileWatcher(ctx, args.Daemon.Config, logger, ticker, func(cfg *config.Config) {
		sched.RemoveJobs()
		if err := addUpdateJobFromConfig(ctx, sched, cfg, logger); err != nil {
			logger.Error().Err(err).Msg("failed to add update job")
		}
	})

	sched.Start()
	defer sched.Stop()

	<-ctx.Done()

	return nil
}

func addUpdateJobFromConfig(
	ctx context.Context,
	sched *scheduler.Scheduler,
	cfg *config.Config,
	logger zerolog.Logger,
) error {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = defaultSchedule
	}

	if err := sched.AddUpdateJob(schedule, &updateJob{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
	}); err != nil {
		return err
	}

	logger.Info().Object("config", cfg).Str("schedule", schedule).Msg("added update job")
	return nil
}

func startConfigFileWatcher(ctx context.Context, cfgPath string, logger zerolog.Logger, ticker *time.Ticker, onChanged func(cfg *config.Config)) {
	logger.Info().Str("path", cfgPath).Msg("watching config file for changes")
	watcher, err := fileutils.WatchFile(ctx, cfgPath, when(ticker.C), func(err error) {
		logger.Error().Err(err).Msg("could not watch config file")
	})
	if err != nil {
		logger.Error().Err(err).Msg("could not watch config file")
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-watcher:
				logger.Info().Str("path", cfgPath).Msg("config file changed, reloading")

				cfg, err := config.LoadFromFile(cfgPath)
				if err != nil {
					logger.Error().Err(err).Msg("could not load config")
					break
				}

				onChanged(cfg)
			}
		}
	}()
}

func when[T any](ch <-chan T) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for range ch {
			out <- struct{}{}
		}
	}()
	return out
}

type updateJob struct {
	ctx    context.Context
	cfg    *config.Config
	logger zerolog.Logger
}

func (j *updateJob) Run() {
	r, db, err := newRestorer(j.ctx, j.cfg, j.logger)
	if err != nil {
		j.logger.Error().Err(err).Msg("update job failed")
		return
	}
	defer func() {
		_ = db.Close()
	}()

	if err := r.UpdateCache(j.ctx); err != nil {
		j.logger.Error().Err(err).Msg("update job failed")
	}
}
