package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Collector removes delivered artifacts older than maxAge.
type Collector interface {
	CollectGarbage(ctx context.Context, maxAge time.Duration) (int, error)
}

// Sweeper forgets finished tasks older than maxAge.
type Sweeper interface {
	Sweep(maxAge time.Duration) int
}

type Options struct {
	Interval      time.Duration
	FileRetention time.Duration
	TaskRetention time.Duration
}

// Cleanup runs garbage collection on a fixed period.
// A failing or panicking pass is logged and the schedule continues.
type Cleanup struct {
	cron      *cron.Cron
	collector Collector
	sweeper   Sweeper
	opts      Options
	logger    *slog.Logger
}

func NewCleanup(collector Collector, sweeper Sweeper, opts Options, logger *slog.Logger) (*Cleanup, error) {
	if opts.Interval <= 0 {
		return nil, errors.New("cleanup interval must be positive")
	}

	cronLogger := cronLogger{logger: logger}
	c := &Cleanup{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		collector: collector,
		sweeper:   sweeper,
		opts:      opts,
		logger:    logger,
	}

	spec := fmt.Sprintf("@every %s", opts.Interval)
	if _, err := c.cron.AddFunc(spec, c.tick); err != nil {
		return nil, fmt.Errorf("schedule cleanup %q: %w", spec, err)
	}
	return c, nil
}

func (c *Cleanup) tick() {
	if err := c.RunOnce(context.Background()); err != nil {
		c.logger.Error("cleanup pass failed", "error", err)
	}
}

// RunOnce performs a single pass: file garbage collection, then the task sweep.
func (c *Cleanup) RunOnce(ctx context.Context) error {
	start := time.Now()

	removed, err := c.collector.CollectGarbage(ctx, c.opts.FileRetention)

	swept := 0
	if c.sweeper != nil && c.opts.TaskRetention > 0 {
		swept = c.sweeper.Sweep(c.opts.TaskRetention)
	}

	if err != nil {
		return fmt.Errorf("collect garbage: %w", err)
	}

	c.logger.Info("cleanup pass finished",
		"files_removed", removed,
		"tasks_swept", swept,
		"duration", time.Since(start),
	)
	return nil
}

// Start begins the schedule in the background.
func (c *Cleanup) Start() {
	c.cron.Start()
	c.logger.Info("cleanup scheduler started", "interval", c.opts.Interval, "file_retention", c.opts.FileRetention)
}

// Stop halts the schedule and waits for a running pass, bounded by ctx.
func (c *Cleanup) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		c.logger.Info("cleanup scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
