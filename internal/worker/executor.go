package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/veranemoloko/media-downloader/internal/domain"
	"github.com/veranemoloko/media-downloader/internal/extractor"
	"github.com/veranemoloko/media-downloader/internal/metrics"
	"github.com/veranemoloko/media-downloader/internal/repository"
)

const (
	// KindResolution marks tasks whose pipeline succeeded but whose output could not be found.
	KindResolution = "resolution"
	// KindRejected marks tasks the pool refused to queue.
	KindRejected = "rejected"

	finalFileMissingMessage = "Could not locate final file"
	fileNotRecordedMessage  = "Could not record final file"
)

// FileRegistrar records produced artifacts for lifecycle tracking.
type FileRegistrar interface {
	Register(ctx context.Context, filename, taskID string) error
}

// Executor drives a task from starting to a terminal state.
type Executor struct {
	registry   repository.TaskRepo
	downloader extractor.Downloader
	files      FileRegistrar
	pool       *Pool
	timeout    time.Duration
	logger     *slog.Logger
}

func NewExecutor(
	registry repository.TaskRepo,
	downloader extractor.Downloader,
	files FileRegistrar,
	pool *Pool,
	timeout time.Duration,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		registry:   registry,
		downloader: downloader,
		files:      files,
		pool:       pool,
		timeout:    timeout,
		logger:     logger,
	}
}

// Submit stores task in the registry and queues it on the pool.
// A task the pool rejects is moved to error and the pool error is returned.
func (e *Executor) Submit(task *domain.Task) error {
	e.registry.Create(task)
	metrics.TasksSubmitted.Inc()

	id := task.ID
	err := e.pool.Submit(id, func(ctx context.Context) {
		e.Run(ctx, id)
	})
	if err != nil {
		e.fail(id, KindRejected, err.Error())
		return fmt.Errorf("queue task %s: %w", id, err)
	}

	e.logger.Info("task queued", "task_id", id, "format", task.Format)
	return nil
}

// Run executes the task identified by id. It never panics and always leaves
// the task in a terminal state.
func (e *Executor) Run(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task panicked", "task_id", id, "panic", fmt.Sprint(r))
			e.fail(id, string(extractor.KindGeneric), fmt.Sprintf("internal error: %v", r))
		}
	}()

	task := e.registry.Get(id)
	if task.Status != domain.TaskStatusStarting {
		e.logger.Warn("task is not runnable", "task_id", id, "status", task.Status)
		return
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	e.logger.Info("download started", "task_id", id, "url", task.URL, "format", task.Format)

	err := e.download(ctx, task, domain.AttemptPrimary)
	if err != nil {
		if ctx.Err() != nil {
			e.fail(id, string(extractor.KindGeneric), err.Error())
			return
		}

		e.logger.Warn("primary download failed, retrying with fallback configuration",
			"task_id", id,
			"error", err,
		)
		metrics.TasksRetried.Inc()
		e.apply(id, func(t *domain.Task) error {
			if err := t.Transition(domain.TaskStatusRetrying); err != nil {
				return err
			}
			t.Attempt = domain.AttemptFallback
			return nil
		})

		if err := e.download(ctx, task, domain.AttemptFallback); err != nil {
			e.fail(id, string(extractor.Classify(err.Error())), err.Error())
			return
		}
	}

	e.finish(ctx, id)
}

// download runs one pipeline invocation. Events are drained on a separate
// goroutine that is the only writer to the registry during the run.
func (e *Executor) download(ctx context.Context, task domain.Task, attempt domain.Attempt) error {
	req := extractor.DownloadRequest{
		TaskID:    task.ID,
		URL:       task.URL,
		Format:    task.Format,
		OutputDir: task.OutputDirectory,
		Attempt:   attempt,
	}

	events := make(chan extractor.Event, 16)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range events {
			e.handle(task.ID, ev)
		}
	}()

	err := func() error {
		defer func() {
			close(events)
			<-drained
		}()
		return e.downloader.Download(ctx, req, events)
	}()
	if err != nil {
		return err
	}

	e.complete(task.ID)
	return nil
}

func (e *Executor) handle(id string, ev extractor.Event) {
	switch ev.Kind {
	case extractor.EventDownloading:
		e.apply(id, func(t *domain.Task) error {
			if t.Status == domain.TaskStatusStarting || t.Status == domain.TaskStatusDownloading {
				if err := t.Transition(domain.TaskStatusDownloading); err != nil {
					return err
				}
			}
			t.AdvanceProgress(min(ev.Percent, domain.ProcessingProgress))
			return nil
		})

	case extractor.EventDownloaded:
		e.apply(id, func(t *domain.Task) error {
			if t.Status != domain.TaskStatusProcessing {
				if err := t.Transition(domain.TaskStatusProcessing); err != nil {
					return err
				}
			}
			t.AdvanceProgress(domain.ProcessingProgress)
			if stem := BaseStem(ev.Filename); stem != "" {
				t.BaseFilename = stem
			}
			return nil
		})

	case extractor.EventPostProcessed:
		e.complete(id)
	}
}

// complete moves the task to completed. When the tool never reported the raw
// transfer as finished, processing is published first as its own update so
// pollers only ever observe legal transitions.
func (e *Executor) complete(id string) {
	e.apply(id, func(t *domain.Task) error {
		if t.Status == domain.TaskStatusProcessing || t.Status == domain.TaskStatusCompleted {
			return nil
		}
		if err := t.Transition(domain.TaskStatusProcessing); err != nil {
			return err
		}
		t.AdvanceProgress(domain.ProcessingProgress)
		return nil
	})

	e.apply(id, func(t *domain.Task) error {
		if t.Status == domain.TaskStatusCompleted {
			return nil
		}
		if err := t.Transition(domain.TaskStatusCompleted); err != nil {
			return err
		}
		t.AdvanceProgress(100)
		return nil
	})
}

// finish resolves the artifact, registers it and publishes finished.
func (e *Executor) finish(ctx context.Context, id string) {
	task := e.registry.Get(id)

	stem := task.BaseFilename
	if stem == "" {
		stem = "-" + id
	}

	name, err := ResolveFilename(task.OutputDirectory, stem, task.Format)
	if err != nil {
		e.logger.Error("final file not found", "task_id", id, "stem", stem, "error", err)
		e.fail(id, KindResolution, finalFileMissingMessage)
		return
	}

	if err := e.files.Register(context.WithoutCancel(ctx), name, id); err != nil {
		e.logger.Error("failed to register file", "task_id", id, "filename", name, "error", err)
		e.fail(id, KindResolution, fileNotRecordedMessage)
		return
	}

	e.apply(id, func(t *domain.Task) error {
		if err := t.Transition(domain.TaskStatusFinished); err != nil {
			return err
		}
		t.Filename = name
		t.AdvanceProgress(100)
		return nil
	})

	metrics.TasksFinished.Inc()
	metrics.TaskDuration.Observe(time.Since(task.CreatedAt).Seconds())
	e.logger.Info("download finished", "task_id", id, "filename", name)
}

func (e *Executor) fail(id, kind, message string) {
	err := e.registry.Update(id, func(t *domain.Task) {
		t.Fail(kind, message)
	})
	if err != nil {
		e.logger.Error("failed to record task error", "task_id", id, "error", err)
		return
	}

	metrics.TasksFailed.Inc()
	e.logger.Error("download failed", "task_id", id, "kind", kind, "error", message)
}

// apply runs mutate under the registry lock. A rejected transition leaves the task as it was.
func (e *Executor) apply(id string, mutate func(*domain.Task) error) {
	var mutateErr error
	err := e.registry.Update(id, func(t *domain.Task) {
		before := *t
		if mutateErr = mutate(t); mutateErr != nil {
			*t = before
		}
	})
	if err == nil {
		err = mutateErr
	}
	if err != nil {
		e.logger.Warn("task update rejected", "task_id", id, "error", err)
	}
}
