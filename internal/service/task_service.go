package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/veranemoloko/media-downloader/internal/domain"
	"github.com/veranemoloko/media-downloader/internal/metrics"
	"github.com/veranemoloko/media-downloader/internal/repository"
	"github.com/veranemoloko/media-downloader/internal/storage"
)

var errSelfTestDisabled = errors.New("self test is not configured")

// Previewer resolves preview metadata for a URL.
type Previewer interface {
	Resolve(ctx context.Context, url string) (*domain.VideoInfo, error)
}

// Submitter stores a task and hands it to a worker.
type Submitter interface {
	Submit(task *domain.Task) error
}

// Lifecycle tracks delivery of produced artifacts.
type Lifecycle interface {
	MarkDelivered(ctx context.Context, filename string) error
	Stats(ctx context.Context) (domain.Stats, error)
}

// Versioner reports the version of the extraction tool.
type Versioner interface {
	Version(ctx context.Context) (string, error)
}

// Artifact is an opened download ready to be streamed. The caller closes Content.
type Artifact struct {
	Name    string
	Content *os.File
	Info    fs.FileInfo
}

type TaskService struct {
	registry     repository.TaskRepo
	previewer    Previewer
	submitter    Submitter
	lifecycle    Lifecycle
	files        *storage.FileStorage
	probeTimeout time.Duration
	logger       *slog.Logger

	versioner   Versioner
	selfTestURL string
}

func NewTaskService(
	registry repository.TaskRepo,
	previewer Previewer,
	submitter Submitter,
	lifecycle Lifecycle,
	files *storage.FileStorage,
	probeTimeout time.Duration,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		registry:     registry,
		previewer:    previewer,
		submitter:    submitter,
		lifecycle:    lifecycle,
		files:        files,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// WithSelfTest enables SelfTest against url using versioner for the tool version.
func (s *TaskService) WithSelfTest(versioner Versioner, url string) *TaskService {
	s.versioner = versioner
	s.selfTestURL = url
	return s
}

// Submit previews the URL and starts a download task for it.
// The request must already be normalized and validated.
func (s *TaskService) Submit(ctx context.Context, req *domain.CreateTaskRequest) (*domain.SubmitResult, error) {
	info, err := s.Preview(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate task id: %w", err)
	}

	format := domain.Format(req.Format)
	task := domain.NewTask(id.String(), req.URL, format, s.files.Dir(), time.Now())

	if err := s.submitter.Submit(task); err != nil {
		return nil, err
	}

	s.logger.Info("task created", "task_id", task.ID, "format", format, "title", info.Title)

	return &domain.SubmitResult{
		TaskID:    task.ID,
		VideoInfo: info,
		Message:   fmt.Sprintf("Download started for %s format", strings.ToUpper(req.Format)),
	}, nil
}

// Preview resolves metadata without starting a download.
func (s *TaskService) Preview(ctx context.Context, url string) (*domain.VideoInfo, error) {
	if s.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.probeTimeout)
		defer cancel()
	}
	return s.previewer.Resolve(ctx, url)
}

// Progress returns a snapshot of the task, or the not_found sentinel.
func (s *TaskService) Progress(id string) domain.Task {
	return s.registry.Get(id)
}

// TaskCount returns the number of tracked tasks.
func (s *TaskService) TaskCount() int {
	return s.registry.Len()
}

// OpenArtifact opens filename for streaming and records the delivery.
// A missing file yields ErrFileNotFound and leaves the metadata untouched.
func (s *TaskService) OpenArtifact(ctx context.Context, filename string) (*Artifact, error) {
	f, info, err := s.files.OpenFile(filename)
	if err != nil {
		return nil, err
	}

	if err := s.lifecycle.MarkDelivered(ctx, filename); err != nil {
		s.logger.Error("failed to record delivery", "filename", filename, "error", err)
	}
	metrics.ArtifactsDelivered.Inc()

	return &Artifact{Name: filename, Content: f, Info: info}, nil
}

// Stats reports file and delivery statistics.
func (s *TaskService) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := s.lifecycle.Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return stats, nil
}

// SelfTest probes a known video and reports the tool version.
// A failed probe is reported in the result with Success false, not as an error.
func (s *TaskService) SelfTest(ctx context.Context) (*domain.SelfTestResult, error) {
	if s.versioner == nil || s.selfTestURL == "" {
		return nil, errSelfTestDisabled
	}

	version, err := s.versioner.Version(ctx)
	if err != nil {
		s.logger.Warn("failed to read tool version", "error", err)
	}

	info, err := s.Preview(ctx, s.selfTestURL)
	if err != nil {
		s.logger.Error("self test failed", "url", s.selfTestURL, "error", err)
		return &domain.SelfTestResult{
			Success: false,
			Version: version,
			Error:   err.Error(),
			Message: "yt-dlp test failed - try a different video URL",
		}, nil
	}

	return &domain.SelfTestResult{
		Success:  true,
		Version:  version,
		Title:    info.Title,
		Duration: info.Duration,
		Message:  "yt-dlp is working correctly",
	}, nil
}
