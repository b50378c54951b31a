package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veranemoloko/media-downloader/internal/domain"
	errpkg "github.com/veranemoloko/media-downloader/internal/errors"
	"github.com/veranemoloko/media-downloader/internal/extractor"
	"github.com/veranemoloko/media-downloader/internal/lifecycle"
	"github.com/veranemoloko/media-downloader/internal/repository"
	"github.com/veranemoloko/media-downloader/internal/storage"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

type fakePreviewer struct {
	info *domain.VideoInfo
	err  error
	urls []string
}

func (f *fakePreviewer) Resolve(_ context.Context, url string) (*domain.VideoInfo, error) {
	f.urls = append(f.urls, url)
	return f.info, f.err
}

// registeringSubmitter stores the task without running it.
type registeringSubmitter struct {
	registry repository.TaskRepo
	err      error
	tasks    []*domain.Task
}

func (s *registeringSubmitter) Submit(task *domain.Task) error {
	s.registry.Create(task)
	s.tasks = append(s.tasks, task)
	return s.err
}

type fixture struct {
	dir       string
	registry  *repository.TaskRegistry
	previewer *fakePreviewer
	submitter *registeringSubmitter
	store     storage.MetadataStore
	service   *TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewJSONStore(filepath.Join(dir, ".downloads_meta.json"))
	require.NoError(t, err)

	files := storage.NewFileStorage(dir)
	registry := repository.NewTaskRegistry()
	f := &fixture{
		dir:       dir,
		registry:  registry,
		previewer: &fakePreviewer{info: &domain.VideoInfo{Title: "Song", Formats: 3, Profile: "desktop-us"}},
		submitter: &registeringSubmitter{registry: registry},
		store:     store,
	}
	manager := lifecycle.NewManager(store, files, newTestLogger())
	f.service = NewTaskService(registry, f.previewer, f.submitter, manager, files, time.Second, newTestLogger())
	return f
}

func TestTaskService_SubmitCreatesStartingTask(t *testing.T) {
	f := newFixture(t)
	req := &domain.CreateTaskRequest{URL: "https://youtu.be/abc123", Format: "mp3"}

	res, err := f.service.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, res.TaskID)
	assert.Equal(t, "Song", res.VideoInfo.Title)
	assert.Equal(t, "Download started for MP3 format", res.Message)
	assert.Equal(t, []string{"https://youtu.be/abc123"}, f.previewer.urls)

	got := f.service.Progress(res.TaskID)
	assert.Equal(t, domain.TaskStatusStarting, got.Status)
	assert.Equal(t, 0.0, got.Progress)
	assert.Equal(t, domain.FormatMP3, got.Format)
	assert.Equal(t, f.dir, got.OutputDirectory)
	assert.Equal(t, 1, f.service.TaskCount())
}

func TestTaskService_SubmitIDsAreUnique(t *testing.T) {
	f := newFixture(t)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		res, err := f.service.Submit(context.Background(), &domain.CreateTaskRequest{URL: "https://youtu.be/abc123", Format: "mp4"})
		require.NoError(t, err)
		assert.False(t, seen[res.TaskID], "duplicate id %s", res.TaskID)
		seen[res.TaskID] = true
	}
}

func TestTaskService_SubmitPreviewFailureCreatesNothing(t *testing.T) {
	f := newFixture(t)
	f.previewer.info = nil
	f.previewer.err = extractor.NewError("iphone-ca", errors.New("Private video"))

	_, err := f.service.Submit(context.Background(), &domain.CreateTaskRequest{URL: "https://youtu.be/abc123", Format: "mp3"})

	var extErr *extractor.Error
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, extractor.KindPrivate, extErr.Kind)
	assert.Empty(t, f.submitter.tasks)
	assert.Equal(t, 0, f.service.TaskCount())
}

func TestTaskService_SubmitQueueFull(t *testing.T) {
	f := newFixture(t)
	f.submitter.err = errpkg.ErrQueueFull

	_, err := f.service.Submit(context.Background(), &domain.CreateTaskRequest{URL: "https://youtu.be/abc123", Format: "mp3"})
	assert.True(t, errors.Is(err, errpkg.ErrQueueFull))
}

func TestTaskService_ProgressUnknown(t *testing.T) {
	f := newFixture(t)

	got := f.service.Progress("never-issued")
	assert.Equal(t, domain.TaskStatusNotFound, got.Status)
	assert.NotEmpty(t, got.Error)
}

func TestTaskService_OpenArtifactMarksDelivered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "Song-1.mp3"), []byte("id3"), 0644))
	require.NoError(t, f.store.Put(ctx, domain.FileRecord{Filename: "Song-1.mp3", TaskID: "1", CreatedAt: time.Now()}))

	art, err := f.service.OpenArtifact(ctx, "Song-1.mp3")
	require.NoError(t, err)
	defer art.Content.Close()

	data, err := io.ReadAll(art.Content)
	require.NoError(t, err)
	assert.Equal(t, "id3", string(data))
	assert.Equal(t, int64(3), art.Info.Size())

	rec, ok, err := f.store.Get(ctx, "Song-1.mp3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Delivered)
	assert.Equal(t, 1, rec.DeliveryCount)
}

func TestTaskService_OpenArtifactMissingLeavesMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.Put(ctx, domain.FileRecord{Filename: "Gone-1.mp3", TaskID: "1", CreatedAt: time.Now()}))

	before, err := os.ReadFile(filepath.Join(f.dir, ".downloads_meta.json"))
	require.NoError(t, err)

	_, err = f.service.OpenArtifact(ctx, "Gone-1.mp3")
	assert.True(t, errors.Is(err, errpkg.ErrFileNotFound))

	after, err := os.ReadFile(filepath.Join(f.dir, ".downloads_meta.json"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestTaskService_OpenArtifactRejectsTraversal(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.OpenArtifact(context.Background(), "../secret.mp3")
	assert.True(t, errors.Is(err, errpkg.ErrInvalidFilename))
}

func TestTaskService_Stats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "a.mp3"), []byte("12345"), 0644))
	require.NoError(t, f.store.Put(ctx, domain.FileRecord{Filename: "a.mp3", TaskID: "a", CreatedAt: time.Now(), Delivered: true, DeliveryCount: 2}))

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 2, stats.TotalDeliveries)
	assert.Equal(t, []string{"a.mp3"}, stats.DiskFiles)
	assert.Equal(t, "5 B", stats.DiskUsageHuman)
}

type fakeVersioner struct {
	version string
	err     error
}

func (f fakeVersioner) Version(context.Context) (string, error) {
	return f.version, f.err
}

func TestTaskService_SelfTest(t *testing.T) {
	f := newFixture(t)
	f.previewer.info = &domain.VideoInfo{Title: "Me at the zoo", Duration: 19, Formats: 4}
	f.service.WithSelfTest(fakeVersioner{version: "2025.01.15"}, "https://www.youtube.com/watch?v=jNQXAC9IVRw")

	res, err := f.service.SelfTest(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "2025.01.15", res.Version)
	assert.Equal(t, "Me at the zoo", res.Title)
	assert.Equal(t, 19.0, res.Duration)
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=jNQXAC9IVRw"}, f.previewer.urls)
	assert.Equal(t, 0, f.service.TaskCount())
}

func TestTaskService_SelfTestProbeFailure(t *testing.T) {
	f := newFixture(t)
	f.previewer.info = nil
	f.previewer.err = extractor.NewError("minimal", errors.New("Video unavailable"))
	f.service.WithSelfTest(fakeVersioner{err: errors.New("not installed")}, "https://youtu.be/abc123")

	res, err := f.service.SelfTest(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Empty(t, res.Version)
	assert.Contains(t, res.Error, "Video unavailable")
}

func TestTaskService_SelfTestDisabled(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SelfTest(context.Background())
	assert.Error(t, err)
}
