package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veranemoloko/media-downloader/internal/domain"
	errpkg "github.com/veranemoloko/media-downloader/internal/errors"
)

func TestTaskRegistry_CRUD(t *testing.T) {
	reg := NewTaskRegistry()
	task := domain.NewTask("t1", "https://youtu.be/abc123", domain.FormatMP3, "/tmp", time.Now())

	reg.Create(task)

	got := reg.Get("t1")
	assert.Equal(t, domain.TaskStatusStarting, got.Status)
	assert.Equal(t, 0.0, got.Progress)

	err := reg.Update("t1", func(tk *domain.Task) {
		tk.Status = domain.TaskStatusDownloading
		tk.Progress = 10
	})
	require.NoError(t, err)

	got = reg.Get("t1")
	assert.Equal(t, domain.TaskStatusDownloading, got.Status)
	assert.Equal(t, 10.0, got.Progress)
}

func TestTaskRegistry_CreateCopiesInput(t *testing.T) {
	reg := NewTaskRegistry()
	task := domain.NewTask("t1", "", domain.FormatMP4, "/tmp", time.Now())

	reg.Create(task)
	task.Status = domain.TaskStatusError

	assert.Equal(t, domain.TaskStatusStarting, reg.Get("t1").Status)
}

func TestTaskRegistry_GetUnknownReturnsSentinel(t *testing.T) {
	reg := NewTaskRegistry()

	got := reg.Get("never-issued")
	assert.Equal(t, domain.TaskStatusNotFound, got.Status)
	assert.NotEmpty(t, got.Error)
}

func TestTaskRegistry_UpdateUnknown(t *testing.T) {
	reg := NewTaskRegistry()

	err := reg.Update("missing", func(*domain.Task) {})
	assert.True(t, errors.Is(err, errpkg.ErrTaskNotFound))
}

func TestTaskRegistry_SnapshotsAreNotShared(t *testing.T) {
	reg := NewTaskRegistry()
	reg.Create(domain.NewTask("t1", "", domain.FormatMP3, "/tmp", time.Now()))

	snap := reg.Get("t1")
	snap.Progress = 99

	assert.Equal(t, 0.0, reg.Get("t1").Progress)
}

func TestTaskRegistry_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	reg := NewTaskRegistry()
	reg.Create(domain.NewTask("t1", "", domain.FormatMP3, "/tmp", time.Now()))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 500; i++ {
			p := float64(i) / 5
			_ = reg.Update("t1", func(tk *domain.Task) {
				tk.Progress = p
				tk.BaseFilename = "stem"
			})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0.0
			for i := 0; i < 500; i++ {
				snap := reg.Get("t1")
				assert.GreaterOrEqual(t, snap.Progress, last)
				if snap.Progress > 0 {
					assert.Equal(t, "stem", snap.BaseFilename)
				}
				last = snap.Progress
			}
		}()
	}
	wg.Wait()
}

func TestTaskRegistry_Sweep(t *testing.T) {
	reg := NewTaskRegistry()
	now := time.Now()
	reg.now = func() time.Time { return now }

	old := now.Add(-48 * time.Hour)
	reg.Create(&domain.Task{ID: "old-finished", Status: domain.TaskStatusFinished, CreatedAt: old})
	reg.Create(&domain.Task{ID: "old-error", Status: domain.TaskStatusError, CreatedAt: old})
	reg.Create(&domain.Task{ID: "old-running", Status: domain.TaskStatusDownloading, CreatedAt: old})
	reg.Create(&domain.Task{ID: "fresh", Status: domain.TaskStatusFinished, CreatedAt: now})

	removed := reg.Sweep(24 * time.Hour)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, domain.TaskStatusNotFound, reg.Get("old-finished").Status)
	assert.Equal(t, domain.TaskStatusDownloading, reg.Get("old-running").Status)
	assert.Equal(t, domain.TaskStatusFinished, reg.Get("fresh").Status)
}
