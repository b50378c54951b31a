package repository

import (
	"time"

	"github.com/veranemoloko/media-downloader/internal/domain"
)

// TaskRepo defines the task table shared by the executor and pollers.
// Implementations must be safe for concurrent use.
type TaskRepo interface {
	Create(task *domain.Task)
	Get(id string) domain.Task
	Update(id string, mutate func(*domain.Task)) error
	Sweep(maxAge time.Duration) int
	Len() int
}
