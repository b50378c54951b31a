package domain

import (
	"fmt"
	"time"
)

// ProcessingProgress is the value progress is pinned to while post-processing runs.
const ProcessingProgress = 95.0

// NotFoundMessage is the error carried by the sentinel task returned for unknown ids.
const NotFoundMessage = "Task not found"

// Task is one submitted retrieval job and its tracked state.
type Task struct {
	ID              string     `json:"id"`
	URL             string     `json:"url,omitempty"`
	Status          TaskStatus `json:"status"`
	Progress        float64    `json:"progress"`
	Format          Format     `json:"format,omitempty"`
	OutputDirectory string     `json:"output_directory,omitempty"`
	BaseFilename    string     `json:"base_filename,omitempty"`
	Filename        string     `json:"filename,omitempty"`
	Error           string     `json:"error,omitempty"`
	ErrorKind       string     `json:"error_kind,omitempty"`
	Attempt         Attempt    `json:"attempt,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewTask returns a task in the starting state.
func NewTask(id, url string, format Format, outputDir string, now time.Time) *Task {
	return &Task{
		ID:              id,
		URL:             url,
		Status:          TaskStatusStarting,
		Progress:        0,
		Format:          format,
		OutputDirectory: outputDir,
		Attempt:         AttemptPrimary,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NotFoundTask is the placeholder returned when polling an unknown or expired id.
func NotFoundTask(id string) Task {
	return Task{
		ID:     id,
		Status: TaskStatusNotFound,
		Error:  NotFoundMessage,
	}
}

// Transition moves the task to next if the state machine allows it.
// Staying in the same state is always allowed for non-terminal states.
func (t *Task) Transition(next TaskStatus) error {
	if t.Status == next && !t.Status.IsTerminal() {
		return nil
	}
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid transition %s -> %s", t.Status, next)
	}
	t.Status = next
	return nil
}

// AdvanceProgress raises progress to p; lower values are ignored.
func (t *Task) AdvanceProgress(p float64) {
	if p > 100 {
		p = 100
	}
	if p > t.Progress {
		t.Progress = p
	}
}

// Fail moves the task to the terminal error state.
func (t *Task) Fail(kind, message string) {
	t.Status = TaskStatusError
	t.Error = message
	t.ErrorKind = kind
	t.Filename = ""
}
