package domain

// TaskStatus represents the current state of a Task.
type TaskStatus string

const (
	TaskStatusStarting    TaskStatus = "starting"
	TaskStatusDownloading TaskStatus = "downloading"
	TaskStatusProcessing  TaskStatus = "processing"
	TaskStatusRetrying    TaskStatus = "retrying"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusFinished    TaskStatus = "finished"
	TaskStatusError       TaskStatus = "error"
	TaskStatusNotFound    TaskStatus = "not_found"
)

var transitions = map[TaskStatus][]TaskStatus{
	TaskStatusStarting:    {TaskStatusDownloading, TaskStatusProcessing, TaskStatusRetrying, TaskStatusError},
	TaskStatusDownloading: {TaskStatusDownloading, TaskStatusProcessing, TaskStatusRetrying, TaskStatusError},
	TaskStatusProcessing:  {TaskStatusCompleted, TaskStatusRetrying, TaskStatusError},
	TaskStatusRetrying:    {TaskStatusRetrying, TaskStatusProcessing, TaskStatusCompleted, TaskStatusError},
	TaskStatusCompleted:   {TaskStatusFinished, TaskStatusError},
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true once no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusFinished || s == TaskStatusError
}

// IsActive returns true while a worker still owns the task.
func (s TaskStatus) IsActive() bool {
	switch s {
	case TaskStatusStarting, TaskStatusDownloading, TaskStatusProcessing, TaskStatusRetrying, TaskStatusCompleted:
		return true
	}
	return false
}

// Format is the requested output kind.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatMP4 Format = "mp4"
)

// Extension returns the canonical file extension, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	return f == FormatMP3 || f == FormatMP4
}

// Attempt names the download configuration a task is running with.
type Attempt string

const (
	AttemptPrimary  Attempt = "primary"
	AttemptFallback Attempt = "fallback"
)
