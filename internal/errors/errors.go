package errors

import "errors"

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrFileNotFound      = errors.New("file not found")
	ErrFileNotAccessible = errors.New("file not accessible")
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrQueueFull         = errors.New("download queue is full")
	ErrPoolClosed        = errors.New("worker pool is closed")
)
