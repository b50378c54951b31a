package domain

import (
	"strings"
	"time"
)

// CreateTaskRequest represents the request body for submitting a download.
type CreateTaskRequest struct {
	URL    string `json:"url" validate:"required,media_url"`
	Format string `json:"format" validate:"required,oneof=mp3 mp4"`
}

// Normalize trims the URL, lower-cases the format and defaults it to mp3.
func (r *CreateTaskRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	if r.Format == "" {
		r.Format = string(FormatMP3)
	}
}

// InfoRequest represents the request body for a metadata preview.
type InfoRequest struct {
	URL string `json:"url" validate:"required,media_url"`
}

// Normalize trims the URL.
func (r *InfoRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
}

// SubmitResult is returned to the client once a task is accepted.
type SubmitResult struct {
	TaskID    string     `json:"task_id"`
	VideoInfo *VideoInfo `json:"video_info"`
	Message   string     `json:"message"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Tasks     int       `json:"tasks"`
}

// SelfTestResult reports whether the extraction tool works end to end.
type SelfTestResult struct {
	Success  bool    `json:"success"`
	Version  string  `json:"yt_dlp_version,omitempty"`
	Title    string  `json:"test_video_title,omitempty"`
	Duration float64 `json:"test_video_duration,omitempty"`
	Message  string  `json:"message"`
	Error    string  `json:"error,omitempty"`
}
