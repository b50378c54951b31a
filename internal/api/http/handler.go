package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/veranemoloko/media-downloader/internal/domain"
	errpkg "github.com/veranemoloko/media-downloader/internal/errors"
	"github.com/veranemoloko/media-downloader/internal/extractor"
	"github.com/veranemoloko/media-downloader/internal/service"
	"github.com/veranemoloko/media-downloader/internal/validation"
)

// Version is reported by the health endpoint.
var Version = "dev"

// TaskServiceI defines the interface for task-related business logic.
type TaskServiceI interface {
	Submit(ctx context.Context, req *domain.CreateTaskRequest) (*domain.SubmitResult, error)
	Preview(ctx context.Context, url string) (*domain.VideoInfo, error)
	Progress(id string) domain.Task
	OpenArtifact(ctx context.Context, filename string) (*service.Artifact, error)
	Stats(ctx context.Context) (domain.Stats, error)
	TaskCount() int
	SelfTest(ctx context.Context) (*domain.SelfTestResult, error)
}

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	taskService TaskServiceI
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler with the provided service and logger.
func NewTaskHandler(taskService TaskServiceI, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// Download handles POST /api/download.
func (h *TaskHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request", "error", err)
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	req.Normalize()

	if err := validation.Struct(req); err != nil {
		h.logger.Warn("validation failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.taskService.Submit(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, res)
}

// Info handles POST /api/info.
func (h *TaskHandler) Info(w http.ResponseWriter, r *http.Request) {
	var req domain.InfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	req.Normalize()

	if err := validation.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := h.taskService.Preview(r.Context(), req.URL)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Progress handles GET /api/progress/{taskID}. Unknown ids answer with the not_found snapshot.
func (h *TaskHandler) Progress(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	writeJSON(w, http.StatusOK, h.taskService.Progress(taskID))
}

// File handles GET /api/file/{filename} and streams the artifact as an attachment.
func (h *TaskHandler) File(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	// chi matches on RawPath when it is set, leaving the param escaped.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(filename); err == nil {
			filename = unescaped
		}
	}

	art, err := h.taskService.OpenArtifact(r.Context(), filename)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer art.Content.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	http.ServeContent(w, r, art.Name, art.Info.ModTime(), art.Content)
}

// Stats handles GET /api/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskService.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// SelfTest handles GET /api/test.
func (h *TaskHandler) SelfTest(w http.ResponseWriter, r *http.Request) {
	res, err := h.taskService.SelfTest(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Health handles GET /api/health.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   Version,
		Tasks:     h.taskService.TaskCount(),
	})
}

func (h *TaskHandler) writeServiceError(w http.ResponseWriter, err error) {
	var extErr *extractor.Error
	switch {
	case errors.As(err, &extErr):
		h.logger.Warn("extraction failed", "kind", extErr.Kind, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":      extErr.UserMessage(),
			"error_kind": string(extErr.Kind),
		})
	case errors.Is(err, errpkg.ErrInvalidFilename):
		writeError(w, http.StatusBadRequest, "invalid filename")
	case errors.Is(err, errpkg.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, errpkg.ErrFileNotAccessible):
		writeError(w, http.StatusForbidden, "Permission denied")
	case errors.Is(err, errpkg.ErrQueueFull), errors.Is(err, errpkg.ErrPoolClosed):
		h.logger.Warn("task rejected", "error", err)
		writeError(w, http.StatusServiceUnavailable, "server is busy, try again later")
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
