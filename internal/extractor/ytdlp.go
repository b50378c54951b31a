package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/veranemoloko/media-downloader/internal/domain"
)

// OutputTemplate is the yt-dlp output template for a task. The task id keeps
// names from different tasks apart even when titles collide.
func OutputTemplate(taskID string) string {
	return "%(title)s-" + taskID + ".%(ext)s"
}

// downloadOptions is the tool configuration for one format and attempt.
type downloadOptions struct {
	Format       string
	ExtractAudio bool
	AudioFormat  string
	AudioQuality string
	MergeFormat  string
	UserAgent    string
	GeoCountry   string
}

func optionsFor(format domain.Format, attempt domain.Attempt) downloadOptions {
	if attempt == domain.AttemptFallback {
		if format == domain.FormatMP3 {
			return downloadOptions{
				Format:       "bestaudio/best",
				ExtractAudio: true,
				AudioFormat:  "mp3",
				AudioQuality: "128",
			}
		}
		return downloadOptions{
			Format:      "best[height<=480]/best",
			MergeFormat: "mp4",
		}
	}

	if format == domain.FormatMP3 {
		return downloadOptions{
			Format:       "bestaudio[ext=m4a]/bestaudio[ext=webm]/bestaudio/best",
			ExtractAudio: true,
			AudioFormat:  "mp3",
			AudioQuality: "192",
			UserAgent:    desktopUserAgent,
			GeoCountry:   "US",
		}
	}
	return downloadOptions{
		Format:      "best[height<=720][ext=mp4]/best[height<=720]/best[ext=mp4]/best/worst",
		MergeFormat: "mp4",
		UserAgent:   desktopUserAgent,
		GeoCountry:  "US",
	}
}

// YtDlp drives the yt-dlp binary through go-ytdlp.
type YtDlp struct {
	executable string
	logger     *slog.Logger
}

func NewYtDlp(executable string, logger *slog.Logger) *YtDlp {
	return &YtDlp{executable: executable, logger: logger}
}

func (y *YtDlp) command() *ytdlp.Command {
	cmd := ytdlp.New().NoPlaylist()
	if y.executable != "" {
		cmd.SetExecutable(y.executable)
	}
	return cmd
}

func applyIdentity(cmd *ytdlp.Command, userAgent, referer, country string) {
	if userAgent != "" {
		cmd.AddHeaders("User-Agent:" + userAgent)
	}
	if referer != "" {
		cmd.AddHeaders("Referer:" + referer)
	}
	if country != "" {
		cmd.GeoBypassCountry(country)
	}
}

type probeOutput struct {
	Title     string            `json:"title"`
	Duration  float64           `json:"duration"`
	Thumbnail string            `json:"thumbnail"`
	Uploader  string            `json:"uploader"`
	ViewCount int64             `json:"view_count"`
	URL       string            `json:"url"`
	Formats   []json.RawMessage `json:"formats"`
}

// Probe implements Prober.
func (y *YtDlp) Probe(ctx context.Context, url string, p Profile) (*domain.VideoInfo, error) {
	cmd := y.command().SkipDownload().DumpSingleJSON()
	if p.Format != "" {
		cmd.Format(p.Format)
	}
	applyIdentity(cmd, p.UserAgent, p.Referer, p.GeoCountry)

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, commandError(res, err)
	}
	return decodeProbe([]byte(res.Stdout))
}

// decodeProbe turns yt-dlp's single JSON dump into preview metadata.
// A dump with no format list but a direct url counts as one rendition.
func decodeProbe(data []byte) (*domain.VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode probe output: %w", err)
	}

	info := &domain.VideoInfo{
		Title:     out.Title,
		Duration:  out.Duration,
		Thumbnail: out.Thumbnail,
		Uploader:  out.Uploader,
		ViewCount: out.ViewCount,
		Formats:   len(out.Formats),
	}
	if info.Title == "" {
		info.Title = "Unknown"
	}
	if info.Uploader == "" {
		info.Uploader = "Unknown"
	}
	if info.Formats == 0 && out.URL != "" {
		info.Formats = 1
	}
	return info, nil
}

// Version reports the installed yt-dlp version.
func (y *YtDlp) Version(ctx context.Context) (string, error) {
	res, err := y.command().Version(ctx)
	if err != nil {
		return "", commandError(res, err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Download implements Downloader.
func (y *YtDlp) Download(ctx context.Context, req DownloadRequest, events chan<- Event) error {
	opts := optionsFor(req.Format, req.Attempt)

	cmd := y.command().
		RestrictFilenames().
		ForceOverwrites().
		Output(filepath.Join(req.OutputDir, OutputTemplate(req.TaskID))).
		Format(opts.Format)
	if opts.ExtractAudio {
		cmd.ExtractAudio().AudioFormat(opts.AudioFormat).AudioQuality(opts.AudioQuality)
	}
	if opts.MergeFormat != "" {
		cmd.MergeOutputFormat(opts.MergeFormat)
	}
	applyIdentity(cmd, opts.UserAgent, "", opts.GeoCountry)

	sink := newEventSink(ctx, events)
	defer sink.close()

	cmd.ProgressFunc(500*time.Millisecond, func(u ytdlp.ProgressUpdate) {
		if ev, ok := eventFor(u); ok {
			sink.send(ev)
		}
	})

	y.logger.Debug("running yt-dlp", "task_id", req.TaskID, "attempt", req.Attempt, "format", opts.Format)

	res, err := cmd.Run(ctx, req.URL)
	if err != nil {
		return commandError(res, err)
	}

	sink.send(Event{Kind: EventPostProcessed})
	return nil
}

// eventFor maps a progress update onto an Event. Updates without a known
// total size and statuses other than downloading and finished are skipped.
func eventFor(u ytdlp.ProgressUpdate) (Event, bool) {
	switch u.Status {
	case ytdlp.ProgressStatusDownloading:
		if u.TotalBytes <= 0 {
			return Event{}, false
		}
		return Event{Kind: EventDownloading, Percent: float64(u.DownloadedBytes) / float64(u.TotalBytes) * 100}, true
	case ytdlp.ProgressStatusFinished:
		return Event{Kind: EventDownloaded, Filename: u.Filename}, true
	}
	return Event{}, false
}

// eventSink forwards events until closed. The progress callback may still
// fire after Download returns, so sends after close are dropped.
type eventSink struct {
	ctx    context.Context
	events chan<- Event

	mu     sync.Mutex
	closed bool
}

func newEventSink(ctx context.Context, events chan<- Event) *eventSink {
	return &eventSink{ctx: ctx, events: events}
}

func (s *eventSink) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *eventSink) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// commandError folds the tool's stderr into err so classification sees the real cause.
func commandError(res *ytdlp.Result, err error) error {
	if res == nil {
		return err
	}
	stderr := strings.TrimSpace(res.Stderr)
	if stderr == "" || strings.Contains(err.Error(), stderr) {
		return err
	}
	return fmt.Errorf("%w: %s", err, stderr)
}
