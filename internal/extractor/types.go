package extractor

import (
	"context"

	"github.com/veranemoloko/media-downloader/internal/domain"
)

// Profile is one configuration variant tried against the extraction tool.
type Profile struct {
	Name       string `yaml:"name"`
	UserAgent  string `yaml:"user_agent"`
	Referer    string `yaml:"referer"`
	GeoCountry string `yaml:"geo_country"`
	Format     string `yaml:"format"`
}

// Prober fetches metadata for a URL without downloading media.
type Prober interface {
	Probe(ctx context.Context, url string, profile Profile) (*domain.VideoInfo, error)
}

// DownloadRequest describes one invocation of the download pipeline.
type DownloadRequest struct {
	TaskID    string
	URL       string
	Format    domain.Format
	OutputDir string
	Attempt   domain.Attempt
}

type EventKind int

const (
	// EventDownloading carries a transfer percentage.
	EventDownloading EventKind = iota + 1
	// EventDownloaded reports that the raw transfer of Filename finished.
	EventDownloaded
	// EventPostProcessed reports that conversion finished and the artifact is final.
	EventPostProcessed
)

// Event is a progress signal emitted by a Downloader.
type Event struct {
	Kind     EventKind
	Percent  float64
	Filename string
}

// Downloader runs the download pipeline, sending progress events on events.
// Implementations must not send after Download returns.
type Downloader interface {
	Download(ctx context.Context, req DownloadRequest, events chan<- Event) error
}
