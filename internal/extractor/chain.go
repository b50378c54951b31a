package extractor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/veranemoloko/media-downloader/internal/domain"
	"github.com/veranemoloko/media-downloader/internal/metrics"
)

var (
	errNoFormats  = errors.New("no usable formats")
	errNoProfiles = errors.New("all extraction methods failed")
)

// Chain resolves preview metadata by trying profiles in order.
type Chain struct {
	prober   Prober
	profiles []Profile
	logger   *slog.Logger
}

func NewChain(prober Prober, profiles []Profile, logger *slog.Logger) *Chain {
	return &Chain{
		prober:   prober,
		profiles: profiles,
		logger:   logger,
	}
}

// Profiles returns the configured profiles in order.
func (c *Chain) Profiles() []Profile {
	return append([]Profile(nil), c.profiles...)
}

// Resolve returns the first usable result. Later profiles are not tried once one succeeds.
// If every profile fails, the last profile's error is returned as *Error.
func (c *Chain) Resolve(ctx context.Context, url string) (*domain.VideoInfo, error) {
	var last *Error

	for i, p := range c.profiles {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: KindGeneric, Profile: p.Name, Err: err}
		}

		info, err := c.prober.Probe(ctx, url, p)
		if err == nil && !info.Usable() {
			err = errNoFormats
		}
		if err != nil {
			last = NewError(p.Name, err)
			metrics.ExtractionAttempts.WithLabelValues(p.Name, "failed").Inc()
			c.logger.Warn("extraction profile failed",
				"profile", p.Name,
				"attempt", i+1,
				"kind", last.Kind,
				"error", err,
			)
			continue
		}

		metrics.ExtractionAttempts.WithLabelValues(p.Name, "succeeded").Inc()
		c.logger.Info("extraction profile succeeded", "profile", p.Name, "attempt", i+1, "title", info.Title)

		info.Profile = p.Name
		return info, nil
	}

	if last == nil {
		return nil, NewError("", errNoProfiles)
	}
	return nil, last
}
