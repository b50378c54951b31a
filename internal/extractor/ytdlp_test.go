package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFor(t *testing.T) {
	tests := []struct {
		name   string
		update ytdlp.ProgressUpdate
		want   Event
		ok     bool
	}{
		{
			name:   "downloading with total",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusDownloading, TotalBytes: 200, DownloadedBytes: 50},
			want:   Event{Kind: EventDownloading, Percent: 25},
			ok:     true,
		},
		{
			name:   "downloading without total",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusDownloading, DownloadedBytes: 50},
		},
		{
			name:   "finished",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusFinished, Filename: "/tmp/Song-1.webm"},
			want:   Event{Kind: EventDownloaded, Filename: "/tmp/Song-1.webm"},
			ok:     true,
		},
		{
			name:   "other status",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusError},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := eventFor(tt.update)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventSink_DropsAfterClose(t *testing.T) {
	events := make(chan Event, 2)
	sink := newEventSink(context.Background(), events)

	sink.send(Event{Kind: EventDownloading, Percent: 10})
	sink.close()
	sink.send(Event{Kind: EventPostProcessed})

	require.Len(t, events, 1)
	assert.Equal(t, EventDownloading, (<-events).Kind)
}

func TestEventSink_CancelledContextDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := newEventSink(ctx, make(chan Event))
	done := make(chan struct{})
	go func() {
		sink.send(Event{Kind: EventDownloading, Percent: 5})
		close(done)
	}()

	assert.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestDecodeProbe(t *testing.T) {
	info, err := decodeProbe([]byte(`{
		"title": "Me at the zoo",
		"duration": 19,
		"thumbnail": "https://i.ytimg.com/vi/x/hq.jpg",
		"uploader": "jawed",
		"view_count": 300,
		"formats": [{"format_id": "18"}, {"format_id": "140"}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Me at the zoo", info.Title)
	assert.Equal(t, 19.0, info.Duration)
	assert.Equal(t, "jawed", info.Uploader)
	assert.Equal(t, int64(300), info.ViewCount)
	assert.Equal(t, 2, info.Formats)
	assert.True(t, info.Usable())
}

func TestDecodeProbe_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		formats int
	}{
		{"direct url only", `{"url": "https://cdn.example/v.mp4"}`, 1},
		{"nothing usable", `{"title": "Empty"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := decodeProbe([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.formats, info.Formats)
			assert.Equal(t, "Unknown", info.Uploader)
		})
	}

	info, err := decodeProbe([]byte(`{"url": "https://cdn.example/v.mp4"}`))
	require.NoError(t, err)
	assert.Equal(t, "Unknown", info.Title)
}

func TestDecodeProbe_InvalidJSON(t *testing.T) {
	_, err := decodeProbe([]byte("WARNING: not json"))
	assert.ErrorContains(t, err, "decode probe output")
}

func TestCommandError(t *testing.T) {
	base := errors.New("exit status 1")

	t.Run("no result", func(t *testing.T) {
		assert.Same(t, base, commandError(nil, base))
	})

	t.Run("empty stderr", func(t *testing.T) {
		assert.Same(t, base, commandError(&ytdlp.Result{Stderr: "  \n"}, base))
	})

	t.Run("stderr folded", func(t *testing.T) {
		err := commandError(&ytdlp.Result{Stderr: "ERROR: [youtube] abc: Private video\n"}, base)
		assert.True(t, errors.Is(err, base))
		assert.Equal(t, "exit status 1: ERROR: [youtube] abc: Private video", err.Error())
		assert.Equal(t, KindPrivate, Classify(err.Error()))
	})

	t.Run("stderr already present", func(t *testing.T) {
		err := errors.New("ERROR: Video unavailable")
		assert.Same(t, err, commandError(&ytdlp.Result{Stderr: "Video unavailable"}, err))
	})
}
