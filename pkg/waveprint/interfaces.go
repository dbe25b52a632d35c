package waveprint

import (
	"context"

	"github.com/nmalhotra/waveprint/pkg/index"
	"github.com/nmalhotra/waveprint/pkg/model"
	"github.com/nmalhotra/waveprint/pkg/stream"
)

// Service is the identification engine facade. One instance is
// constructed at process start and handed to whatever transport fronts
// it; there is no shared global state.
type Service interface {
	AddSong(ctx context.Context, audioPath, title, artist, youtubeID string) (string, error)
	AddSongFromSamples(samples []float64, sampleRate int, title, artist, youtubeID string) (string, error)
	AddSongFromYouTube(ctx context.Context, url string) (string, error)

	Identify(ctx context.Context, audioPath string, threshold int) ([]MatchResult, error)
	IdentifySamples(samples []float64, sampleRate int, threshold int) ([]model.Match, int, error)

	NewSession() *stream.Session

	GetSong(songID string) (*model.Song, bool)
	ListSongs() []model.Song
	DeleteSong(songID string) error
	Stats() index.Stats

	Close() error
}

// Logger is the logging surface the service depends on.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
