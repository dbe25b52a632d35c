// Package waveprint wires the fingerprinting pipeline, the inverted
// index, and persistence into one dependency-injected service.
package waveprint

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nmalhotra/waveprint/pkg/audio"
	"github.com/nmalhotra/waveprint/pkg/fingerprint"
	"github.com/nmalhotra/waveprint/pkg/index"
	"github.com/nmalhotra/waveprint/pkg/logger"
	"github.com/nmalhotra/waveprint/pkg/model"
	"github.com/nmalhotra/waveprint/pkg/store"
	"github.com/nmalhotra/waveprint/pkg/stream"
)

type service struct {
	params  fingerprint.Params
	index   *index.Index
	store   store.Store
	log     Logger
	tempDir string

	mu       sync.RWMutex
	songs    map[string]model.Song
	songKeys map[string]string // "title---artist" -> song ID
}

// NewService constructs the engine: opens (or creates) the snapshot
// store, loads the persisted postings and catalog into memory, and
// returns a ready Service. A missing snapshot starts an empty index.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	st := cfg.Store
	if st == nil {
		var err error
		st, err = store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening snapshot store: %w", err)
		}
	}

	s := &service{
		params:   cfg.Params,
		index:    index.New(cfg.Params.ClusterTolerance),
		store:    st,
		log:      cfg.Logger,
		tempDir:  cfg.TempDir,
		songs:    make(map[string]model.Song),
		songKeys: make(map[string]string),
	}

	if err := s.load(); err != nil {
		// Snapshot problems degrade to an empty index instead of
		// refusing to start.
		s.log.Warnf("snapshot load failed, starting empty: %v", err)
	}

	return s, nil
}

func (s *service) load() error {
	postings, err := s.store.LoadPostings()
	if err != nil {
		return err
	}
	s.index.Restore(postings)

	songs, err := s.store.LoadSongs()
	if err != nil {
		return err
	}
	s.mu.Lock()
	for _, song := range songs {
		s.songs[song.ID] = song
		s.songKeys[songKey(song.Title, song.Artist)] = song.ID
	}
	s.mu.Unlock()

	stats := s.index.Stats()
	s.log.Infof("loaded %d songs, %d postings across %d hashes",
		len(songs), stats.Postings, stats.UniqueHashes)
	return nil
}

func songKey(title, artist string) string {
	return title + "---" + artist
}

// AddSong converts the file to mono PCM at the deployment rate,
// fingerprints it, registers the song, and persists the new postings.
func (s *service) AddSong(ctx context.Context, audioPath, title, artist, youtubeID string) (string, error) {
	wavPath, err := audio.ConvertToMonoWAV(ctx, audioPath, s.tempDir, audio.ConvertConfig{
		SampleRate: s.params.SampleRate,
	})
	if err != nil {
		return "", fmt.Errorf("audio conversion failed: %w", err)
	}

	samples, sampleRate, err := audio.ReadWAV(wavPath)
	if err != nil {
		return "", fmt.Errorf("reading converted wav: %w", err)
	}

	return s.AddSongFromSamples(samples, sampleRate, title, artist, youtubeID)
}

// AddSongFromSamples ingests already-decoded mono PCM. This is the path
// the tests and any non-file transport use.
func (s *service) AddSongFromSamples(samples []float64, sampleRate int, title, artist, youtubeID string) (string, error) {
	key := songKey(title, artist)
	s.mu.RLock()
	_, exists := s.songKeys[key]
	s.mu.RUnlock()
	if exists {
		return "", fmt.Errorf("song %q by %q is already registered", title, artist)
	}

	songID := uuid.NewString()
	set := fingerprint.Generate(samples, sampleRate, songID, s.params)
	if len(set) == 0 {
		return "", fmt.Errorf("no fingerprints extracted from %q (silent or too short)", title)
	}
	s.log.Infof("generated %d fingerprints for %q", len(set), title)

	durationMs := 0
	if sampleRate > 0 {
		durationMs = len(samples) * 1000 / sampleRate
	}
	song := model.Song{
		ID:         songID,
		Title:      title,
		Artist:     artist,
		YouTubeID:  youtubeID,
		DurationMs: durationMs,
	}

	if err := s.store.SaveSong(song); err != nil {
		return "", fmt.Errorf("registering song: %w", err)
	}
	if err := s.store.AppendPostings(set); err != nil {
		// Roll back the catalog entry so the store stays consistent.
		if derr := s.store.DeleteSong(songID); derr != nil {
			s.log.Errorf("rollback of song %s failed: %v", songID, derr)
		}
		return "", fmt.Errorf("persisting fingerprints: %w", err)
	}

	s.index.Insert(songID, set)
	s.mu.Lock()
	s.songs[songID] = song
	s.songKeys[key] = songID
	s.mu.Unlock()

	s.log.Infof("added song %s (%q by %q)", songID, title, artist)
	return songID, nil
}

// AddSongFromYouTube downloads a video's audio track and ingests it.
func (s *service) AddSongFromYouTube(ctx context.Context, url string) (string, error) {
	track, err := audio.DownloadYouTubeAudio(ctx, url, s.tempDir)
	if err != nil {
		return "", fmt.Errorf("downloading %q: %w", url, err)
	}
	return s.AddSong(ctx, track.Path, track.Title, track.Artist, track.ID)
}

// Identify fingerprints the query file and returns ranked matches with
// catalog metadata. Both "unfingerprintable input" and "no match" come
// back as an empty slice, not an error.
func (s *service) Identify(ctx context.Context, audioPath string, threshold int) ([]MatchResult, error) {
	wavPath, err := audio.ConvertToMonoWAV(ctx, audioPath, s.tempDir, audio.ConvertConfig{
		SampleRate: s.params.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("audio conversion failed: %w", err)
	}

	samples, sampleRate, err := audio.ReadWAV(wavPath)
	if err != nil {
		return nil, fmt.Errorf("reading converted wav: %w", err)
	}

	matches, generated, err := s.IdentifySamples(samples, sampleRate, threshold)
	if err != nil {
		return nil, err
	}
	if generated == 0 {
		s.log.Infof("query %q yielded no fingerprints", audioPath)
		return []MatchResult{}, nil
	}

	results := make([]MatchResult, 0, len(matches))
	for _, m := range matches {
		res := MatchResult{
			SongID:     m.SongID,
			Confidence: m.Confidence,
			Offset:     m.Offset,
			OffsetSec:  float64(m.Offset) * s.params.FrameDuration(),
		}
		if song, ok := s.GetSong(m.SongID); ok {
			res.Title = song.Title
			res.Artist = song.Artist
			res.YouTubeID = song.YouTubeID
		}
		results = append(results, res)
	}
	return results, nil
}

// IdentifySamples runs the pure in-memory pipeline: fingerprint the
// samples and match them against the index. The second return value is
// the number of fingerprints generated (0 means unusable signal).
func (s *service) IdentifySamples(samples []float64, sampleRate int, threshold int) ([]model.Match, int, error) {
	if threshold < 1 {
		threshold = s.params.MatchThreshold
	}
	set := fingerprint.Generate(samples, sampleRate, "query", s.params)
	if len(set) == 0 {
		return nil, 0, nil
	}
	return s.index.Match(set, threshold), len(set), nil
}

// NewSession creates a streaming session bound to this service's
// parameter set and index.
func (s *service) NewSession() *stream.Session {
	return stream.NewSession(s, s.params, s.log)
}

func (s *service) GetSong(songID string) (*model.Song, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	song, ok := s.songs[songID]
	if !ok {
		return nil, false
	}
	return &song, true
}

func (s *service) ListSongs() []model.Song {
	s.mu.RLock()
	defer s.mu.RUnlock()
	songs := make([]model.Song, 0, len(s.songs))
	for _, song := range s.songs {
		songs = append(songs, song)
	}
	sort.Slice(songs, func(i, j int) bool {
		if songs[i].Artist == songs[j].Artist {
			return songs[i].Title < songs[j].Title
		}
		return songs[i].Artist < songs[j].Artist
	})
	return songs
}

// DeleteSong removes a song from the catalog, the store, and the index.
func (s *service) DeleteSong(songID string) error {
	s.mu.Lock()
	song, ok := s.songs[songID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("song %q not found", songID)
	}
	delete(s.songs, songID)
	delete(s.songKeys, songKey(song.Title, song.Artist))
	s.mu.Unlock()

	if err := s.store.DeleteSongPostings(songID); err != nil {
		return err
	}
	if err := s.store.DeleteSong(songID); err != nil {
		return err
	}
	s.index.Remove(songID)

	s.log.Infof("deleted song %s (%q by %q)", songID, song.Title, song.Artist)
	return nil
}

func (s *service) Stats() index.Stats {
	return s.index.Stats()
}

func (s *service) Close() error {
	return s.store.Close()
}
