// Package store persists the song catalog and the fingerprint index
// snapshot. The snapshot format is opaque to callers: the only contract
// is that loading what was saved reproduces identical match results.
package store

import "github.com/nmalhotra/waveprint/pkg/model"

// Store is the persistence boundary. Loading from a missing or empty
// backing store returns empty data, never an error, so first runs
// degrade to an empty index. Save errors always propagate: silently
// losing ingested fingerprints is worse than a visible failure.
type Store interface {
	SaveSong(song model.Song) error
	DeleteSong(songID string) error
	LoadSongs() ([]model.Song, error)

	AppendPostings(records []model.Record) error
	DeleteSongPostings(songID string) error
	LoadPostings() (map[uint32][]model.Posting, error)

	Close() error
}
