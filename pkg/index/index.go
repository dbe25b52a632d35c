// Package index holds the inverted fingerprint index: hash -> postings,
// plus the time-offset-histogram matcher that ranks candidate songs.
package index

import (
	"sync"

	"github.com/nmalhotra/waveprint/pkg/fingerprint"
	"github.com/nmalhotra/waveprint/pkg/model"
)

// Index maps hash values to posting lists. Ingestion is append-only and
// assumed rare; matching reads concurrently under the shared lock.
type Index struct {
	mu        sync.RWMutex
	postings  map[uint32][]model.Posting
	songs     map[string]struct{}
	total     int
	tolerance int64
}

// New returns an empty index. tolerance is the number of frames two
// offset deltas may differ and still count as the same alignment.
func New(tolerance int64) *Index {
	if tolerance < 0 {
		tolerance = 0
	}
	return &Index{
		postings:  make(map[uint32][]model.Posting),
		songs:     make(map[string]struct{}),
		tolerance: tolerance,
	}
}

// Insert appends every record's posting to its hash bucket. There is no
// deduplication: inserting the same song twice duplicates its postings
// and roughly doubles its scores. Callers that need idempotency must
// enforce it above this layer.
func (ix *Index) Insert(songID string, set fingerprint.Set) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, rec := range set {
		ix.postings[rec.Hash] = append(ix.postings[rec.Hash], model.Posting{
			SongID:     songID,
			AnchorTime: rec.AnchorTime,
		})
		ix.total++
	}
	if len(set) > 0 {
		ix.songs[songID] = struct{}{}
	}
}

// Remove drops every posting for songID. Used when a song is deleted
// from the catalog; the per-hash scan is acceptable for an admin path.
func (ix *Index) Remove(songID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for hash, posts := range ix.postings {
		kept := posts[:0]
		for _, p := range posts {
			if p.SongID == songID {
				ix.total--
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			delete(ix.postings, hash)
		} else {
			ix.postings[hash] = kept
		}
	}
	delete(ix.songs, songID)
}

// Stats summarizes the index for diagnostics.
type Stats struct {
	Postings     int `json:"postings"`
	UniqueHashes int `json:"unique_hashes"`
	Songs        int `json:"songs"`
}

func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Stats{
		Postings:     ix.total,
		UniqueHashes: len(ix.postings),
		Songs:        len(ix.songs),
	}
}

// Snapshot returns a deep copy of the posting map for persistence.
func (ix *Index) Snapshot() map[uint32][]model.Posting {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make(map[uint32][]model.Posting, len(ix.postings))
	for hash, posts := range ix.postings {
		out[hash] = append([]model.Posting(nil), posts...)
	}
	return out
}

// Restore replaces the index contents with a previously saved snapshot.
func (ix *Index) Restore(postings map[uint32][]model.Posting) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.postings = make(map[uint32][]model.Posting, len(postings))
	ix.songs = make(map[string]struct{})
	ix.total = 0
	for hash, posts := range postings {
		ix.postings[hash] = append([]model.Posting(nil), posts...)
		ix.total += len(posts)
		for _, p := range posts {
			ix.songs[p.SongID] = struct{}{}
		}
	}
}
