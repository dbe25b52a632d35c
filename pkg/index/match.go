package index

import (
	"sort"

	"github.com/nmalhotra/waveprint/pkg/fingerprint"
	"github.com/nmalhotra/waveprint/pkg/model"
)

// Match scores the query set against the index. For every query hash
// found in the index, each posting contributes a (queryTime, dbTime)
// pair to its song. Songs with at least threshold pairs have their
// deltas (dbTime - queryTime) clustered; the size of the largest run of
// deltas within the index tolerance is the song's confidence, the run's
// first delta its offset. True matches concentrate on one delta because
// every pair from the same recording shifts by the same amount;
// coincidental collisions scatter and never form a large run.
//
// Results are sorted by confidence descending; ties keep the order in
// which songs first appeared during the scan. An empty query returns an
// empty list.
func (ix *Index) Match(query fingerprint.Set, threshold int) []model.Match {
	if len(query) == 0 {
		return nil
	}
	if threshold < 1 {
		threshold = 1
	}

	ix.mu.RLock()
	deltas := make(map[string][]int64)
	order := make([]string, 0)
	for _, rec := range query {
		posts, ok := ix.postings[rec.Hash]
		if !ok {
			continue
		}
		for _, p := range posts {
			if _, seen := deltas[p.SongID]; !seen {
				order = append(order, p.SongID)
			}
			deltas[p.SongID] = append(deltas[p.SongID], int64(p.AnchorTime)-int64(rec.AnchorTime))
		}
	}
	tolerance := ix.tolerance
	ix.mu.RUnlock()

	matches := make([]model.Match, 0, len(order))
	for _, songID := range order {
		ds := deltas[songID]
		if len(ds) < threshold {
			continue
		}
		confidence, offset := largestCluster(ds, tolerance)
		if confidence < threshold {
			continue
		}
		matches = append(matches, model.Match{
			SongID:     songID,
			Confidence: confidence,
			Offset:     offset,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// largestCluster sorts the deltas and finds the longest run whose
// members all lie within tolerance of the run's first (representative)
// delta. Returns the run length and that representative.
func largestCluster(deltas []int64, tolerance int64) (int, int64) {
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })

	bestSize := 0
	bestOffset := int64(0)
	start := 0
	for end := 0; end < len(deltas); end++ {
		for deltas[end]-deltas[start] > tolerance {
			start++
		}
		if size := end - start + 1; size > bestSize {
			bestSize = size
			bestOffset = deltas[start]
		}
	}
	return bestSize, bestOffset
}
