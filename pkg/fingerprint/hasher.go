package fingerprint

import "github.com/nmalhotra/waveprint/pkg/model"

// Hash layout: 10 bits anchor bin, 10 bits target bin, 12 bits frame
// delta. Fields are clamped to their width, so the hash space is bounded
// and deterministic regardless of window size.
const (
	freqBits  = 10
	deltaBits = 12

	maxFreqValue  = (1 << freqBits) - 1  // 1023
	maxDeltaValue = (1 << deltaBits) - 1 // 4095
)

// PackHash packs an anchor/target bin pair and their frame delta into a
// 32-bit hash. The delta encoding makes the hash invariant to a uniform
// time shift of the whole peak set.
func PackHash(anchorFreq, targetFreq, timeDelta int) uint32 {
	a := clamp(anchorFreq, maxFreqValue)
	t := clamp(targetFreq, maxFreqValue)
	d := clamp(timeDelta, maxDeltaValue)
	return a<<(freqBits+deltaBits) | t<<deltaBits | d
}

func clamp(v, max int) uint32 {
	if v < 0 {
		return 0
	}
	if v > max {
		return uint32(max)
	}
	return uint32(v)
}

// HashPeaks pairs each anchor peak with up to p.FanValue later peaks
// inside the target zone (MinTimeDelta..MaxTimeDelta frames ahead, at
// most FreqWindow bins away) and emits one Record per pair. Peaks must
// be sorted by time; ExtractPeaks returns them that way.
func HashPeaks(peaks []Peak, songID string, p Params) []model.Record {
	records := make([]model.Record, 0, len(peaks)*p.FanValue/2)

	for i, anchor := range peaks {
		paired := 0
		for j := i + 1; j < len(peaks) && paired < p.FanValue; j++ {
			target := peaks[j]

			delta := target.TimeIdx - anchor.TimeIdx
			if delta < p.MinTimeDelta {
				continue
			}
			if delta > p.MaxTimeDelta {
				// Peaks are time-sorted, nothing further qualifies.
				break
			}
			if abs(target.FreqIdx-anchor.FreqIdx) > p.FreqWindow {
				continue
			}

			records = append(records, model.Record{
				Hash:       PackHash(anchor.FreqIdx, target.FreqIdx, delta),
				SongID:     songID,
				AnchorTime: uint32(anchor.TimeIdx),
			})
			paired++
		}
	}

	return records
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
