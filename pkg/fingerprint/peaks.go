package fingerprint

import "sort"

// Peak is a local maximum in the spectrogram. FreqIdx is the absolute
// FFT bin index (band cropping already undone), TimeIdx the frame index.
type Peak struct {
	TimeIdx int
	FreqIdx int
	MagDB   float64
}

// ExtractPeaks returns the constellation map for a spectrogram: cells
// that are the maximum of their rectangular neighborhood, lie within
// p.AmplitudeThresholdDB of the global maximum, ranked by amplitude and
// capped at p.TargetPeakDensity peaks per second. The result is sorted
// by time, then frequency. Silent or tiny input yields few or no peaks.
func ExtractPeaks(spec [][]float64, p Params) []Peak {
	if len(spec) == 0 || len(spec[0]) == 0 {
		return nil
	}
	nFrames := len(spec)
	nBins := len(spec[0])

	globalMax := spec[0][0]
	for _, frame := range spec {
		for _, m := range frame {
			if m > globalMax {
				globalMax = m
			}
		}
	}
	threshold := globalMax - p.AmplitudeThresholdDB

	halfT := p.NeighborhoodTime / 2
	halfF := p.NeighborhoodFreq / 2

	peaks := make([]Peak, 0, nFrames)
	for t := 0; t < nFrames; t++ {
		for f := 0; f < nBins; f++ {
			mag := spec[t][f]
			if mag < threshold {
				continue
			}
			if !isNeighborhoodMax(spec, t, f, halfT, halfF) {
				continue
			}
			peaks = append(peaks, Peak{TimeIdx: t, FreqIdx: f, MagDB: mag})
		}
	}

	// Density control: strongest peaks win, count bounded by duration.
	duration := float64(nFrames) * p.FrameDuration()
	limit := int(p.TargetPeakDensity * duration)
	if limit < 1 {
		limit = 1
	}
	if len(peaks) > limit {
		sort.Slice(peaks, func(i, j int) bool { return peaks[i].MagDB > peaks[j].MagDB })
		peaks = peaks[:limit]
	}

	// Undo the band crop so hashes use absolute bin indices.
	minBin, _ := p.BandBins()
	if minBin > 0 {
		for i := range peaks {
			peaks[i].FreqIdx += minBin
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].TimeIdx == peaks[j].TimeIdx {
			return peaks[i].FreqIdx < peaks[j].FreqIdx
		}
		return peaks[i].TimeIdx < peaks[j].TimeIdx
	})

	return peaks
}

// isNeighborhoodMax reports whether spec[t][f] is >= every cell in the
// rectangle (t +/- halfT, f +/- halfF), the maximum-filter test.
func isNeighborhoodMax(spec [][]float64, t, f, halfT, halfF int) bool {
	mag := spec[t][f]
	for dt := -halfT; dt <= halfT; dt++ {
		tt := t + dt
		if tt < 0 || tt >= len(spec) {
			continue
		}
		row := spec[tt]
		for df := -halfF; df <= halfF; df++ {
			ff := f + df
			if ff < 0 || ff >= len(row) {
				continue
			}
			if row[ff] > mag {
				return false
			}
		}
	}
	return true
}
