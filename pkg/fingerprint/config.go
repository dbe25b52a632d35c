package fingerprint

// Params controls every tunable in the spectrogram, peak extraction,
// hashing, matching, and streaming pipeline.
//
// A deployment must fix exactly one Params value and use it for both
// ingestion and querying: the index stores nothing about the parameters
// it was built with, and hashes produced under different presets never
// collide meaningfully.
type Params struct {
	SampleRate int // expected mono input rate in Hz
	WindowSize int // FFT window size in samples (power of 2)
	HopSize    int // samples between successive FFT frames

	MinFreqHz float64 // low edge of the band of interest (0 = no crop)
	MaxFreqHz float64 // high edge of the band of interest (0 = Nyquist)

	Preprocess bool // normalize + high-pass + pre-emphasis + noise gate

	NeighborhoodTime     int     // peak neighborhood width in frames
	NeighborhoodFreq     int     // peak neighborhood height in bins
	AmplitudeThresholdDB float64 // keep peaks within this many dB of the max
	TargetPeakDensity    float64 // max retained peaks per second of audio

	FanValue     int // max target peaks paired per anchor
	MinTimeDelta int // target zone start, in frames after the anchor
	MaxTimeDelta int // target zone end, in frames after the anchor
	FreqWindow   int // max |targetBin - anchorBin| for a pair

	MatchThreshold   int   // minimum aligned pairs for a reported match
	ClusterTolerance int64 // frames two deltas may differ and still cluster

	StreamWindowSec float64 // seconds of audio per streaming analysis window
	StreamSlideSec  float64 // seconds the window advances between analyses
	ConfirmWindow   int     // trailing results consulted for confirmation
}

// MicrophoneParams returns the preset tuned for audio captured over the
// air: aggressive preprocessing, a mid-band crop, dense peaks, and a high
// fan-out so enough hashes survive distortion.
func MicrophoneParams() Params {
	return Params{
		SampleRate: 8000,
		WindowSize: 2048,
		HopSize:    64,

		MinFreqHz: 300,
		MaxFreqHz: 4000,

		Preprocess: true,

		NeighborhoodTime:     10,
		NeighborhoodFreq:     10,
		AmplitudeThresholdDB: 10,
		TargetPeakDensity:    20,

		FanValue:     20,
		MinTimeDelta: 0,
		MaxTimeDelta: 200,
		FreqWindow:   2000,

		MatchThreshold:   5,
		ClusterTolerance: 2,

		StreamWindowSec: 10,
		StreamSlideSec:  2,
		ConfirmWindow:   3,
	}
}

// StudioParams returns the preset for clean file uploads: higher sample
// rate and frequency resolution, no preprocessing, sparser peaks.
func StudioParams() Params {
	return Params{
		SampleRate: 22050,
		WindowSize: 4096,
		HopSize:    2048,

		Preprocess: false,

		NeighborhoodTime:     20,
		NeighborhoodFreq:     20,
		AmplitudeThresholdDB: 35,
		TargetPeakDensity:    30,

		FanValue:     15,
		MinTimeDelta: 1,
		MaxTimeDelta: 11, // ~1 s at hop 2048 / 22050 Hz
		FreqWindow:   100,

		MatchThreshold:   5,
		ClusterTolerance: 2,

		StreamWindowSec: 10,
		StreamSlideSec:  2,
		ConfirmWindow:   3,
	}
}

// FrameDuration returns the seconds covered by one spectrogram hop.
func (p Params) FrameDuration() float64 {
	return float64(p.HopSize) / float64(p.SampleRate)
}

// FreqResolution returns the width of one FFT bin in Hz.
func (p Params) FreqResolution() float64 {
	return float64(p.SampleRate) / float64(p.WindowSize)
}

// BandBins returns the cropped bin range [min, max) for the band of
// interest, bounded to the spectrogram's half-window bin count.
func (p Params) BandBins() (int, int) {
	nBins := p.WindowSize / 2
	minBin := 0
	maxBin := nBins
	if p.MinFreqHz > 0 {
		minBin = int(p.MinFreqHz / p.FreqResolution())
	}
	if p.MaxFreqHz > 0 {
		if b := int(p.MaxFreqHz / p.FreqResolution()); b < maxBin {
			maxBin = b
		}
	}
	if minBin > nBins {
		minBin = nBins
	}
	if maxBin < minBin {
		maxBin = minBin
	}
	return minBin, maxBin
}
