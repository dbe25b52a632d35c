// Package stream implements continuous identification over a live audio
// feed: a rolling PCM buffer, a single-slot background analysis task per
// session, and temporal confirmation to suppress one-window false
// positives.
package stream

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nmalhotra/waveprint/pkg/audio"
	"github.com/nmalhotra/waveprint/pkg/fingerprint"
	"github.com/nmalhotra/waveprint/pkg/model"
)

// Matcher identifies a window of mono samples against the index. The
// second return value is the number of fingerprints generated from the
// window, distinguishing "unfingerprintable signal" from "no match".
type Matcher interface {
	IdentifySamples(samples []float64, sampleRate int, threshold int) ([]model.Match, int, error)
}

// Logger is the subset of logging the session needs.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// Event is one analysis result emitted to the session's event channel.
type Event struct {
	Match      bool   `json:"match"`
	SongID     string `json:"song_id,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
	Offset     int64  `json:"offset,omitempty"`
	Confirmed  bool   `json:"confirmed"`
	Note       string `json:"note,omitempty"`
}

// Session is the per-stream state machine. Audio chunks accumulate in a
// rolling buffer; once a full analysis window is buffered, one
// background task fingerprints and matches it, emits an Event, slides
// the buffer, and repeats while a full window remains. Writes never
// block on analysis, and at most one analysis task is in flight.
//
// All state is private to the session; no locking is shared across
// sessions.
type Session struct {
	id      string
	matcher Matcher
	params  fingerprint.Params
	log     Logger

	windowBytes int
	slideBytes  int

	mu        sync.Mutex
	buf       []byte
	analyzing bool
	closed    bool
	history   []string // trailing window results, "" means no match

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session bound to a matcher and parameter set.
func NewSession(matcher Matcher, params fingerprint.Params, log Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	bytesPerSec := params.SampleRate * 2 // 16-bit mono PCM
	windowBytes := int(params.StreamWindowSec * float64(bytesPerSec))
	slideBytes := int(params.StreamSlideSec * float64(bytesPerSec))
	if slideBytes < 1 || slideBytes > windowBytes {
		slideBytes = windowBytes
	}

	return &Session{
		id:          uuid.NewString(),
		matcher:     matcher,
		params:      params,
		log:         log,
		windowBytes: windowBytes,
		slideBytes:  slideBytes,
		events:      make(chan Event, 16),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Session) ID() string { return s.id }

// Events returns the channel analysis results are delivered on. The
// channel is closed by Close.
func (s *Session) Events() <-chan Event { return s.events }

// WriteChunk appends little-endian 16-bit PCM bytes to the rolling
// buffer and starts an analysis task if a full window is buffered and
// none is running. Malformed chunks (empty or odd-length) are dropped so
// the buffer never loses sample alignment. Never blocks on analysis.
func (s *Session) WriteChunk(chunk []byte) {
	if len(chunk) == 0 || len(chunk)%2 != 0 {
		if s.log != nil {
			s.log.Warnf("stream %s: dropping malformed %d-byte chunk", s.id, len(chunk))
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.buf = append(s.buf, chunk...)
	if !s.analyzing && len(s.buf) >= s.windowBytes {
		s.analyzing = true
		go s.run()
	}
}

// run is the single-slot analysis loop. It keeps consuming windows as
// long as a full one is buffered, then clears the in-flight flag so the
// next WriteChunk can start a new task.
func (s *Session) run() {
	defer func() {
		s.mu.Lock()
		s.analyzing = false
		s.mu.Unlock()
	}()

	for {
		if s.ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		if s.closed || len(s.buf) < s.windowBytes {
			s.mu.Unlock()
			return
		}
		window := make([]byte, s.windowBytes)
		copy(window, s.buf)
		s.mu.Unlock()

		ev := s.analyzeWindow(window)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		ev.Confirmed = s.recordResult(ev)
		if ev.Confirmed {
			ev.Note = "match confirmed"
		}
		select {
		case s.events <- ev:
		default:
			// Slow consumer; dropping beats blocking the pipeline.
		}
		s.buf = append(s.buf[:0:0], s.buf[s.slideBytes:]...)
		s.mu.Unlock()
	}
}

// analyzeWindow runs the fingerprint+match pipeline on one window
// snapshot. Every failure mode maps to a no-match event; the stream
// never surfaces internal errors.
func (s *Session) analyzeWindow(window []byte) Event {
	samples := audio.DecodePCM16(window)
	audio.PeakNormalize(samples)

	matches, generated, err := s.matcher.IdentifySamples(samples, s.params.SampleRate, s.params.MatchThreshold)
	if err != nil {
		if s.log != nil {
			s.log.Warnf("stream %s: analysis failed: %v", s.id, err)
		}
		return Event{Match: false, Note: "analysis failed"}
	}
	if generated == 0 {
		return Event{Match: false, Note: "insufficient signal"}
	}
	if len(matches) == 0 {
		return Event{Match: false, Note: "listening"}
	}

	best := matches[0]
	return Event{
		Match:      true,
		SongID:     best.SongID,
		Confidence: best.Confidence,
		Offset:     best.Offset,
		Note:       "potential match",
	}
}

// recordResult appends the window's outcome to the trailing history and
// reports whether the current song is confirmed: present in more than
// half of the last ConfirmWindow results. Caller holds s.mu.
func (s *Session) recordResult(ev Event) bool {
	song := ""
	if ev.Match {
		song = ev.SongID
	}
	s.history = append(s.history, song)
	if len(s.history) > s.params.ConfirmWindow {
		s.history = s.history[len(s.history)-s.params.ConfirmWindow:]
	}

	if song == "" || len(s.history) < s.params.ConfirmWindow {
		return false
	}
	count := 0
	for _, h := range s.history {
		if h == song {
			count++
		}
	}
	return count > s.params.ConfirmWindow/2
}

// Close cancels any in-flight analysis, frees the buffer, and closes
// the event channel. No event is emitted after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.buf = nil
	s.history = nil
	close(s.events)
}
