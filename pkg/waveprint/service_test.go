package waveprint

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/nmalhotra/waveprint/pkg/audio"
	"github.com/nmalhotra/waveprint/pkg/fingerprint"
)

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

// makeMelody synthesizes a deterministic pseudo-random note sequence:
// 0.25 s sine notes drawn from 400-3500 Hz. The temporal structure makes
// offsets identifiable, unlike a stationary tone mix.
func makeMelody(seed int64, durationSec float64, sampleRate int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	noteLen := int(0.25 * float64(sampleRate))
	n := int(durationSec * float64(sampleRate))

	samples := make([]float64, n)
	freq := 0.0
	for i := 0; i < n; i++ {
		if i%noteLen == 0 {
			freq = 400 + rng.Float64()*3100
		}
		samples[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return samples
}

func setupService(t *testing.T) Service {
	t.Helper()

	tmpDir := t.TempDir()
	svc, err := NewService(
		WithDBPath(filepath.Join(tmpDir, "test.sqlite3")),
		WithTempDir(tmpDir),
		WithLogger(noopLogger{}),
		WithParams(fingerprint.MicrophoneParams()),
	)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestAddAndIdentify(t *testing.T) {
	svc := setupService(t)
	p := fingerprint.MicrophoneParams()

	songA := makeMelody(1, 15, p.SampleRate)
	songB := makeMelody(2, 15, p.SampleRate)

	idA, err := svc.AddSongFromSamples(songA, p.SampleRate, "Alpha", "Artist One", "")
	if err != nil {
		t.Fatalf("Adding song A failed: %v", err)
	}
	idB, err := svc.AddSongFromSamples(songB, p.SampleRate, "Beta", "Artist Two", "")
	if err != nil {
		t.Fatalf("Adding song B failed: %v", err)
	}

	// 4 s clip of song A starting 2 s in.
	clip := songA[2*p.SampleRate : 6*p.SampleRate]
	matches, generated, err := svc.IdentifySamples(clip, p.SampleRate, 5)
	if err != nil {
		t.Fatalf("IdentifySamples failed: %v", err)
	}
	if generated == 0 {
		t.Fatal("Clip produced no fingerprints")
	}
	if len(matches) == 0 {
		t.Fatal("Clip of an indexed song did not match")
	}
	if matches[0].SongID != idA {
		t.Errorf("Top match is %q, want song A (%q)", matches[0].SongID, idA)
	}

	// Offset should recover the clip's position in the song.
	offsetSec := float64(matches[0].Offset) * p.FrameDuration()
	if offsetSec < 1.5 || offsetSec > 2.5 {
		t.Errorf("Offset %.2f s, want ~2 s", offsetSec)
	}

	if song, ok := svc.GetSong(idB); !ok || song.Title != "Beta" {
		t.Errorf("GetSong(%q) = %+v, %v", idB, song, ok)
	}
	if songs := svc.ListSongs(); len(songs) != 2 {
		t.Errorf("ListSongs returned %d songs, want 2", len(songs))
	}
	if stats := svc.Stats(); stats.Songs != 2 || stats.Postings == 0 {
		t.Errorf("Stats = %+v, want 2 songs and nonzero postings", stats)
	}
}

func TestIdentifyUnknownAudio(t *testing.T) {
	svc := setupService(t)
	p := fingerprint.MicrophoneParams()

	if _, err := svc.AddSongFromSamples(makeMelody(1, 15, p.SampleRate), p.SampleRate, "Alpha", "Artist One", ""); err != nil {
		t.Fatalf("Adding song failed: %v", err)
	}

	// A different melody with a high bar: coincidental collisions never
	// line up 20 deep.
	unknown := makeMelody(99, 6, p.SampleRate)
	matches, generated, err := svc.IdentifySamples(unknown, p.SampleRate, 20)
	if err != nil {
		t.Fatalf("IdentifySamples failed: %v", err)
	}
	if generated == 0 {
		t.Fatal("Query produced no fingerprints")
	}
	if len(matches) != 0 {
		t.Errorf("Unknown audio matched: %+v", matches)
	}
}

func TestIdentifySilence(t *testing.T) {
	svc := setupService(t)
	p := fingerprint.MicrophoneParams()

	matches, generated, err := svc.IdentifySamples(make([]float64, p.SampleRate*3), p.SampleRate, 5)
	if err != nil {
		t.Fatalf("IdentifySamples failed: %v", err)
	}
	if generated != 0 {
		t.Errorf("Silence generated %d fingerprints", generated)
	}
	if len(matches) != 0 {
		t.Errorf("Silence matched: %+v", matches)
	}
}

func TestAddDuplicateSongRefused(t *testing.T) {
	svc := setupService(t)
	p := fingerprint.MicrophoneParams()
	samples := makeMelody(1, 15, p.SampleRate)

	if _, err := svc.AddSongFromSamples(samples, p.SampleRate, "Alpha", "Artist One", ""); err != nil {
		t.Fatalf("First add failed: %v", err)
	}
	if _, err := svc.AddSongFromSamples(samples, p.SampleRate, "Alpha", "Artist One", ""); err == nil {
		t.Error("Duplicate title/artist was accepted")
	}
}

func TestAddSilentSongRefused(t *testing.T) {
	svc := setupService(t)
	p := fingerprint.MicrophoneParams()

	if _, err := svc.AddSongFromSamples(make([]float64, p.SampleRate*5), p.SampleRate, "Quiet", "Nobody", ""); err == nil {
		t.Error("Silent audio was accepted into the catalog")
	}
}

func TestDeleteSong(t *testing.T) {
	svc := setupService(t)
	p := fingerprint.MicrophoneParams()
	samples := makeMelody(1, 15, p.SampleRate)

	id, err := svc.AddSongFromSamples(samples, p.SampleRate, "Alpha", "Artist One", "")
	if err != nil {
		t.Fatalf("Adding song failed: %v", err)
	}

	if err := svc.DeleteSong(id); err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}
	if _, ok := svc.GetSong(id); ok {
		t.Error("Deleted song still in catalog")
	}
	if stats := svc.Stats(); stats.Songs != 0 || stats.Postings != 0 {
		t.Errorf("Stats after delete = %+v, want empty", stats)
	}

	clip := samples[2*p.SampleRate : 6*p.SampleRate]
	matches, _, err := svc.IdentifySamples(clip, p.SampleRate, 5)
	if err != nil {
		t.Fatalf("IdentifySamples failed: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Deleted song still matches: %+v", matches)
	}

	// Title/artist become reusable after deletion.
	if _, err := svc.AddSongFromSamples(samples, p.SampleRate, "Alpha", "Artist One", ""); err != nil {
		t.Errorf("Re-adding after delete failed: %v", err)
	}
}

func TestDeleteUnknownSong(t *testing.T) {
	svc := setupService(t)
	if err := svc.DeleteSong("no-such-id"); err == nil {
		t.Error("Deleting an unknown song should fail")
	}
}

func TestPersistenceAcrossRestart(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "restart.sqlite3")
	p := fingerprint.MicrophoneParams()
	samples := makeMelody(1, 15, p.SampleRate)

	svc, err := NewService(WithDBPath(dbPath), WithTempDir(tmpDir), WithLogger(noopLogger{}))
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	id, err := svc.AddSongFromSamples(samples, p.SampleRate, "Alpha", "Artist One", "")
	if err != nil {
		t.Fatalf("Adding song failed: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	svc2, err := NewService(WithDBPath(dbPath), WithTempDir(tmpDir), WithLogger(noopLogger{}))
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer svc2.Close()

	if song, ok := svc2.GetSong(id); !ok || song.Title != "Alpha" {
		t.Fatalf("Catalog not restored: %+v, %v", song, ok)
	}

	clip := samples[2*p.SampleRate : 6*p.SampleRate]
	matches, _, err := svc2.IdentifySamples(clip, p.SampleRate, 5)
	if err != nil {
		t.Fatalf("IdentifySamples after restart failed: %v", err)
	}
	if len(matches) == 0 || matches[0].SongID != id {
		t.Errorf("Restored index does not match the clip: %+v", matches)
	}
}

func TestNoiseDegradesConfidence(t *testing.T) {
	svc := setupService(t)
	p := fingerprint.MicrophoneParams()
	samples := makeMelody(1, 15, p.SampleRate)

	id, err := svc.AddSongFromSamples(samples, p.SampleRate, "Alpha", "Artist One", "")
	if err != nil {
		t.Fatalf("Adding song failed: %v", err)
	}

	clip := samples[2*p.SampleRate : 6*p.SampleRate]
	confidence := func(noiseAmp float64) int {
		t.Helper()
		noisy := make([]float64, len(clip))
		rng := rand.New(rand.NewSource(7))
		for i, s := range clip {
			noisy[i] = s + noiseAmp*(2*rng.Float64()-1)
		}
		matches, _, err := svc.IdentifySamples(noisy, p.SampleRate, 5)
		if err != nil {
			t.Fatalf("IdentifySamples failed: %v", err)
		}
		for _, m := range matches {
			if m.SongID == id {
				return m.Confidence
			}
		}
		return 0
	}

	clean := confidence(0)
	mild := confidence(0.1)
	heavy := confidence(0.6)

	if clean == 0 {
		t.Fatal("Clean clip did not match")
	}
	if mild == 0 {
		t.Error("Mild noise broke identification")
	}
	if mild > clean || heavy > clean {
		t.Errorf("Noise raised confidence: clean=%d mild=%d heavy=%d", clean, mild, heavy)
	}
	t.Logf("Confidence clean=%d mild=%d heavy=%d", clean, mild, heavy)
}

func TestStreamingSessionIdentifies(t *testing.T) {
	svc := setupService(t)
	p := fingerprint.MicrophoneParams()
	samples := makeMelody(1, 15, p.SampleRate)

	id, err := svc.AddSongFromSamples(samples, p.SampleRate, "Alpha", "Artist One", "")
	if err != nil {
		t.Fatalf("Adding song failed: %v", err)
	}

	session := svc.NewSession()
	defer session.Close()

	// Feed 12 s of the song as one chunk: one full 10 s analysis window.
	session.WriteChunk(audio.EncodePCM16(samples[:12*p.SampleRate]))

	select {
	case ev := <-session.Events():
		if !ev.Match || ev.SongID != id {
			t.Errorf("Stream event = %+v, want a match for %q", ev, id)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("No stream event within 10 s")
	}
}
