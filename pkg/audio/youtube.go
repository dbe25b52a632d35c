package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

// YouTubeTrack is the metadata extracted alongside a download.
type YouTubeTrack struct {
	Path   string
	ID     string
	Title  string
	Artist string
}

// DownloadYouTubeAudio fetches the audio track of a single YouTube
// video into outputDir as WAV, returning the file path and metadata.
// Requires yt-dlp on PATH (ytdlp.MustInstall can bootstrap it).
func DownloadYouTubeAudio(ctx context.Context, url, outputDir string) (*YouTubeTrack, error) {
	dl := ytdlp.New().
		NoWarnings().
		NoPlaylist().
		ExtractAudio().
		AudioFormat("wav").
		PrintJSON().
		Output(filepath.Join(outputDir, "%(id)s.%(ext)s"))

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp download failed: %w", err)
	}

	infos, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("parsing yt-dlp metadata: %w", err)
	}
	if len(infos) == 0 {
		return nil, errors.New("yt-dlp returned no video metadata")
	}
	info := infos[0]

	track := &YouTubeTrack{
		Path:  filepath.Join(outputDir, info.ID+".wav"),
		ID:    info.ID,
		Title: deref(info.Title),
	}
	track.Artist = pickArtist(deref(info.Artist), deref(info.Channel), deref(info.Uploader))
	if track.Title == "" {
		track.Title = info.ID
	}
	return track, nil
}

// pickArtist falls back through the metadata fields yt-dlp may or may
// not populate.
func pickArtist(artist, channel, uploader string) string {
	for _, v := range []string{artist, channel, uploader} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return "Unknown Artist"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
