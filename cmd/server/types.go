package main

import (
	"fmt"
	"strings"

	"github.com/nmalhotra/waveprint/pkg/fingerprint"
	"github.com/nmalhotra/waveprint/pkg/waveprint"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	Preset         string
	Params         fingerprint.Params
	AllowedOrigins []string
}

// AddSongYouTubeRequest is the request body for POST /api/songs/youtube
type AddSongYouTubeRequest struct {
	YouTubeURL string `json:"youtube_url"`
}

// Validate checks if the request is valid
func (r *AddSongYouTubeRequest) Validate() error {
	if strings.TrimSpace(r.YouTubeURL) == "" {
		return fmt.Errorf("youtube_url is required")
	}
	return nil
}

// SongDTO represents a song in API responses
type SongDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	YouTubeID  string `json:"youtube_id,omitempty"`
	DurationMs int    `json:"duration_ms"`
}

// AddSongResponse is the response for successful song addition
type AddSongResponse struct {
	Message   string `json:"message"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	YouTubeID string `json:"youtube_id,omitempty"`
}

// ListSongsResponse is the response for GET /api/songs
type ListSongsResponse struct {
	Songs []SongDTO `json:"songs"`
	Count int       `json:"count"`
}

// DeleteSongResponse is the response for DELETE /api/songs/{id}
type DeleteSongResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// MatchResponse is the response for POST /api/match
type MatchResponse struct {
	Matches []waveprint.MatchResult `json:"matches"`
	Count   int                     `json:"count"`
}

// MetricsResponse provides server health and index metrics
type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	Preset       string `json:"preset"`
	SongCount    int    `json:"song_count"`
	PostingCount int    `json:"posting_count"`
	UniqueHashes int    `json:"unique_hashes"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
