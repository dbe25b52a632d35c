package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nmalhotra/waveprint/pkg/logger"
	"github.com/nmalhotra/waveprint/pkg/waveprint"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  waveprint.Service
	config   *ServerConfig
	log      waveprint.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(service waveprint.Service, config *ServerConfig) *Server {
	s := &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  32 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(config.AllowedOrigins, r)
		},
	}
	return s
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "Waveprint API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":         "GET /health",
			"metrics":        "GET /api/health/metrics",
			"songs":          "GET /api/songs",
			"addSongFile":    "POST /api/songs",
			"addSongYouTube": "POST /api/songs/youtube",
			"getSong":        "GET /api/songs/{id}",
			"deleteSong":     "DELETE /api/songs/{id}",
			"matchFile":      "POST /api/match",
			"stream":         "GET /api/stream (WebSocket)",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats := s.service.Stats()
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		Preset:       s.config.Preset,
		SongCount:    stats.Songs,
		PostingCount: stats.Postings,
		UniqueHashes: stats.UniqueHashes,
	})
}

// handleListSongs handles GET /api/songs
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	songs := s.service.ListSongs()

	songDTOs := make([]SongDTO, len(songs))
	for i, song := range songs {
		songDTOs[i] = SongDTO{
			ID:         song.ID,
			Title:      song.Title,
			Artist:     song.Artist,
			YouTubeID:  song.YouTubeID,
			DurationMs: song.DurationMs,
		}
	}

	s.respondJSON(w, http.StatusOK, ListSongsResponse{
		Songs: songDTOs,
		Count: len(songDTOs),
	})
}

// handleGetSong handles GET /api/songs/{id}
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request, songID string) {
	song, ok := s.service.GetSong(songID)
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song %s not found", songID))
		return
	}

	s.respondJSON(w, http.StatusOK, SongDTO{
		ID:         song.ID,
		Title:      song.Title,
		Artist:     song.Artist,
		YouTubeID:  song.YouTubeID,
		DurationMs: song.DurationMs,
	})
}

// handleDeleteSong handles DELETE /api/songs/{id}
func (s *Server) handleDeleteSong(w http.ResponseWriter, r *http.Request, songID string) {
	if _, ok := s.service.GetSong(songID); !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Song %s not found", songID))
		return
	}

	if err := s.service.DeleteSong(songID); err != nil {
		s.log.Errorf("Failed to delete song %s: %v", songID, err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete song")
		return
	}

	s.respondJSON(w, http.StatusOK, DeleteSongResponse{
		Message: "Song deleted successfully",
		ID:      songID,
	})
}

// saveUpload copies a multipart upload into the temp dir and returns
// its path. The caller removes the file.
func (s *Server) saveUpload(r *http.Request, field, prefix string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%s file is required", field)
	}
	defer file.Close()

	tempFile := filepath.Join(s.config.TempDir, fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), filepath.Base(header.Filename)))
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("saving upload: %w", err)
	}
	return tempFile, nil
}

// handleAddSongFile handles POST /api/songs (multipart file upload)
func (s *Server) handleAddSongFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	// Parse multipart form (max 100MB)
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	youtubeID := r.FormValue("youtube_id")
	if title == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	tempFile, err := s.saveUpload(r, "audio", "upload")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	s.log.Infof("Adding song from file: %s by %s", title, artist)
	songID, err := s.service.AddSong(ctx, tempFile, title, artist, youtubeID)
	if err != nil {
		s.log.Errorf("Failed to add song: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, AddSongResponse{
		Message:   "Song added successfully",
		ID:        songID,
		Title:     title,
		Artist:    artist,
		YouTubeID: youtubeID,
	})
}

// handleAddSongYouTube handles POST /api/songs/youtube
func (s *Server) handleAddSongYouTube(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var req AddSongYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Adding song from YouTube URL: %s", req.YouTubeURL)
	songID, err := s.service.AddSongFromYouTube(ctx, req.YouTubeURL)
	if err != nil {
		s.log.Errorf("Failed to add song from YouTube: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to add song: %v", err))
		return
	}

	song, _ := s.service.GetSong(songID)
	resp := AddSongResponse{Message: "Song added successfully from YouTube", ID: songID}
	if song != nil {
		resp.Title = song.Title
		resp.Artist = song.Artist
		resp.YouTubeID = song.YouTubeID
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

// handleMatchFile handles POST /api/match (multipart file upload)
func (s *Server) handleMatchFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	// Parse multipart form (max 50MB)
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	threshold := 0 // service default
	if v := r.FormValue("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "threshold must be a positive integer")
			return
		}
		threshold = n
	}

	tempFile, err := s.saveUpload(r, "audio", "query")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	matches, err := s.service.Identify(ctx, tempFile, threshold)
	if err != nil {
		s.log.Errorf("Failed to match audio: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to match audio: %v", err))
		return
	}

	s.log.Infof("Match complete: %d candidates", len(matches))
	s.respondJSON(w, http.StatusOK, MatchResponse{
		Matches: matches,
		Count:   len(matches),
	})
}

// handleStream handles GET /api/stream: upgrades to a WebSocket, feeds
// binary PCM16 frames into a streaming session, and relays its events
// back as JSON text frames.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := s.service.NewSession()
	defer session.Close()
	s.log.Infof("Stream session %s opened from %s", session.ID(), r.RemoteAddr)

	// Event relay; exits when the session's channel closes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range session.Events() {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		session.WriteChunk(data)
	}

	session.Close()
	<-done
	s.log.Infof("Stream session %s closed", session.ID())
}

// handleSongs routes requests to /api/songs
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSongFile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSong routes requests to /api/songs/{id}
func (s *Server) handleSong(w http.ResponseWriter, r *http.Request) {
	songID := strings.TrimPrefix(r.URL.Path, "/api/songs/")
	if songID == "" {
		s.respondError(w, http.StatusBadRequest, "Song ID required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSong(w, r, songID)
	case http.MethodDelete:
		s.handleDeleteSong(w, r, songID)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleMatch routes requests to /api/match
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleMatchFile(w, r)
}
