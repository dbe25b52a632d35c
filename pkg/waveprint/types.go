package waveprint

// MatchResult is an index match joined with catalog metadata, as
// returned to callers of Identify.
type MatchResult struct {
	SongID     string  `json:"song_id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	YouTubeID  string  `json:"youtube_id,omitempty"`
	Confidence int     `json:"confidence"`
	Offset     int64   `json:"offset"`
	OffsetSec  float64 `json:"offset_sec"`
}
