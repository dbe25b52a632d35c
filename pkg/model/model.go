package model

// Song is a reference track registered in the catalog.
type Song struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	YouTubeID  string `json:"youtube_id,omitempty"`
	DurationMs int    `json:"duration_ms"`
}

// Record is one fingerprint entry produced from an audio signal:
// a packed hash plus the song and anchor frame it was derived from.
type Record struct {
	Hash       uint32 `json:"hash"`
	SongID     string `json:"song_id"`
	AnchorTime uint32 `json:"anchor_time"`
}

// Posting is one entry in the inverted index for a given hash.
type Posting struct {
	SongID     string `json:"song_id"`
	AnchorTime uint32 `json:"anchor_time"`
}

// Match is one ranked candidate returned by the index.
// Confidence is the size of the largest consistent time-offset cluster,
// Offset the cluster's representative delta (dbTime - queryTime) in frames.
type Match struct {
	SongID     string `json:"song_id"`
	Confidence int    `json:"confidence"`
	Offset     int64  `json:"offset"`
}
