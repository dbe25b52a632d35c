package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nmalhotra/waveprint/pkg/model"
)

const DefaultDBFile = "waveprint.sqlite3"

// SQLiteStore is the default snapshot backend: a pure-Go sqlite file,
// one row per song and one row per posting.
type SQLiteStore struct {
	db *gorm.DB
}

type songRow struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Title      string `gorm:"uniqueIndex:idx_song_unique,priority:1"`
	Artist     string `gorm:"uniqueIndex:idx_song_unique,priority:2"`
	YouTubeID  string `gorm:"index:idx_youtube_id"`
	DurationMs int
	CreatedAt  time.Time
}

type postingRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Hash       uint32 `gorm:"index:idx_hash"`
	SongID     string `gorm:"type:varchar(36);index:idx_song"`
	AnchorTime uint32
}

func (songRow) TableName() string    { return "songs" }
func (postingRow) TableName() string { return "postings" }

// NewSQLiteStore opens (creating if needed) the sqlite snapshot at
// dbPath and migrates its schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&songRow{}, &postingRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) SaveSong(song model.Song) error {
	row := songRow{
		ID:         song.ID,
		Title:      song.Title,
		Artist:     song.Artist,
		YouTubeID:  song.YouTubeID,
		DurationMs: song.DurationMs,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("saving song %q: %w", song.ID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSong(songID string) error {
	if err := s.db.Delete(&songRow{}, "id = ?", songID).Error; err != nil {
		return fmt.Errorf("deleting song %q: %w", songID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadSongs() ([]model.Song, error) {
	var rows []songRow
	if err := s.db.Find(&rows).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading songs: %w", err)
	}

	songs := make([]model.Song, len(rows))
	for i, r := range rows {
		songs[i] = model.Song{
			ID:         r.ID,
			Title:      r.Title,
			Artist:     r.Artist,
			YouTubeID:  r.YouTubeID,
			DurationMs: r.DurationMs,
		}
	}
	return songs, nil
}

func (s *SQLiteStore) AppendPostings(records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]postingRow, len(records))
	for i, rec := range records {
		rows[i] = postingRow{
			Hash:       rec.Hash,
			SongID:     rec.SongID,
			AnchorTime: rec.AnchorTime,
		}
	}
	if err := s.db.CreateInBatches(&rows, 500).Error; err != nil {
		return fmt.Errorf("appending %d postings: %w", len(records), err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSongPostings(songID string) error {
	if err := s.db.Delete(&postingRow{}, "song_id = ?", songID).Error; err != nil {
		return fmt.Errorf("deleting postings for %q: %w", songID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadPostings() (map[uint32][]model.Posting, error) {
	postings := make(map[uint32][]model.Posting)

	var rows []postingRow
	batch := s.db.FindInBatches(&rows, 5000, func(tx *gorm.DB, _ int) error {
		for _, r := range rows {
			postings[r.Hash] = append(postings[r.Hash], model.Posting{
				SongID:     r.SongID,
				AnchorTime: r.AnchorTime,
			})
		}
		return nil
	})
	if batch.Error != nil {
		return nil, fmt.Errorf("loading postings: %w", batch.Error)
	}
	return postings, nil
}
