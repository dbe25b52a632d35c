package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nmalhotra/waveprint/pkg/model"
)

// MongoStore is the alternative snapshot backend for deployments that
// already run MongoDB. Selected via a mongodb:// DSN; sqlite remains the
// default.
type MongoStore struct {
	client   *mongo.Client
	songs    *mongo.Collection
	postings *mongo.Collection
}

type songDoc struct {
	ID         string `bson:"_id"`
	Title      string `bson:"title"`
	Artist     string `bson:"artist"`
	YouTubeID  string `bson:"youtube_id,omitempty"`
	DurationMs int    `bson:"duration_ms"`
}

type postingDoc struct {
	Hash       uint32 `bson:"hash"`
	SongID     string `bson:"song_id"`
	AnchorTime uint32 `bson:"anchor_time"`
}

const mongoOpTimeout = 30 * time.Second

// NewMongoStore connects to the given DSN and prepares the collections
// in the named database.
func NewMongoStore(dsn, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(database)
	st := &MongoStore{
		client:   client,
		songs:    db.Collection("songs"),
		postings: db.Collection("postings"),
	}

	idx := mongo.IndexModel{Keys: bson.D{{Key: "hash", Value: 1}}}
	if _, err := st.postings.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("creating hash index: %w", err)
	}

	return st, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) SaveSong(song model.Song) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	_, err := s.songs.InsertOne(ctx, songDoc{
		ID:         song.ID,
		Title:      song.Title,
		Artist:     song.Artist,
		YouTubeID:  song.YouTubeID,
		DurationMs: song.DurationMs,
	})
	if err != nil {
		return fmt.Errorf("saving song %q: %w", song.ID, err)
	}
	return nil
}

func (s *MongoStore) DeleteSong(songID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	if _, err := s.songs.DeleteOne(ctx, bson.M{"_id": songID}); err != nil {
		return fmt.Errorf("deleting song %q: %w", songID, err)
	}
	return nil
}

func (s *MongoStore) LoadSongs() ([]model.Song, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	cur, err := s.songs.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("loading songs: %w", err)
	}
	defer cur.Close(ctx)

	var songs []model.Song
	for cur.Next(ctx) {
		var doc songDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding song: %w", err)
		}
		songs = append(songs, model.Song{
			ID:         doc.ID,
			Title:      doc.Title,
			Artist:     doc.Artist,
			YouTubeID:  doc.YouTubeID,
			DurationMs: doc.DurationMs,
		})
	}
	return songs, cur.Err()
}

func (s *MongoStore) AppendPostings(records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = postingDoc{
			Hash:       rec.Hash,
			SongID:     rec.SongID,
			AnchorTime: rec.AnchorTime,
		}
	}
	if _, err := s.postings.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("appending %d postings: %w", len(records), err)
	}
	return nil
}

func (s *MongoStore) DeleteSongPostings(songID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	if _, err := s.postings.DeleteMany(ctx, bson.M{"song_id": songID}); err != nil {
		return fmt.Errorf("deleting postings for %q: %w", songID, err)
	}
	return nil
}

func (s *MongoStore) LoadPostings() (map[uint32][]model.Posting, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	cur, err := s.postings.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("loading postings: %w", err)
	}
	defer cur.Close(ctx)

	postings := make(map[uint32][]model.Posting)
	for cur.Next(ctx) {
		var doc postingDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding posting: %w", err)
		}
		postings[doc.Hash] = append(postings[doc.Hash], model.Posting{
			SongID:     doc.SongID,
			AnchorTime: doc.AnchorTime,
		})
	}
	return postings, cur.Err()
}
