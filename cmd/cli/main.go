package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/nmalhotra/waveprint/pkg/fingerprint"
	"github.com/nmalhotra/waveprint/pkg/store"
	"github.com/nmalhotra/waveprint/pkg/waveprint"
)

// Global flags
var (
	dbPath  string
	tempDir string
	preset  string
)

var (
	headline = color.New(color.FgCyan, color.Bold)
	success  = color.New(color.FgGreen)
	failure  = color.New(color.FgRed)
	detail   = color.New(color.FgHiBlack)
)

func init() {
	_ = godotenv.Load()

	flag.StringVar(&dbPath, "db", getEnvOrDefault("WAVEPRINT_DB_PATH", store.DefaultDBFile), "Path to the SQLite database file")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("WAVEPRINT_TEMP_DIR", "/tmp"), "Directory for temporary audio conversion files")
	flag.StringVar(&preset, "preset", getEnvOrDefault("WAVEPRINT_PRESET", "microphone"), "Parameter preset: microphone or studio")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (waveprint.Service, error) {
	var params fingerprint.Params
	switch preset {
	case "microphone":
		params = fingerprint.MicrophoneParams()
	case "studio":
		params = fingerprint.StudioParams()
	default:
		return nil, fmt.Errorf("unknown preset %q (want microphone or studio)", preset)
	}

	return waveprint.NewService(
		waveprint.WithDBPath(dbPath),
		waveprint.WithTempDir(tempDir),
		waveprint.WithParams(params),
	)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "add":
		handleAdd()
	case "add-yt":
		handleAddYouTube()
	case "match":
		handleMatch()
	case "list":
		handleList()
	case "delete":
		handleDelete()
	case "stats":
		handleStats()
	default:
		failure.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	headline.Println("waveprint - audio fingerprinting and identification")
	fmt.Println(`
Usage:
  waveprint add <audio_file> -title <title> -artist <artist> [-youtube <id>]
  waveprint add-yt <youtube_url>
  waveprint match <audio_file> [-threshold <n>]
  waveprint list
  waveprint delete <song_id>
  waveprint stats

Global flags (before the command is parsed from the environment too):
  -db      Path to the SQLite database (WAVEPRINT_DB_PATH)
  -temp    Temp directory for conversions (WAVEPRINT_TEMP_DIR)
  -preset  microphone or studio (WAVEPRINT_PRESET)`)
}

// splitArg pulls one positional argument off the command args,
// returning it and the remaining flag arguments.
func splitArg(args []string) (string, []string) {
	if len(args) == 0 || len(args[0]) == 0 || args[0][0] == '-' {
		return "", args
	}
	return args[0], args[1:]
}

func mustService() waveprint.Service {
	svc, err := createService()
	if err != nil {
		failure.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	return svc
}

func handleAdd() {
	audioPath, flagArgs := splitArg(os.Args[2:])

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	title := addCmd.String("title", "", "Song title (required)")
	artist := addCmd.String("artist", "", "Artist name (required)")
	youtube := addCmd.String("youtube", "", "YouTube ID (optional)")
	addCmd.Parse(flagArgs)

	if audioPath == "" || *title == "" || *artist == "" {
		failure.Println("Usage: waveprint add <audio_file> -title <title> -artist <artist> [-youtube <id>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	songID, err := svc.AddSong(ctx, audioPath, *title, *artist, *youtube)
	if err != nil {
		failure.Printf("Failed to add song: %v\n", err)
		os.Exit(1)
	}
	success.Printf("Added %q by %q\n", *title, *artist)
	detail.Printf("  id: %s\n", songID)
}

func handleAddYouTube() {
	url, _ := splitArg(os.Args[2:])
	if url == "" {
		failure.Println("Usage: waveprint add-yt <youtube_url>")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	fmt.Println("Downloading audio...")
	songID, err := svc.AddSongFromYouTube(ctx, url)
	if err != nil {
		failure.Printf("Failed to add song from YouTube: %v\n", err)
		os.Exit(1)
	}

	song, _ := svc.GetSong(songID)
	if song != nil {
		success.Printf("Added %q by %q\n", song.Title, song.Artist)
	} else {
		success.Println("Added song")
	}
	detail.Printf("  id: %s\n", songID)
}

func handleMatch() {
	audioPath, flagArgs := splitArg(os.Args[2:])

	matchCmd := flag.NewFlagSet("match", flag.ExitOnError)
	threshold := matchCmd.Int("threshold", 0, "Minimum aligned fingerprints for a match (0 = preset default)")
	matchCmd.Parse(flagArgs)

	if audioPath == "" {
		failure.Println("Usage: waveprint match <audio_file> [-threshold <n>]")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	matches, err := svc.Identify(ctx, audioPath, *threshold)
	if err != nil {
		failure.Printf("Match failed: %v\n", err)
		os.Exit(1)
	}
	if len(matches) == 0 {
		fmt.Println("No match.")
		return
	}

	headline.Printf("%d candidate(s):\n", len(matches))
	for i, m := range matches {
		success.Printf("%2d. %s - %s\n", i+1, m.Artist, m.Title)
		detail.Printf("    confidence %d, offset %.1fs, id %s\n", m.Confidence, m.OffsetSec, m.SongID)
	}
}

func handleList() {
	svc := mustService()
	defer svc.Close()

	songs := svc.ListSongs()
	if len(songs) == 0 {
		fmt.Println("Catalog is empty.")
		return
	}

	headline.Printf("%d song(s):\n", len(songs))
	for _, song := range songs {
		fmt.Printf("  %s - %s\n", song.Artist, song.Title)
		detail.Printf("    id %s, %.1fs", song.ID, float64(song.DurationMs)/1000)
		if song.YouTubeID != "" {
			detail.Printf(", yt %s", song.YouTubeID)
		}
		fmt.Println()
	}
}

func handleDelete() {
	songID, _ := splitArg(os.Args[2:])
	if songID == "" {
		failure.Println("Usage: waveprint delete <song_id>")
		os.Exit(1)
	}

	svc := mustService()
	defer svc.Close()

	if err := svc.DeleteSong(songID); err != nil {
		failure.Printf("Failed to delete: %v\n", err)
		os.Exit(1)
	}
	success.Printf("Deleted %s\n", songID)
}

func handleStats() {
	svc := mustService()
	defer svc.Close()

	stats := svc.Stats()
	headline.Println("Index statistics")
	fmt.Printf("  songs:         %d\n", stats.Songs)
	fmt.Printf("  postings:      %d\n", stats.Postings)
	fmt.Printf("  unique hashes: %d\n", stats.UniqueHashes)
}
