package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/nmalhotra/waveprint/pkg/fingerprint"
	"github.com/nmalhotra/waveprint/pkg/store"
	"github.com/nmalhotra/waveprint/pkg/waveprint"
)

var (
	port           int
	dbPath         string
	tempDir        string
	preset         string
	allowedOrigins string
)

func init() {
	// Optional .env file; absence is fine.
	_ = godotenv.Load()

	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("WAVEPRINT_DB_PATH", store.DefaultDBFile), "Path to SQLite database")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("WAVEPRINT_TEMP_DIR", "/tmp"), "Temporary directory")
	flag.StringVar(&preset, "preset", getEnvOrDefault("WAVEPRINT_PRESET", "microphone"), "Parameter preset: microphone or studio")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()

	var params fingerprint.Params
	switch preset {
	case "microphone":
		params = fingerprint.MicrophoneParams()
	case "studio":
		params = fingerprint.StudioParams()
	default:
		log.Fatalf("Unknown preset %q (want microphone or studio)", preset)
	}

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	opts := []waveprint.Option{
		waveprint.WithDBPath(dbPath),
		waveprint.WithTempDir(tempDir),
		waveprint.WithParams(params),
	}
	// WAVEPRINT_MONGO_DSN switches persistence from sqlite to MongoDB.
	if dsn := os.Getenv("WAVEPRINT_MONGO_DSN"); dsn != "" {
		mongoStore, err := store.NewMongoStore(dsn, getEnvOrDefault("WAVEPRINT_MONGO_DB", "waveprint"))
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		opts = append(opts, waveprint.WithStore(mongoStore))
	}

	service, err := waveprint.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		Preset:         preset,
		Params:         params,
		AllowedOrigins: origins,
	}

	server := NewServer(service, config)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
