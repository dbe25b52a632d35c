package waveprint

import (
	"github.com/nmalhotra/waveprint/pkg/fingerprint"
	"github.com/nmalhotra/waveprint/pkg/store"
)

// Config is assembled through Options at construction time.
type Config struct {
	DBPath  string
	TempDir string
	Params  fingerprint.Params
	Logger  Logger
	Store   store.Store
}

type Option func(*Config)

// WithDBPath sets the sqlite snapshot path (ignored when WithStore is
// given).
func WithDBPath(path string) Option {
	return func(c *Config) { c.DBPath = path }
}

// WithTempDir sets the scratch directory for audio conversion.
func WithTempDir(dir string) Option {
	return func(c *Config) { c.TempDir = dir }
}

// WithParams fixes the deployment's fingerprinting parameter set. Both
// ingestion and querying use this one value; changing it invalidates an
// existing index.
func WithParams(p fingerprint.Params) Option {
	return func(c *Config) { c.Params = p }
}

// WithLogger injects a logger.
func WithLogger(log Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithStore injects a snapshot store (e.g. mongo instead of sqlite).
func WithStore(st store.Store) Option {
	return func(c *Config) { c.Store = st }
}

func defaultConfig() *Config {
	return &Config{
		DBPath:  store.DefaultDBFile,
		TempDir: "/tmp",
		Params:  fingerprint.MicrophoneParams(),
	}
}
