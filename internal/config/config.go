// Package config provides configuration loading and structs for the
// listingsearch server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Sync      SyncConfig      `yaml:"sync"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SourceConfig points at the listing catalog database.
type SourceConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// IndexConfig holds vector index settings and the snapshot location.
type IndexConfig struct {
	Type        string `yaml:"type"`
	SnapshotDir string `yaml:"snapshot_dir"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// SyncConfig tunes the sync engine and its schedule.
type SyncConfig struct {
	// RebuildThreshold is the change ratio above which a sync becomes a
	// full rebuild.
	RebuildThreshold float64 `yaml:"rebuild_threshold"`
	BatchSize        int     `yaml:"batch_size"`
	EmbedWorkers     int     `yaml:"embed_workers"`
	// Schedule is a cron expression; empty disables scheduled syncs.
	Schedule string `yaml:"schedule"`
	// TimeoutSeconds bounds one scheduled sync pass; zero means unbounded.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// SearchConfig holds result size settings.
type SearchConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Source.DatabasePath = expandPath(cfg.Source.DatabasePath, configDir)
	cfg.Index.SnapshotDir = expandPath(cfg.Index.SnapshotDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
