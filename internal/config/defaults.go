package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Source.DatabasePath == "" {
		cfg.Source.DatabasePath = "/usr/local/var/listingsearch/data/listings.db"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "flat"
	}
	if cfg.Index.SnapshotDir == "" {
		cfg.Index.SnapshotDir = "/usr/local/var/listingsearch/data/index"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/listingsearch/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Sync.RebuildThreshold == 0 {
		cfg.Sync.RebuildThreshold = 0.05
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 64
	}
	if cfg.Sync.EmbedWorkers == 0 {
		cfg.Sync.EmbedWorkers = 4
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 10
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}
}
