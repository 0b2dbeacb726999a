// Package main is the listingsearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/artisan-point/listingsearch/internal/cli"
	"github.com/artisan-point/listingsearch/internal/config"
	"github.com/artisan-point/listingsearch/internal/embedding"
	"github.com/artisan-point/listingsearch/internal/models"
	"github.com/artisan-point/listingsearch/internal/scheduler"
	"github.com/artisan-point/listingsearch/internal/search"
	"github.com/artisan-point/listingsearch/internal/server"
	"github.com/artisan-point/listingsearch/internal/snapshot"
	"github.com/artisan-point/listingsearch/internal/source"
	"github.com/artisan-point/listingsearch/internal/syncer"
	"github.com/artisan-point/listingsearch/internal/vector"
	"github.com/artisan-point/listingsearch/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/listingsearch/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "sync":
		runSync()
	case "rebuild":
		runRebuild()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("listingsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	syncOnStart := fs.Bool("sync", true, "run a catalog sync before serving")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if *syncOnStart {
		if _, err := components.Engine.Sync(context.Background()); err != nil {
			logger.Warn("initial sync failed, serving last known index", zap.Error(err))
		}
	}

	var sched *scheduler.Scheduler
	if cfg.Sync.Schedule != "" {
		sched = scheduler.New(
			components.Engine,
			cfg.Sync.Schedule,
			time.Duration(cfg.Sync.TimeoutSeconds)*time.Second,
			logger,
		)
		if err := sched.Start(); err != nil {
			logger.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Searcher,
		components.Engine,
		components.Catalog,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if sched != nil {
		sched.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the
// query to the front of the slice so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = open the index directly)")
	k := fs.Int("k", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: listingsearch search [flags] <query>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fs.Usage()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := &models.SearchQuery{Query: queryStr, K: *k}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, query)
	} else {
		response, err = searchDirect(*configPathFlag, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// searchDirect opens the snapshot and catalog without a server. Useful when
// the server is down or for scripted one-off queries.
func searchDirect(configPath string, query *models.SearchQuery) (*models.SearchResponse, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	return components.Searcher.Search(context.Background(), query)
}

func runSync() {
	runSyncOrRebuild("sync", "/api/v1/sync")
}

func runRebuild() {
	runSyncOrRebuild("rebuild", "/api/v1/rebuild")
}

func runSyncOrRebuild(name, path string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	resp, err := http.Post(*serverURL+path, "application/json", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var report models.SyncReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSyncReport(os.Stdout, &report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	Ready           bool               `json:"ready"`
	Indexed         int                `json:"indexed"`
	IndexType       string             `json:"index_type"`
	Dimensions      int                `json:"dimensions"`
	CatalogListings *int64             `json:"catalog_listings,omitempty"`
	LastSync        string             `json:"last_sync,omitempty"`
	LastReport      *models.SyncReport `json:"last_report,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Decode response failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("ready:        %t\n", status.Ready)
		fmt.Printf("indexed:      %d\n", status.Indexed)
		fmt.Printf("index_type:   %s\n", status.IndexType)
		fmt.Printf("dimensions:   %d\n", status.Dimensions)
		if status.CatalogListings != nil {
			fmt.Printf("catalog:      %d\n", *status.CatalogListings)
		}
		if status.LastSync != "" {
			fmt.Printf("last_sync:    %s\n", status.LastSync)
		}
		if status.LastReport != nil {
			fmt.Println()
			_ = cli.WriteSyncReport(os.Stdout, status.LastReport, cli.OutputText)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Catalog  source.Catalog
	Embedder embedding.Embedder
	Engine   *syncer.Engine
	Searcher *search.Service
}

func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	catalog, err := source.NewSQLiteCatalog(cfg.Source.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open listing catalog: %w", err)
	}

	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Warn("ONNX embedder unavailable, using deterministic hash embedder",
			zap.Error(err))
		embedder = embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	index, err := vector.New(cfg.Index.Type, cfg.Embedding.Dimensions)
	if err != nil {
		// Fall back to the flat index if the configured type fails
		// (e.g. FAISS not compiled in).
		if cfg.Index.Type != string(vector.IndexTypeFlat) {
			logger.Warn("failed to create vector index, falling back to flat",
				zap.String("requested_type", cfg.Index.Type),
				zap.Error(err))
			index, err = vector.New(string(vector.IndexTypeFlat), cfg.Embedding.Dimensions)
		}
		if err != nil {
			_ = catalog.Close()
			return nil, fmt.Errorf("failed to initialize vector index: %w", err)
		}
	}
	logger.Info("vector index initialized",
		zap.String("type", index.Type()),
		zap.Bool("faiss_available", vector.IsFAISSAvailable()))

	store, err := snapshot.New(cfg.Index.SnapshotDir, logger)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
	}

	engine, err := syncer.NewEngine(catalog, embedder, index, store, syncer.Options{
		RebuildThreshold: cfg.Sync.RebuildThreshold,
		BatchSize:        cfg.Sync.BatchSize,
		EmbedWorkers:     cfg.Sync.EmbedWorkers,
	}, logger)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to initialize sync engine: %w", err)
	}

	searcher := search.NewService(engine, embedder, cfg.Search.DefaultK, cfg.Search.MaxK, logger)

	return &Components{
		Catalog:  catalog,
		Embedder: embedder,
		Engine:   engine,
		Searcher: searcher,
	}, nil
}

func printUsage() {
	fmt.Println(`listingsearch - semantic search over a marketplace listing catalog

Usage:
  listingsearch server [flags]           Start the HTTP server
  listingsearch search [flags] <query>   Search listings
  listingsearch sync [flags]             Trigger a catalog sync on the server
  listingsearch rebuild [flags]          Force a full index rebuild on the server
  listingsearch status [flags]           Show index status
  listingsearch version                  Show version
  listingsearch help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/listingsearch/config.yaml)
  --debug            Enable debug logging
  --sync             Run a catalog sync before serving (default: true)

Search Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to open the index directly.
  --k int            Number of results (default: 10)
  --output string    Output format: text, compact, or json (default: text)

Sync/Rebuild/Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  listingsearch server
  listingsearch search handmade wooden bowl
  listingsearch search --output json "ceramic mug"
  listingsearch sync
  listingsearch rebuild
  listingsearch status --output json`)
}
