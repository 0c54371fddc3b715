// Package main is the Miru CLI entry point.
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

	"github.com/hyperjump/miru/internal/cli"
	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/ingest"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/ocr"
	"github.com/hyperjump/miru/internal/search"
	"github.com/hyperjump/miru/internal/server"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/watcher"
	"github.com/hyperjump/miru/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/miru/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "miru server" from the project dir uses the project's config (including debug).
// Returns the config and the path that was actually loaded.
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
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "keyword":
		runKeyword()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("miru version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging (provider calls, watch events, etc.)")
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		ing := components.Ingestor
		tags := cfg.Watch.Tags
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.NewWatcher(
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			func(path string) {
				abs, absErr := filepath.Abs(path)
				if absErr != nil {
					abs = path
				}
				input := &models.IngestInput{ImageURL: "file://" + abs, Tags: tags}
				if _, ingErr := ing.Ingest(context.Background(), input); ingErr != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(ingErr))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.Engine,
		components.Ingestor,
		components.Storage,
		&cfg.Server,
		logger,
		cfg,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	tagsFlag := fs.String("tags", "", "comma-separated tags to attach")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: miru ingest [flags] <image-url-or-file>")
		os.Exit(1)
	}
	reference := fs.Arg(0)
	// Local files become file:// references so repeat ingests of the same
	// path dedupe regardless of working directory.
	if !strings.Contains(reference, "://") {
		if abs, err := filepath.Abs(reference); err == nil {
			reference = "file://" + abs
		}
	}
	var tags []string
	if *tagsFlag != "" {
		for _, t := range strings.Split(*tagsFlag, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	input := &models.IngestInput{ImageURL: reference, Tags: tags}

	if *serverURL != "" {
		// Use HTTP API when server is running (avoids SQLite/Bleve lock conflict).
		result, err := ingestViaHTTP(*serverURL, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteIngestResult(os.Stdout, result, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	result, err := components.Ingestor.Ingest(context.Background(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteIngestResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// buildSearchInput joins all positional args with spaces so multi-word text
// queries work the same with or without shell quoting.
func buildSearchInput(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "miru search \"query\" -limit 5"
// would otherwise leave -limit unparsed.
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

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: miru search [flags] <text-or-image-url>\n\n")
	fmt.Fprintf(fs.Output(), "Input is all remaining arguments joined by spaces. Multi-word text queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  miru search a cat on a windowsill
  miru search "a cat on a windowsill"               # same as above
  miru search --type image https://example.com/query.png
  miru search --threshold 0.25 --limit 5 sunset over water
  miru search --output json beach photo             # structured JSON for other apps
`)
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	queryType := fs.String("type", models.QueryTypeText, "query type: text or image")
	threshold := fs.Float64("threshold", -1, "minimum similarity in [0,1] (negative = server default)")
	limit := fs.Int("limit", 0, "number of results (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	input := buildSearchInput(fs.Args())
	if input == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	searchQuery := &models.SearchQuery{
		QueryType: *queryType,
		Input:     input,
		Limit:     *limit,
	}
	if *threshold >= 0 {
		searchQuery.Threshold = threshold
	}

	if *serverURL != "" {
		response, err := searchViaHTTP(*serverURL, searchQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	response, err := components.Engine.Search(context.Background(), searchQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runKeyword() {
	keywordArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("keyword", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage when server is not running)")
	limit := fs.Int("limit", 0, "number of results (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(keywordArgs)

	if fs.NArg() < 1 {
		fmt.Println("Usage: miru keyword [flags] <query>")
		os.Exit(1)
	}
	query := buildSearchInput(fs.Args())
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	keywordQuery := &models.KeywordQuery{Query: query, Limit: *limit}

	if *serverURL != "" {
		response, err := keywordViaHTTP(*serverURL, keywordQuery)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Keyword search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteKeywordResults(os.Stdout, response, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	components, logger := mustInitialize(*configPath)
	defer logger.Sync()
	defer components.Close()

	response, err := components.Engine.KeywordSearch(context.Background(), keywordQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Keyword search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteKeywordResults(os.Stdout, response, format); err != nil {
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

func keywordViaHTTP(serverURL string, query *models.KeywordQuery) (*models.KeywordResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/keyword-search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.KeywordResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func ingestViaHTTP(serverURL string, input *models.IngestInput) (*models.IngestResult, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/upload", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.IngestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	EmbeddingDimensions int     `json:"embedding_dimensions,omitempty"`
	DefaultThreshold    float64 `json:"default_threshold,omitempty"`
	DefaultLimit        int     `json:"default_limit,omitempty"`
	DatabasePath        string  `json:"database_path,omitempty"`
	KeywordIndexPath    string  `json:"keyword_index_path,omitempty"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Images        int64                 `json:"images"`
	CachedQueries int64                 `json:"cached_queries"`
	Config        *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		imageCount, err := components.Storage.CountImages(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count images failed: %v\n", err)
			os.Exit(1)
		}
		queryCount, err := components.Storage.CountTextQueries(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count text queries failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			Images:        imageCount,
			CachedQueries: queryCount,
			Config: &statusConfigResponse{
				EmbeddingDimensions: cfg.Embedding.Dimensions,
				DefaultThreshold:    cfg.Search.DefaultThreshold,
				DefaultLimit:        cfg.Search.DefaultLimit,
				DatabasePath:        cfg.Storage.DatabasePath,
				KeywordIndexPath:    cfg.Storage.KeywordIndexPath,
			},
		}
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
		fmt.Printf("images:          %d   # count of indexed images\n", status.Images)
		fmt.Printf("cached_queries:  %d   # count of cached text-query embeddings\n", status.CachedQueries)
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			if status.Config.EmbeddingDimensions > 0 {
				fmt.Printf("embedding_dims:     %d\n", status.Config.EmbeddingDimensions)
			}
			fmt.Printf("default_threshold:  %g\n", status.Config.DefaultThreshold)
			if status.Config.DefaultLimit > 0 {
				fmt.Printf("default_limit:      %d\n", status.Config.DefaultLimit)
			}
			if status.Config.DatabasePath != "" {
				fmt.Printf("database_path:      %s\n", status.Config.DatabasePath)
			}
			if status.Config.KeywordIndexPath != "" {
				fmt.Printf("keyword_index_path: %s\n", status.Config.KeywordIndexPath)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func parseOutputFormat(s string) (cli.SearchOutputFormat, error) {
	switch s {
	case "json":
		return cli.OutputJSON, nil
	case "text":
		return cli.OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// mustInitialize loads config, builds a logger, and initializes components,
// exiting the process on any failure. Used by direct-storage CLI paths.
func mustInitialize(configPath string) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, logger
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Store
	Provider     embedding.Provider
	OCR          ocr.Extractor
	KeywordIndex keyword.Index
	Engine       *search.Engine
	Ingestor     *ingest.Ingestor
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
	if c.OCR != nil {
		_ = c.OCR.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var provider embedding.Provider
	if cfg.Embedding.Token != "" {
		providerOpts := []embedding.HTTPProviderOption{
			embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond),
		}
		if debug && logger != nil {
			providerOpts = append(providerOpts, embedding.WithLogger(logger))
		}
		httpProvider, err := embedding.NewHTTPProvider(
			cfg.Embedding.Endpoint,
			cfg.Embedding.Token,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
			providerOpts...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
		}
		provider = httpProvider
	} else {
		// No model token configured; fall back to deterministic mock embeddings
		// so local development works without credentials.
		if logger != nil {
			logger.Warn("no model token configured, using mock embeddings")
		}
		provider = embedding.NewMockProvider(cfg.Embedding.Dimensions)
	}

	var extractor ocr.Extractor
	if cfg.OCR.EnabledOrDefault() && cfg.Embedding.Token != "" {
		httpExtractor, err := ocr.NewHTTPExtractor(cfg.Embedding.Endpoint, cfg.Embedding.Token, cfg.OCR.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OCR extractor: %w", err)
		}
		extractor = httpExtractor
	}

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	engineOpts := []search.EngineOption{
		search.WithKeywordIndex(keywordIndex),
		search.WithQueryCache(embedding.NewCache(cfg.Embedding.CacheSize)),
	}
	if debug && logger != nil {
		engineOpts = append(engineOpts, search.WithLogger(logger))
	}
	engine := search.NewEngine(store, provider, &cfg.Search, engineOpts...)

	ingestOpts := []ingest.IngestorOption{
		ingest.WithKeywordIndex(keywordIndex),
	}
	if extractor != nil {
		ingestOpts = append(ingestOpts, ingest.WithOCR(extractor))
	}
	if debug && logger != nil {
		ingestOpts = append(ingestOpts, ingest.WithLogger(logger))
	}
	ingestor := ingest.NewIngestor(store, provider, ingestOpts...)

	return &Components{
		Storage:      store,
		Provider:     provider,
		OCR:          extractor,
		KeywordIndex: keywordIndex,
		Engine:       engine,
		Ingestor:     ingestor,
	}, nil
}

func printUsage() {
	fmt.Println(`miru - Image similarity search engine

Usage:
  miru server [flags]               Start the HTTP server
  miru ingest [flags] <image>       Ingest an image URL or local file
  miru search [flags] <input>       Search by text or image URL
  miru keyword [flags] <query>      Lexical search over tags and OCR text
  miru status [flags]               Show storage/cache status
  miru version                      Show version
  miru help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/miru/config.yaml)
  --debug            Enable debug logging (provider calls, watch events, etc.)

Ingest Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --tags string      Comma-separated tags to attach
  --output string    Output format: text or json (default: text)

Search Flags:
  --config string      Config file path (for direct storage mode)
  --server string      Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --type string        Query type: text or image (default: text)
  --threshold float    Minimum similarity in [0,1] (negative = server default)
  --limit int          Number of results (0 = server default)
  --output string      Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text or json (default: text)

Examples:
  miru server
  miru ingest https://example.com/photo.png --tags "vacation,beach"
  miru ingest ./photos/cat.png
  miru search a cat on a windowsill
  miru search --type image https://example.com/query.png
  miru search --output json "sunset over water"
  miru keyword receipt
  miru status --output json`)
}
