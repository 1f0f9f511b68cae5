// Package main is the papergraph CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chalkline/papergraph/internal/cli"
	"github.com/chalkline/papergraph/internal/config"
	"github.com/chalkline/papergraph/internal/consolidate"
	"github.com/chalkline/papergraph/internal/extract"
	"github.com/chalkline/papergraph/internal/ingest"
	"github.com/chalkline/papergraph/internal/llm"
	"github.com/chalkline/papergraph/internal/query"
	"github.com/chalkline/papergraph/internal/search"
	"github.com/chalkline/papergraph/internal/server"
	"github.com/chalkline/papergraph/internal/store"
	"github.com/chalkline/papergraph/internal/watcher"
	"github.com/chalkline/papergraph/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/papergraph/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
// picks up the project's config.
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
	// API keys commonly live in a .env next to the config.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "ingest":
		runIngest()
	case "analyze":
		runAnalyze()
	case "process":
		runProcess()
	case "query":
		runQuery()
	case "reindex":
		runReindex()
	case "serve":
		runServe()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("papergraph version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`papergraph - past paper concept analyzer

Usage: papergraph <command> [flags]

Commands:
  ingest    Register new paper files found in the paper directory
  analyze   Extract and consolidate concepts from unprocessed papers
  process   Ingest then analyze (the full pipeline)
  query     Report on the stored concept graph
  reindex   Rebuild the concept search index
  serve     Run the HTTP API server
  watch     Watch the paper directory and process new files
  status    Show paper and concept counts
  version   Print version

Run 'papergraph <command> -h' for command flags.
`)
}

// setup loads config and builds the logger and store shared by all commands.
func setup(fs *flag.FlagSet, args []string) (*config.Config, *zap.Logger, *store.SQLiteStore) {
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolvedPath))

	s, err := store.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	return cfg, logger, s
}

// newConsolidator wires the LLM pipeline and search index into the engine.
func newConsolidator(cfg *config.Config, s *store.SQLiteStore, logger *zap.Logger) (*consolidate.Consolidator, *search.ConceptIndex) {
	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}
	processor, err := llm.NewProcessor(client, cfg.LLM.PromptPath, cfg.LLM.MaxPromptChars,
		cfg.LLM.RateLimitPerMinute, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM processor", zap.Error(err))
	}
	extractor := llm.NewPaperExtractor(processor, extract.NewExtractor(), cfg.PDFDir)

	index, err := search.NewConceptIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		logger.Warn("Search index unavailable, continuing without it", zap.Error(err))
		index = nil
	}

	opts := consolidate.Options{
		DefaultConfidence: cfg.Consolidate.DefaultConfidence,
		RelationType:      cfg.Consolidate.RelationType,
		RelationStrength:  cfg.Consolidate.RelationStrength,
	}
	var indexer consolidate.ConceptIndexer
	if index != nil {
		indexer = index
	}
	return consolidate.NewConsolidator(s, extractor, indexer, opts, logger), index
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	cfg, logger, s := setup(fs, os.Args[2:])
	defer s.Close()
	defer logger.Sync()

	ingestor := ingest.NewIngestor(s, cfg.PDFDir, logger)
	papers, err := ingestor.RegisterNew(context.Background())
	if err != nil {
		logger.Fatal("Ingest failed", zap.Error(err))
	}
	fmt.Printf("Registered %d new paper(s)\n", len(papers))
	for _, p := range papers {
		fmt.Printf("  %s (year %d, %s)\n", p.Filename, p.Year, p.Question())
	}
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	limit := fs.Int("limit", 0, "max papers to analyze this run (0 = batch size from config)")
	cfg, logger, s := setup(fs, os.Args[2:])
	defer s.Close()
	defer logger.Sync()

	n := *limit
	if n <= 0 {
		n = cfg.LLM.BatchSize
	}

	cons, index := newConsolidator(cfg, s, logger)
	if index != nil {
		defer index.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := cons.Run(ctx, n)
	if err != nil {
		logger.Fatal("Analyze failed", zap.Error(err))
	}
	printResults(results)
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	limit := fs.Int("limit", 0, "max papers to analyze this run (0 = all unprocessed)")
	cfg, logger, s := setup(fs, os.Args[2:])
	defer s.Close()
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	ingestor := ingest.NewIngestor(s, cfg.PDFDir, logger)
	papers, err := ingestor.RegisterNew(ctx)
	if err != nil {
		logger.Fatal("Ingest failed", zap.Error(err))
	}
	fmt.Printf("Registered %d new paper(s)\n", len(papers))

	cons, index := newConsolidator(cfg, s, logger)
	if index != nil {
		defer index.Close()
	}
	results, err := cons.Run(ctx, *limit)
	if err != nil {
		logger.Fatal("Analyze failed", zap.Error(err))
	}
	printResults(results)
}

func printResults(results []*consolidate.Result) {
	committed := 0
	for _, r := range results {
		status := "skipped"
		if r.Committed {
			status = "committed"
			committed++
		}
		fmt.Printf("  %s: %s (%d stored, %d rejected, %d new relations)\n",
			r.Filename, status, r.Stored, r.Rejected, r.NewRelations)
	}
	fmt.Printf("Processed %d paper(s), %d committed\n", len(results), committed)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	top := fs.Int("top", 0, "list the N most frequent concepts")
	categories := fs.Bool("categories", false, "group concepts by category")
	year := fs.Int("year", 0, "concepts for papers of one year")
	concept := fs.String("concept", "", "full detail for one concept by name")
	trends := fs.Bool("trends", false, "per-year occurrence trends")
	cooccur := fs.Bool("cooccur", false, "most frequent concept pairs")
	searchTerm := fs.String("search", "", "search concepts by substring")
	output := fs.String("output", "text", "output format: text or json")
	_, logger, s := setup(fs, os.Args[2:])
	defer s.Close()
	defer logger.Sync()

	format, err := cli.ParseFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	engine := query.NewEngine(s)
	ctx := context.Background()
	w := os.Stdout

	switch {
	case *concept != "":
		d, err := engine.ConceptDetail(ctx, *concept)
		exitOnErr(err)
		exitOnErr(cli.WriteDetail(w, d, format))
	case *categories:
		groups, err := engine.ConceptsByCategory(ctx)
		exitOnErr(err)
		exitOnErr(cli.WriteCategories(w, groups, format))
	case *year > 0:
		freqs, err := engine.ConceptsByYear(ctx, *year)
		exitOnErr(err)
		exitOnErr(cli.WriteFrequencies(w, freqs, format))
	case *trends:
		t, err := engine.Trends(ctx, 10)
		exitOnErr(err)
		exitOnErr(cli.WriteTrends(w, t, format))
	case *cooccur:
		pairs, err := engine.CoOccurrences(ctx, 20)
		exitOnErr(err)
		exitOnErr(cli.WriteCoOccurrences(w, pairs, format))
	case *searchTerm != "":
		concepts, err := engine.Search(ctx, *searchTerm, 20)
		exitOnErr(err)
		for _, c := range concepts {
			fmt.Fprintf(w, "  %-30s %s\n", c.Name, c.Category)
		}
	default:
		n := *top
		if n <= 0 {
			n = 20
		}
		freqs, err := engine.TopConcepts(ctx, n)
		exitOnErr(err)
		exitOnErr(cli.WriteFrequencies(w, freqs, format))
	}
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	cfg, logger, s := setup(fs, os.Args[2:])
	defer s.Close()
	defer logger.Sync()

	index, err := search.NewConceptIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		logger.Fatal("Failed to open search index", zap.Error(err))
	}
	defer index.Close()

	n, err := index.Rebuild(context.Background(), s)
	if err != nil {
		logger.Fatal("Reindex failed", zap.Error(err))
	}
	fmt.Printf("Reindexed %d concept(s)\n", n)
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg, logger, s := setup(fs, os.Args[2:])
	defer s.Close()
	defer logger.Sync()

	index, err := search.NewConceptIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		logger.Warn("Search index unavailable, using substring search", zap.Error(err))
		index = nil
	} else {
		defer index.Close()
	}

	engine := query.NewEngine(s)
	srv := server.NewServer(s, engine, index, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfg, logger, s := setup(fs, os.Args[2:])
	defer s.Close()
	defer logger.Sync()

	cons, index := newConsolidator(cfg, s, logger)
	if index != nil {
		defer index.Close()
	}
	ingestor := ingest.NewIngestor(s, cfg.PDFDir, logger)

	ctx, cancel := signalContext()
	defer cancel()

	// Each settled file is registered and analyzed immediately.
	onPaper := func(path string) {
		paper, err := ingestor.Register(ctx, filepath.Base(path))
		if err != nil {
			logger.Warn("watch: skipping file", zap.String("path", path), zap.Error(err))
			return
		}
		if paper.Processed() {
			return
		}
		if _, err := cons.ProcessPaper(ctx, paper); err != nil {
			logger.Warn("watch: paper failed", zap.String("path", path), zap.Error(err))
		}
	}

	dirs := cfg.Watch.Directories
	if len(dirs) == 0 {
		dirs = []string{cfg.PDFDir}
	}
	w := watcher.NewWatcher(dirs, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(), onPaper, logger)
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	defer w.Stop()
	w.SyncExistingFiles()

	logger.Info("Watching for papers", zap.Strings("dirs", dirs))
	<-ctx.Done()
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_, logger, s := setup(fs, os.Args[2:])
	defer s.Close()
	defer logger.Sync()

	stats, err := s.Stats(context.Background())
	if err != nil {
		logger.Fatal("Status failed", zap.Error(err))
	}
	fmt.Printf("Papers:      %d (%d processed)\n", stats.Papers, stats.ProcessedPapers)
	fmt.Printf("Concepts:    %d\n", stats.Concepts)
	fmt.Printf("Relations:   %d\n", stats.Relations)
	fmt.Printf("Occurrences: %d\n", stats.Occurrences)
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
}
