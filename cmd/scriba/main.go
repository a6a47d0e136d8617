package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scriba/internal/common"
	"github.com/ternarybob/scriba/internal/interfaces"
	"github.com/ternarybob/scriba/internal/models"
	"github.com/ternarybob/scriba/internal/services/converter"
	"github.com/ternarybob/scriba/internal/services/credentials"
	"github.com/ternarybob/scriba/internal/services/extractor"
	"github.com/ternarybob/scriba/internal/services/fetcher"
	"github.com/ternarybob/scriba/internal/services/llm"
	"github.com/ternarybob/scriba/internal/services/pipeline"
	"github.com/ternarybob/scriba/internal/services/vault"
	"github.com/ternarybob/scriba/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles     configPaths // Multiple -config flags supported
	backfillDays    = flag.Int("backfill", 0, "Re-fetch the last N days regardless of checkpoint")
	docID           = flag.String("doc-id", "", "Process a single document by id")
	maxIterations   = flag.Int("max-iterations", 0, "Cap the number of documents processed this run")
	dryRun          = flag.Bool("dry-run", false, "Fetch and convert without writing notes or advancing the checkpoint")
	noLLM           = flag.Bool("no-llm", false, "Skip LLM enrichment; write basic notes only")
	credentialsPath = flag.String("credentials", "", "Credentials file path (default: ~/.config/scriba/credentials.toml)")
	showHistory     = flag.Bool("history", false, "Print recent run summaries and exit")
	showVersion     = flag.Bool("version", false, "Print version information")
	showVersionV    = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Scriba version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("scriba.toml"); err == nil {
			configFiles = append(configFiles, "scriba.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("state_dir", config.Sync.StateDir).
		Str("log_level", config.Logging.Level).
		Msg("Application configuration loaded")

	if *showHistory {
		os.Exit(printHistory())
	}

	os.Exit(run())
}

// run wires the pipeline and executes one invocation. Returns the process
// exit code: zero on a completed run (including per-document failures and
// the lock-held no-op), non-zero on startup failure.
func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	resolver, err := credentials.NewFileResolver(*credentialsPath, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize credential resolver")
		return 1
	}

	creds, err := resolver.Resolve(ctx)
	if err != nil {
		if errors.Is(err, models.ErrCredentialsNotFound) {
			logger.Error().Msg("No credentials found; write ~/.config/scriba/credentials.toml or set SCRIBA_VAULT_PATH and an access token")
		} else {
			logger.Error().Err(err).Msg("Failed to resolve credentials")
		}
		return 1
	}
	if creds.VaultPath != "" {
		config.Vault.Path = creds.VaultPath
	}

	fetchSvc := fetcher.NewService(config, creds.AccessToken, logger)
	convSvc := converter.NewService(logger)

	writer, err := vault.NewWriter(config.Vault.Path, config.Vault.Subdir, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize vault writer")
		return 1
	}

	checkpoints, err := pipeline.NewFileCheckpointStore(config.Sync.StateDir, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize checkpoint store")
		return 1
	}

	lock, err := pipeline.NewFileRunLock(config.Sync.StateDir, config.LockTTLDuration(), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize run lock")
		return 1
	}

	// Enrichment is optional: no key or -no-llm means basic notes only.
	var extractSvc interfaces.Extractor
	var consolidateSvc interfaces.Consolidator
	llmKey := config.Claude.APIKey
	if creds.LLMAPIKey != "" {
		llmKey = creds.LLMAPIKey
	}
	enrich := config.Sync.EnrichmentEnabled && !*noLLM && llmKey != ""
	var llmSvc interfaces.LLMService
	if enrich {
		claudeConfig := config.Claude
		claudeConfig.APIKey = llmKey
		llmSvc, err = llm.NewClaudeService(&claudeConfig, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("LLM service unavailable; enrichment disabled for this run")
			enrich = false
		} else {
			defer llmSvc.Close()
			extractSvc = extractor.NewService(llmSvc, logger)
			consolidateSvc = extractor.NewConsolidator(llmSvc, config.Sync.ConsolidationThreshold, logger)
		}
	} else {
		logger.Info().Msg("Enrichment disabled; writing basic notes only")
	}

	// Run history is best-effort: a storage failure never blocks the sync.
	var history interfaces.RunHistoryStorage
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		logger.Warn().Err(err).Msg("Run history storage unavailable; summaries will not be persisted")
	} else {
		defer db.Close()
		history = badger.NewRunStorage(db, logger)
	}

	orch := pipeline.NewOrchestrator(config, fetchSvc, convSvc, writer, extractSvc, consolidateSvc, checkpoints, lock, history, logger)

	opts := pipeline.RunOptions{
		Mode:          models.RunModeSync,
		MaxIterations: *maxIterations,
		DryRun:        *dryRun,
		Enrich:        enrich,
	}
	switch {
	case *docID != "":
		opts.Mode = models.RunModeDocument
		opts.DocID = *docID
	case *backfillDays > 0:
		opts.Mode = models.RunModeBackfill
		opts.BackfillDays = *backfillDays
	}

	summary, err := orch.Run(ctx, opts)
	if err != nil {
		if errors.Is(err, models.ErrLockHeld) {
			// Another run is live; exiting clean keeps schedulers quiet.
			return 0
		}
		logger.Error().Err(err).Msg("Run failed")
		return 1
	}

	fmt.Printf("Run %s complete: %d fetched, %d created, %d enriched, %d skipped, %d failed\n",
		summary.ID, summary.Fetched, summary.Created, summary.Enriched, summary.Skipped, summary.Failed)
	return 0
}

// printHistory lists recent run summaries from the history store.
func printHistory() int {
	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open run history storage")
		return 1
	}
	defer db.Close()

	history := badger.NewRunStorage(db, logger)
	runs, err := history.ListRuns(context.Background(), 20)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list run history")
		return 1
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return 0
	}

	for _, r := range runs {
		fmt.Printf("%s  %-8s  %s  fetched=%d created=%d enriched=%d skipped=%d failed=%d\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Mode, r.Duration().Round(time.Second), r.Fetched, r.Created, r.Enriched, r.Skipped, r.Failed)
	}
	return 0
}
