package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/PostPipe/internal/api"
	"github.com/BTreeMap/PostPipe/internal/content"
	"github.com/BTreeMap/PostPipe/internal/fetch"
	"github.com/BTreeMap/PostPipe/internal/genai"
	"github.com/BTreeMap/PostPipe/internal/lockfile"
	"github.com/BTreeMap/PostPipe/internal/scheduler"
	"github.com/BTreeMap/PostPipe/internal/store"
	"github.com/BTreeMap/PostPipe/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for PostPipe state data
	DefaultStateDir = "/var/lib/postpipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "postpipe.db"
)

// Generation providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags, err := parseCommandLineFlags(config, os.Args[1:])
	if err != nil {
		slog.Error("Failed to parse command line flags", "error", err)
		os.Exit(2)
	}

	if err := run(flags); err != nil {
		slog.Error("PostPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("PostPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir          string
	DatabaseURL       string
	Provider          string
	Model             string
	OpenAIKey         string
	GeminiKey         string
	APIAddr           string
	Debug             bool
	BatchTTL          time.Duration
	GenerationTimeout time.Duration
	PruneSchedule     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir          string
	dbDSN             string
	memory            bool
	provider          string
	model             string
	openaiKey         string
	geminiKey         string
	apiAddr           string
	debug             bool
	batchTTL          time.Duration
	generationTimeout time.Duration
	pruneSchedule     string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:          os.Getenv("POSTPIPE_STATE_DIR"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Provider:          strings.ToLower(strings.TrimSpace(os.Getenv("GENAI_PROVIDER"))),
		Model:             os.Getenv("GENAI_MODEL"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		GeminiKey:         os.Getenv("GEMINI_API_KEY"),
		APIAddr:           os.Getenv("API_ADDR"),
		Debug:             util.ParseBoolEnv("GENAI_DEBUG", false),
		BatchTTL:          util.ParseDurationEnv("POSTPIPE_BATCH_TTL", content.DefaultBatchTTL),
		GenerationTimeout: util.ParseDurationEnv("GENAI_TIMEOUT", api.DefaultGenerationTimeout),
		PruneSchedule:     os.Getenv("POSTPIPE_PRUNE_SCHEDULE"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No POSTPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.PruneSchedule == "" {
		config.PruneSchedule = scheduler.DefaultPruneSchedule
	}
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
		if config.OpenAIKey == "" && config.GeminiKey != "" {
			config.Provider = ProviderGemini
		}
		slog.Debug("No GENAI_PROVIDER set, inferred from API keys", "provider", config.Provider)
	}

	slog.Debug("environment variables loaded",
		"POSTPIPE_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"GENAI_PROVIDER", config.Provider,
		"GENAI_MODEL", config.Model,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"GEMINI_API_KEY_SET", config.GeminiKey != "",
		"API_ADDR", config.APIAddr,
		"GENAI_DEBUG", config.Debug)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config, args []string) (Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("postpipe", flag.ContinueOnError)
	fs.StringVar(&flags.stateDir, "state-dir", config.StateDir, "state directory for PostPipe data (overrides $POSTPIPE_STATE_DIR)")
	fs.StringVar(&flags.dbDSN, "db-dsn", config.DatabaseURL, "PostgreSQL DSN or SQLite path; defaults to <state-dir>/"+DefaultDBFileName+" (overrides $DATABASE_URL)")
	fs.BoolVar(&flags.memory, "memory", false, "keep brands and saved posts in memory only")
	fs.StringVar(&flags.provider, "provider", config.Provider, "generation provider: openai or gemini (overrides $GENAI_PROVIDER)")
	fs.StringVar(&flags.model, "model", config.Model, "model name for the selected provider (overrides $GENAI_MODEL)")
	fs.StringVar(&flags.openaiKey, "openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)")
	fs.StringVar(&flags.geminiKey, "gemini-api-key", config.GeminiKey, "Gemini API key (overrides $GEMINI_API_KEY)")
	fs.StringVar(&flags.apiAddr, "api-addr", config.APIAddr, "API server address (overrides $API_ADDR)")
	fs.BoolVar(&flags.debug, "debug", config.Debug, "write generation requests and responses under <state-dir>/debug (overrides $GENAI_DEBUG)")
	fs.DurationVar(&flags.batchTTL, "batch-ttl", config.BatchTTL, "how long an untouched batch is kept (overrides $POSTPIPE_BATCH_TTL)")
	fs.DurationVar(&flags.generationTimeout, "generation-timeout", config.GenerationTimeout, "timeout for one generation request (overrides $GENAI_TIMEOUT)")
	fs.StringVar(&flags.pruneSchedule, "prune-schedule", config.PruneSchedule, "cron schedule for removing expired batches; empty disables (overrides $POSTPIPE_PRUNE_SCHEDULE)")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	flags.provider = strings.ToLower(strings.TrimSpace(flags.provider))
	if flags.provider != ProviderOpenAI && flags.provider != ProviderGemini {
		return Flags{}, fmt.Errorf("unknown provider %q (want %s or %s)", flags.provider, ProviderOpenAI, ProviderGemini)
	}
	if flags.dbDSN == "" && !flags.memory {
		flags.dbDSN = filepath.Join(flags.stateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", flags.dbDSN)
	}

	slog.Debug("flags parsed",
		"stateDir", flags.stateDir,
		"dbDSN_set", flags.dbDSN != "",
		"memory", flags.memory,
		"provider", flags.provider,
		"model", flags.model,
		"apiAddr", flags.apiAddr,
		"debug", flags.debug,
		"batchTTL", flags.batchTTL,
		"generationTimeout", flags.generationTimeout,
		"pruneSchedule", flags.pruneSchedule)
	return flags, nil
}

// run wires the modules together and serves the API until SIGINT or SIGTERM.
func run(flags Flags) error {
	lock, err := lockfile.Acquire(flags.stateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(flags)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
	}()

	backend, err := newBackend(ctx, flags)
	if err != nil {
		return err
	}

	client := content.NewGenerationClient(backend, content.WithFetcher(fetch.New()))
	gen := content.NewGenerator(client)
	sessions := content.NewSessions(content.WithBatchTTL(flags.batchTTL))
	server := api.NewServer(st, gen, buildAPIOptions(flags, sessions)...)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := schedulePruning(sched, sessions, flags.pruneSchedule); err != nil {
		return err
	}

	slog.Info("Bootstrapping PostPipe with configured modules", "provider", flags.provider, "memory", flags.memory)
	return server.Run(ctx)
}

// schedulePruning removes expired batches on the given cron schedule.
func schedulePruning(sched *scheduler.Scheduler, sessions *content.Sessions, expr string) error {
	if expr == "" {
		slog.Debug("Batch pruning disabled")
		return nil
	}
	return sched.AddJob("prune-batches", expr, func() {
		if n := sessions.Prune(); n > 0 {
			slog.Info("Pruned expired batches", "count", n, "remaining", sessions.Len())
		}
	})
}

// openStore opens the store selected by the flags.
func openStore(flags Flags) (store.Store, error) {
	if flags.memory {
		slog.Debug("Using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	opts := buildStoreOptions(flags)
	if store.DetectDSNType(flags.dbDSN) == "postgres" {
		return store.NewPostgresStore(opts...)
	}
	return store.NewSQLiteStore(opts...)
}

// newBackend creates the generation backend for the configured provider.
func newBackend(ctx context.Context, flags Flags) (content.Backend, error) {
	opts := buildGenAIOptions(flags)
	switch flags.provider {
	case ProviderGemini:
		return genai.NewGeminiClient(ctx, opts...)
	case ProviderOpenAI:
		return genai.NewClient(opts...)
	}
	return nil, errors.New("no generation provider configured")
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if flags.dbDSN == "" {
		return storeOpts
	}
	if store.DetectDSNType(flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		storeOpts = append(storeOpts, store.WithPostgresDSN(flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(flags.dbDSN))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options for the selected provider
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	switch flags.provider {
	case ProviderGemini:
		if flags.geminiKey != "" {
			genaiOpts = append(genaiOpts, genai.WithAPIKey(flags.geminiKey))
		}
	default:
		if flags.openaiKey != "" {
			genaiOpts = append(genaiOpts, genai.WithAPIKey(flags.openaiKey))
		}
	}
	if flags.model != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(flags.model))
	}
	if flags.debug {
		genaiOpts = append(genaiOpts, genai.WithDebugMode(true), genai.WithStateDir(flags.stateDir))
	}
	return genaiOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, sessions *content.Sessions) []api.Option {
	apiOpts := []api.Option{api.WithSessions(sessions)}
	if flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(flags.apiAddr))
	}
	if flags.generationTimeout > 0 {
		apiOpts = append(apiOpts, api.WithGenerationTimeout(flags.generationTimeout))
	}
	return apiOpts
}
