package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"inyourbones/newsdesk/internal/artifact"
	"inyourbones/newsdesk/internal/config"
	"inyourbones/newsdesk/internal/database"
	importfeeds "inyourbones/newsdesk/internal/import"
	"inyourbones/newsdesk/internal/llm"
	"inyourbones/newsdesk/internal/pipeline"
	"inyourbones/newsdesk/internal/rowstore"
	"inyourbones/newsdesk/internal/scrape"
	"inyourbones/newsdesk/internal/server"
	"inyourbones/newsdesk/internal/sms"
	"inyourbones/newsdesk/internal/syndicate"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

const usageText = `Usage: newsdesk [command] [options]
Commands: import, scrape, select, caption, recap, veto, syndicate, run, server

For command-specific options, use: newsdesk [command] -h`

func main() {
	// Credentials live in a dotenv file in development; absence is fine.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg := config.DefaultConfig()

	var logLevelStr string
	var csvPath string
	var allHistory bool
	var resetDB bool

	newFlagSet := func(name string) *flag.FlagSet {
		fs := flag.NewFlagSet(name, flag.ExitOnError)
		fs.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSDESK_DB_PATH", config.DefaultDBPath),
			"Path to the SQLite database file (env: NEWSDESK_DB_PATH)")
		fs.StringVar(&cfg.DataDir, "data", config.GetEnvString("NEWSDESK_DATA_DIR", config.DefaultDataDir),
			"Directory for pipeline artifacts (env: NEWSDESK_DATA_DIR)")
		fs.StringVar(&cfg.Timezone, "tz", config.GetEnvString("NEWSDESK_TZ", config.DefaultTimezone),
			"Reference timezone for day boundaries (env: NEWSDESK_TZ)")
		fs.StringVar(&logLevelStr, "log-level", config.GetEnvString("NEWSDESK_LOG_LEVEL", config.DefaultLogLevel),
			"Log level: debug, info, warn, error (env: NEWSDESK_LOG_LEVEL)")
		return fs
	}

	importCmd := newFlagSet("import")
	importCmd.StringVar(&csvPath, "csv", config.GetEnvString("NEWSDESK_FEEDS_CSV", config.DefaultFeedsCSV),
		"Path to the feeds CSV file (env: NEWSDESK_FEEDS_CSV)")
	importCmd.BoolVar(&resetDB, "reset", false,
		"Delete the existing database and start from a clean slate before importing")

	scrapeCmd := newFlagSet("scrape")
	scrapeCmd.StringVar(&cfg.FiltersPath, "filters", config.GetEnvString("NEWSDESK_FILTERS_PATH", config.DefaultFiltersPath),
		"Path to the exclude-keyword filters file (env: NEWSDESK_FILTERS_PATH)")
	scrapeCmd.IntVar(&cfg.MaxResults, "max-results", config.GetEnvInt("NEWSDESK_MAX_RESULTS", config.DefaultMaxResults),
		"Maximum articles ingested per day (env: NEWSDESK_MAX_RESULTS)")
	scrapeCmd.IntVar(&cfg.WorkerCount, "workers", config.GetEnvInt("NEWSDESK_WORKER_COUNT", config.DefaultWorkerCount),
		"Number of concurrent feed fetches (env: NEWSDESK_WORKER_COUNT)")

	selectCmd := newFlagSet("select")
	selectCmd.IntVar(&cfg.TopCount, "count", config.GetEnvInt("NEWSDESK_TOP_COUNT", config.DefaultTopCount),
		"Number of articles in the daily selection (env: NEWSDESK_TOP_COUNT)")

	captionCmd := newFlagSet("caption")
	recapCmd := newFlagSet("recap")
	vetoCmd := newFlagSet("veto")

	syndicateCmd := newFlagSet("syndicate")
	syndicateCmd.BoolVar(&allHistory, "all", config.GetEnvBool("NEWSDESK_SYNDICATE_ALL", false),
		"Emit the full approved history instead of the recent window (env: NEWSDESK_SYNDICATE_ALL)")

	runCmd := newFlagSet("run")
	runCmd.StringVar(&cfg.FiltersPath, "filters", config.GetEnvString("NEWSDESK_FILTERS_PATH", config.DefaultFiltersPath),
		"Path to the exclude-keyword filters file (env: NEWSDESK_FILTERS_PATH)")
	runCmd.IntVar(&cfg.TopCount, "count", config.GetEnvInt("NEWSDESK_TOP_COUNT", config.DefaultTopCount),
		"Number of articles in the daily selection (env: NEWSDESK_TOP_COUNT)")

	serverCmd := newFlagSet("server")
	serverCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("NEWSDESK_HOST", config.DefaultServerHost),
		"Host to bind the server to (env: NEWSDESK_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("NEWSDESK_PORT", config.DefaultServerPort),
		"Port to listen on (env: NEWSDESK_PORT)")

	commands := map[string]*flag.FlagSet{
		"import":    importCmd,
		"scrape":    scrapeCmd,
		"select":    selectCmd,
		"caption":   captionCmd,
		"recap":     recapCmd,
		"veto":      vetoCmd,
		"syndicate": syndicateCmd,
		"run":       runCmd,
		"server":    serverCmd,
	}

	if len(os.Args) < 2 {
		fmt.Println(usageText)
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "-h", "--help", "help":
		fmt.Println(usageText)
		os.Exit(0)
	}

	cmd, ok := commands[name]
	if !ok {
		log.Error().Str("command", name).Msg("Unknown command")
		fmt.Println(usageText)
		os.Exit(1)
	}

	cmd.Parse(os.Args[2:])

	if level, err := zerolog.ParseLevel(logLevelStr); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	var err error
	switch name {
	case "import":
		err = runImport(cfg, csvPath, resetDB)
	case "syndicate":
		err = runSyndicate(cfg, allHistory)
	case "server":
		err = runServer(cfg)
	default:
		err = runStage(cfg, name)
	}

	if err != nil {
		var missing *artifact.ErrMissing
		if errors.As(err, &missing) {
			log.Error().Str("artifact", missing.Path).Msg("Missing input artifact, run the preceding stage first")
		} else {
			log.Error().Err(err).Str("command", name).Msg("Command failed")
		}
		os.Exit(1)
	}
}

// runImport imports feeds from a CSV file into the registry, optionally
// recreating the database first.
func runImport(cfg *config.Config, csvPath string, reset bool) error {
	if reset {
		if _, err := os.Stat(cfg.DBPath); err == nil {
			fmt.Printf("Database %s exists. All tables and registry state will be lost.\n", cfg.DBPath)
			fmt.Print("Delete and recreate? (y/N): ")

			var answer string
			fmt.Scanln(&answer)

			if strings.ToLower(answer) != "y" {
				log.Info().Msg("Operation canceled by user")
				return fmt.Errorf("operation canceled by user")
			}

			if err := database.DeleteDB(cfg.DBPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			log.Info().Str("path", cfg.DBPath).Msg("Deleted existing database")
		}
	}

	db, err := openDB(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	importer := importfeeds.NewImporter(db)
	return importer.ImportFeeds(csvPath)
}

// runStage builds a pipeline wired with just what the named stage needs and
// invokes it.
func runStage(cfg *config.Config, name string) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := openDB(cfg, false)
	if err != nil {
		return err
	}
	defer db.Close()

	p := &pipeline.Pipeline{
		Cfg:   cfg,
		Store: rowstore.NewSQLiteStore(db),
		Loc:   loc,
	}

	needsScraper := name == "scrape" || name == "run"
	needsGen := name == "select" || name == "caption" || name == "run"
	needsSMS := name == "recap" || name == "veto"

	if needsScraper {
		filters, err := config.LoadFilters(cfg.FiltersPath)
		if err != nil {
			return err
		}
		p.Scraper = scrape.New(db, loc, filters.ExcludedKeywords, cfg.MaxResults, cfg.WorkerCount)
	}
	if needsGen {
		gen, err := llm.NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIModel)
		if err != nil {
			return err
		}
		p.Gen = gen
	}
	if needsSMS {
		client, err := sms.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
		if err != nil {
			return err
		}
		p.SMS = client
	}

	timeout := config.GetEnvDuration("NEWSDESK_STAGE_TIMEOUT", 30*time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch name {
	case "scrape":
		return p.Scrape(ctx)
	case "select":
		return p.Select(ctx)
	case "caption":
		return p.Caption(ctx)
	case "recap":
		return p.Recap(ctx)
	case "veto":
		return p.Veto(ctx)
	case "run":
		return p.Run(ctx)
	}
	return fmt.Errorf("unknown stage %q", name)
}

// runSyndicate emits the output feed: either the current reviewed batch or
// the full approved history.
func runSyndicate(cfg *config.Config, allHistory bool) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if !allHistory {
		p := &pipeline.Pipeline{Cfg: cfg, Loc: loc}
		return p.Syndicate(ctx)
	}

	db, err := openDB(cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	articles, err := syndicate.History(ctx, rowstore.NewSQLiteStore(db))
	if err != nil {
		return err
	}

	info := syndicate.ChannelInfo{
		Title:       cfg.FeedTitle,
		Link:        cfg.SiteURL,
		Description: cfg.FeedDescription,
	}
	return syndicate.Write(cfg.ArtifactPath(config.FeedAllOutputFile), info, articles, time.Now().In(loc))
}

// runServer starts the HTTP API server with the provided configuration.
func runServer(cfg *config.Config) error {
	db, err := openDB(cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	return server.RunServer(db, cfg.ListenAddr(), log.Logger, cfg.APIKey)
}

func openDB(cfg *config.Config, readOnly bool) (*database.DB, error) {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = readOnly

	db, err := database.NewDB(dbCfg)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}
