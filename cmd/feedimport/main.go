package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsblog/pkg/bootstrap"
	"newsblog/pkg/config"
	"newsblog/pkg/feedimportservice"
	"newsblog/pkg/httpclient"
	"newsblog/pkg/logging"
	"newsblog/pkg/parser"
	"newsblog/pkg/worker"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Config file path (default: $CONFIG_PATH or ./newsblog.yaml)")
		namespace   = flag.String("ns", "", "Namespace to import into")
		sourcesFile = flag.String("sources-file", "", "File with one feed, sitemap, index page or URL-list path per line")
		max         = flag.Int("max", -1, "Max new entries per source (<0 uses config, 0 means no limit)")
		workers     = flag.Int("workers", 0, "Number of parallel article workers (default from config)")
		fullText    = flag.Bool("full-text", false, "Fetch every article page instead of trusting feed summaries")
		publish     = flag.Bool("publish", false, "Mark imported articles as published")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	bootstrap.InitLogging(cfg.Log)
	log := logging.With().Str("component", "feedimport").Logger()

	if *namespace == "" {
		log.Fatal().Msg("-ns is required")
	}

	sources := flag.Args()
	if *sourcesFile != "" {
		lines, err := parser.ReadLines(*sourcesFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *sourcesFile).Msg("failed to read sources")
		}
		sources = append(sources, lines...)
	}
	if len(sources) == 0 {
		log.Fatal().Msg("no sources given")
	}

	importCfg := cfg.Import
	if *max >= 0 {
		importCfg.MaxEntries = *max
	}
	if *workers > 0 {
		importCfg.Workers = *workers
	}
	importCfg.FetchFullText = importCfg.FetchFullText || *fullText
	importCfg.Publish = importCfg.Publish || *publish

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := bootstrap.Open(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer closeRepo()

	client := httpclient.NewClient(httpclient.ParseClientType(importCfg.ClientType), importCfg.Timeout)
	chain := parser.Chain{
		parser.NewFileParser(),
		parser.NewFeedParser(client),
		parser.NewSitemapParser(client),
		parser.NewHTMLParser(client, importCfg.LinkSelector),
	}

	service, err := feedimportservice.NewService(repo, chain, worker.NewWorker(client, importCfg.LeadInLength), feedimportservice.Config{
		Namespace:     *namespace,
		FeedWorkers:   importCfg.FeedWorkers,
		Workers:       importCfg.Workers,
		MaxEntries:    importCfg.MaxEntries,
		FetchFullText: importCfg.FetchFullText,
		Publish:       importCfg.Publish,
		LeadInLength:  importCfg.LeadInLength,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create import service")
	}

	start := time.Now()
	log.Info().Str("namespace", *namespace).Int("sources", len(sources)).Msg("importing")
	result, err := service.Import(ctx, sources)
	if err != nil {
		log.Error().Err(err).Msg("import failed")
		closeRepo()
		os.Exit(1)
	}
	log.Info().
		Uint64("sources", result.Sources).
		Uint64("sources_failed", result.SourcesFailed).
		Uint64("imported", result.Imported).
		Uint64("failed", result.Failed).
		Dur("took", time.Since(start)).
		Msg("done")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
