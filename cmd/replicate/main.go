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
	"newsblog/pkg/logging"
	"newsblog/pkg/replication"
)

func main() {
	var (
		sourceConfig = flag.String("source-config", "", "Config file of the source storage")
		targetConfig = flag.String("target-config", "", "Config file of the target storage")
		namespace    = flag.String("ns", "", "Namespace to copy")
		targetNS     = flag.String("target-ns", "", "Namespace in the target (default: same as -ns)")
		batchSize    = flag.Int("batch", 100, "Articles per batch")
		workers      = flag.Int("workers", 5, "Number of parallel batch workers")
	)
	flag.Parse()

	if *sourceConfig == "" || *targetConfig == "" || *namespace == "" {
		fmt.Fprintln(os.Stderr, "usage: replicate -source-config src.yaml -target-config dst.yaml -ns <namespace> [-target-ns <namespace>]")
		os.Exit(2)
	}

	srcCfg, err := config.LoadFrom(*sourceConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "source config: %v\n", err)
		os.Exit(1)
	}
	dstCfg, err := config.LoadFrom(*targetConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "target config: %v\n", err)
		os.Exit(1)
	}
	bootstrap.InitLogging(srcCfg.Log)
	log := logging.With().Str("component", "replicate").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := bootstrap.Open(ctx, srcCfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open source storage")
	}
	defer closeSource()

	target, closeTarget, err := bootstrap.Open(ctx, dstCfg.Storage)
	if err != nil {
		closeSource()
		log.Fatal().Err(err).Msg("failed to open target storage")
	}
	defer closeTarget()

	replicator, err := replication.NewReplicator(replication.Config{
		Source:          source,
		Target:          target,
		TargetNamespace: *targetNS,
		BatchSize:       *batchSize,
		Workers:         *workers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create replicator")
	}

	start := time.Now()
	log.Info().
		Str("from", srcCfg.Storage.Backend).
		Str("to", dstCfg.Storage.Backend).
		Str("namespace", *namespace).
		Msg("replicating")
	stats, err := replicator.ReplicateNamespace(ctx, *namespace)
	if err != nil {
		log.Error().Err(err).Msg("replication failed")
		closeTarget()
		closeSource()
		os.Exit(1)
	}
	log.Info().
		Int("processed", stats.Processed).
		Int("copied", stats.Copied).
		Int("skipped", stats.Skipped).
		Dur("took", time.Since(start)).
		Msg("done")
}
