package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nimbusfs/nimbusfs/pkg/blobstore"
	"github.com/nimbusfs/nimbusfs/pkg/bus"
	"github.com/nimbusfs/nimbusfs/pkg/config"
	"github.com/nimbusfs/nimbusfs/pkg/entitystore"
	"github.com/nimbusfs/nimbusfs/pkg/idgen"
	"github.com/nimbusfs/nimbusfs/pkg/log"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
	"github.com/nimbusfs/nimbusfs/pkg/syncclient"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "nimbusfs-agent",
	Short:   "nimbusfs-agent syncs one local cache against a nimbusfsd server",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a client config file (defaults applied when omitted)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("nimbusfs-agent version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, BuildTime))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadClientConfig(configPath)
	if err != nil {
		return err
	}

	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})

	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return fmt.Errorf("nimbusfs-agent: create cache dir: %w", err)
	}

	tempIDs := idgen.NewTempIDGenerator()
	entities, err := entitystore.OpenInDir(cfg.CacheDir, true, tempIDs.Next)
	if err != nil {
		return fmt.Errorf("nimbusfs-agent: open entity cache: %w", err)
	}
	defer entities.Close()

	blobs, err := blobstore.OpenInDir(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("nimbusfs-agent: open blob cache: %w", err)
	}
	defer blobs.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, err := rpc.Dial(ctx, cfg.ServerAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	cancel()
	if err != nil {
		return fmt.Errorf("nimbusfs-agent: dial %s: %w", cfg.ServerAddr, err)
	}
	defer conn.Close()

	sync := syncclient.New(entities, blobs, rpc.NewClient(conn), tempIDs, false)

	busServer, err := bus.NewServer(cfg.MountPoint, sync)
	if err != nil {
		log.Logger.Warn().Err(err).Msg("management bus unavailable, continuing without it")
	} else {
		defer busServer.Close()
	}

	stopFlush := make(chan struct{})
	go backgroundFlush(sync, cfg.FlushInterval, stopFlush)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info(fmt.Sprintf("received signal %s, flushing and shutting down", sig))
	close(stopFlush)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := sync.FlushAll(shutdownCtx); err != nil {
		log.Logger.Error().Err(err).Msg("error flushing open files on shutdown")
	}
	if err := sync.FlushJournal(shutdownCtx); err != nil {
		log.Logger.Error().Err(err).Msg("error flushing journal on shutdown")
	}
	return nil
}

// backgroundFlush runs the journal-flush algorithm on a timer,
// independent of the one-shot offline->online trigger the bus adapter
// sets: a long-lived online session still wants its journal drained
// periodically rather than growing unbounded between operations.
func backgroundFlush(sync *syncclient.Client, interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if sync.Offline() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if err := sync.FlushJournal(ctx); err != nil {
				log.Logger.Warn().Err(err).Msg("periodic journal flush failed")
			}
			cancel()
		}
	}
}
