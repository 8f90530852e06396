package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nimbusfs/nimbusfs/pkg/api"
	"github.com/nimbusfs/nimbusfs/pkg/blobstore"
	"github.com/nimbusfs/nimbusfs/pkg/config"
	"github.com/nimbusfs/nimbusfs/pkg/entitystore"
	"github.com/nimbusfs/nimbusfs/pkg/idgen"
	"github.com/nimbusfs/nimbusfs/pkg/log"
	"github.com/nimbusfs/nimbusfs/pkg/serverfs"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "nimbusfsd",
	Short:   "nimbusfsd is the authoritative NimbusFS server",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a server config file (defaults applied when omitted)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("nimbusfsd version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, BuildTime))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}

	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("nimbusfsd: create data dir: %w", err)
	}

	entities, err := entitystore.OpenInDir(cfg.DataDir, false, idgen.NewAuthoritativeID)
	if err != nil {
		return fmt.Errorf("nimbusfsd: open entity store: %w", err)
	}
	defer entities.Close()

	blobs, err := blobstore.OpenInDir(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("nimbusfsd: open blob store: %w", err)
	}
	defer blobs.Close()

	fs := serverfs.New(entities, blobs)

	grpcServer := api.NewServer(fs)
	healthServer := api.NewHealthServer(fs)

	errCh := make(chan error, 2)
	go func() { errCh <- grpcServer.Start(cfg.ListenAddr) }()
	go func() { errCh <- healthServer.Start(cfg.HealthAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info(fmt.Sprintf("received signal %s, shutting down", sig))
		grpcServer.Stop()
		return nil
	}
}
