package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/lucasvanbramer/talkpipeline/internal/common"
	"github.com/lucasvanbramer/talkpipeline/internal/config"
	"github.com/lucasvanbramer/talkpipeline/internal/ledger"
	"github.com/lucasvanbramer/talkpipeline/internal/logger"
	"github.com/lucasvanbramer/talkpipeline/internal/mediawiki"
	"github.com/lucasvanbramer/talkpipeline/internal/metrics"
	"github.com/lucasvanbramer/talkpipeline/internal/pipeline"
	pkgconfig "github.com/lucasvanbramer/talkpipeline/pkg/config"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║            talkpipeline v%s              ║
║   Wiki Talk-Page Conversation Reconstructor ║
╚═══════════════════════════════════════════╝
`
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "talkpipeline",
	Short:   "talkpipeline reconstructs threaded conversations from a wiki talk page's revision history",
	Version: version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "fetch outstanding revisions and rebuild the corpus from scratch or from the cache",
	RunE:  runRun,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "alias for run; the pipeline always resumes from the cached intermediate state",
	RunE:  runRun,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "run the pipeline for the configured page and print a summary of the resulting corpus",
	RunE:  runShow,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "print the JSON schema for the configuration file format",
	RunE:  runSchema,
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "vacuum the ledger database and report its size on disk",
	RunE:  runCompact,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(runCmd, resumeCmd, showCmd, schemaCmd, compactCmd)
}

func runSchema(cmd *cobra.Command, args []string) error {
	reflector := &jsonschema.Reflector{}
	schema := reflector.Reflect(&pkgconfig.Config{})
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render schema: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	log := logger.NewComponentLoggerFromConfig(common.ComponentCLI, cfg.Logging)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(&cfg.Metrics)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(ctx); err != nil {
				log.Warnf("failed to stop metrics server: %v", err)
			}
		}()
		log.Infof("metrics server started on %s", cfg.Metrics.Addr)
	}

	var ledgerStore *ledger.Ledger
	if cfg.Ledger.DB.Path != "" {
		ledgerStore, err = ledger.Open(cfg.Ledger, logger.NewComponentLoggerFromConfig(common.ComponentLedger, cfg.Logging))
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		defer ledgerStore.Close()
	}

	client := mediawiki.NewClient(cfg.MediaWiki, &cfg.Retry)

	p := pipeline.New(*cfg, client, ledgerStore, logger.NewComponentLoggerFromConfig(common.ComponentPipeline, cfg.Logging))

	log.Infof("running pipeline for %q...", cfg.Title)

	result, err := p.Run(ctx, func(done, total int) {
		log.Infof("applied revision %d/%d", done, total)
	})
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	log.Infof("done: %d revisions applied, %d blocks in store, %d utterances assembled",
		len(result.Revisions), result.Store.Len(), len(result.Corpus.Utterances))

	return nil
}

func runCompact(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Ledger.DB.Path == "" {
		return fmt.Errorf("no ledger configured for %q, nothing to compact", configPath)
	}

	log := logger.NewComponentLoggerFromConfig(common.ComponentLedger, cfg.Logging)
	ledgerStore, err := ledger.Open(cfg.Ledger, log)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledgerStore.Close()

	size, err := ledgerStore.Compact()
	if err != nil {
		return fmt.Errorf("failed to compact ledger: %w", err)
	}

	fmt.Printf("ledger compacted: %d MB on disk\n", common.BytesToMB(uint64(size)))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewComponentLoggerFromConfig(common.ComponentCLI, cfg.Logging)

	client := mediawiki.NewClient(cfg.MediaWiki, &cfg.Retry)
	p := pipeline.New(*cfg, client, nil, log)

	result, err := p.Run(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	fmt.Printf("%s: %d utterances\n", cfg.Title, len(result.Corpus.Utterances))
	for _, utt := range result.Corpus.Utterances {
		replyNote := "(root)"
		if utt.HasReply {
			replyNote = "-> " + utt.ReplyTo
		}
		fmt.Printf("  [%s] %s %s\n", utt.ID[:8], utt.Timestamp.Format("2006-01-02"), replyNote)
	}

	return nil
}
