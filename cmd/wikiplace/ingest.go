// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/wikiplace/internal/classes"
	"github.com/pdiddy/wikiplace/internal/extract"
	"github.com/pdiddy/wikiplace/internal/input"
	"github.com/pdiddy/wikiplace/internal/metrics"
	"github.com/pdiddy/wikiplace/internal/pipeline"
	"github.com/pdiddy/wikiplace/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source]",
	Short: "Extract facts from a Wikidata dump into the database",
	Long: `Ingest streams a Wikidata JSON dump (a local path or an http(s) URL,
plain, .gz or .bz2) and writes the extracted facts to SQLite. The class
index is loaded from the cache or fetched from the query service first;
if that fails nothing is ingested.

Interrupting the run stops reading; records already admitted are still
written before the command exits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("workers", 0, "concurrent extraction workers (default: number of CPUs)")
	ingestCmd.Flags().Int("fact-buffer", 0, "capacity of the fact channel")
	ingestCmd.Flags().Duration("progress-interval", 0, "minimum time between progress reports")
	ingestCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	ingestCmd.Flags().Bool("refresh-classes", false, "fetch the class index even if the cache is fresh")

	viper.BindPFlag("pipeline.workers", ingestCmd.Flags().Lookup("workers"))
	viper.BindPFlag("pipeline.fact_buffer", ingestCmd.Flags().Lookup("fact-buffer"))
	viper.BindPFlag("pipeline.progress_interval", ingestCmd.Flags().Lookup("progress-interval"))
	viper.BindPFlag("metrics_addr", ingestCmd.Flags().Lookup("metrics-addr"))

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Source.Locator = args[0]
	}
	refresh, _ := cmd.Flags().GetBool("refresh-classes")
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx, err := classes.Load(ctx, &http.Client{Timeout: cfg.Classes.Timeout}, cfg.Classes, refresh, logger)
	if err != nil {
		return fmt.Errorf("building class index: %w", err)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewPipeline(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, logger); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	src, err := input.Open(ctx, &http.Client{Timeout: cfg.Source.Timeout}, cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	runID, err := st.BeginRun(ctx, cfg.Source.Locator, time.Now())
	if err != nil {
		return err
	}
	logger.Info("ingest started", "run", runID, "source", cfg.Source.Locator)

	p := pipeline.New(extract.New(idx, logger), st, cfg.Pipeline, logger, m)
	summary, runErr := p.Run(ctx, src)

	finished := time.Now()
	if err := st.FinishRun(context.WithoutCancel(ctx), store.Run{
		ID:           runID,
		FinishedAt:   &finished,
		State:        summary.StopReason.String(),
		Lines:        summary.Lines,
		Records:      summary.Records,
		Facts:        summary.Facts,
		RecordErrors: summary.RecordErrors,
		SendFailures: summary.SendFailures,
	}); err != nil {
		logger.Error("recording run outcome failed", "run", runID, "error", err)
	}

	printSummary(cmd, runID, summary)
	if runErr != nil {
		return fmt.Errorf("ingest %s: %w", summary.StopReason, runErr)
	}
	return nil
}

func printSummary(cmd *cobra.Command, runID string, s pipeline.Summary) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\nrun %s: %s after %s\n", runID, s.StopReason, s.Elapsed.Round(time.Second))
	fmt.Fprintf(w, "lines: %s, records: %s, facts: %s, record errors: %s, send failures: %s\n",
		humanize.Comma(s.Lines), humanize.Comma(s.Records), humanize.Comma(s.Facts),
		humanize.Comma(s.RecordErrors), humanize.Comma(s.SendFailures))
	fmt.Fprintf(w, "read: %s compressed, %s decompressed\n",
		humanize.IBytes(uint64(s.Input.Compressed)), humanize.IBytes(uint64(s.Input.Decompressed)))
}
