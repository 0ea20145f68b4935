// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the wikiplace CLI, which extracts
// geographic facts from Wikidata entity dumps into SQLite.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/wikiplace/internal/secrets"
	"github.com/pdiddy/wikiplace/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds values loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the wikiplace CLI.
var rootCmd = &cobra.Command{
	Use:   "wikiplace",
	Short: "Extract geographic facts from Wikidata dumps",
	Long: `wikiplace streams a Wikidata entity dump, classifies every entity
against class sets fetched from the Wikidata query service, and stores
countries, administrative divisions, settlements, languages and labels
in a SQLite database.

Run "wikiplace classes" once to build the class cache, then
"wikiplace ingest" to process a dump.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/", newLogger(viper.GetString("log_level")))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./wikiplace.yaml or ~/.config/wikiplace/wikiplace.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))

	setDefaults(types.DefaultConfig())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("wikiplace")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "wikiplace"))
		}
	}

	viper.SetEnvPrefix("WIKIPLACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so that environment variables
// are seen by Unmarshal.
func setDefaults(d types.Config) {
	defaults := map[string]any{
		"source.locator":     d.Source.Locator,
		"source.timeout":     d.Source.Timeout,
		"source.user_agent":  d.Source.UserAgent,
		"source.max_retries": d.Source.MaxRetries,

		"classes.endpoint":    d.Classes.Endpoint,
		"classes.timeout":     d.Classes.Timeout,
		"classes.user_agent":  d.Classes.UserAgent,
		"classes.max_retries": d.Classes.MaxRetries,
		"classes.cache_path":  d.Classes.CachePath,
		"classes.cache_ttl":   d.Classes.CacheTTL,

		"classes.roots.territorial_entities":    d.Classes.Roots.TerritorialEntities,
		"classes.roots.human_settlements":       d.Classes.Roots.HumanSettlements,
		"classes.roots.excluded":                d.Classes.Roots.Excluded,
		"classes.roots.excluded_settlements":    d.Classes.Roots.ExcludedSettlements,
		"classes.roots.second_level_admin_divs": d.Classes.Roots.SecondLevelAdminDivs,
		"classes.roots.languages":               d.Classes.Roots.Languages,

		"pipeline.workers":           d.Pipeline.Workers,
		"pipeline.fact_buffer":       d.Pipeline.FactBuffer,
		"pipeline.progress_interval": d.Pipeline.ProgressInterval,

		"store.path":       d.Store.Path,
		"store.batch_size": d.Store.BatchSize,

		"log_level":    d.LogLevel,
		"metrics_addr": d.MetricsAddr,
	}
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

// loadConfig decodes the effective configuration and applies secrets.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.Source.UserAgent = secrets.UserAgent(cfg.Source.UserAgent, loadedSecrets)
	cfg.Classes.UserAgent = secrets.UserAgent(cfg.Classes.UserAgent, loadedSecrets)
	return cfg, nil
}

// newLogger returns a text logger on stderr at the named level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
