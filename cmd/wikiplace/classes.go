package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/wikiplace/internal/classes"
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "Build or show the class index",
	Long: `Classes loads the class index used to classify entities. Each set is
the transitive subclass closure of its configured root classes, fetched
from the Wikidata query service and cached on disk. A fresh cache is
reused unless --refresh is given.`,
	RunE: runClasses,
}

func init() {
	classesCmd.Flags().Bool("refresh", false, "fetch from the query service even if the cache is fresh")
	classesCmd.Flags().Bool("json", false, "output set sizes as JSON")
	rootCmd.AddCommand(classesCmd)
}

func runClasses(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	refresh, _ := cmd.Flags().GetBool("refresh")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx, err := classes.Load(ctx, &http.Client{Timeout: cfg.Classes.Timeout}, cfg.Classes, refresh, newLogger(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("building class index: %w", err)
	}

	w := cmd.OutOrStdout()
	if jsonOutput {
		sizes := map[string]int{}
		for _, s := range idx.Sets() {
			sizes[s.Name] = len(s.Set)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sizes)
	}

	for _, s := range idx.Sets() {
		fmt.Fprintf(w, "%-24s %8d\n", s.Name, len(s.Set))
	}
	return nil
}
