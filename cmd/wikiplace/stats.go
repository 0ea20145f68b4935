package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/wikiplace/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts and recent ingest runs",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Int("runs", 5, "number of recent runs to show")
	statsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	counts, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("runs")
	runs, err := st.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Tables []store.TableCount `json:"tables"`
			Runs   []store.Run        `json:"runs"`
		}{counts, runs})
	}

	for _, c := range counts {
		fmt.Fprintf(w, "%-28s %12d\n", c.Table, c.Rows)
	}
	if len(runs) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n%-36s  %-16s  %-20s  %12s  %8s\n", "Run", "State", "Started", "Facts", "Errors")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-16s  %-20s  %12d  %8d\n",
			r.ID, r.State, r.StartedAt.Local().Format(time.DateTime), r.Facts, r.RecordErrors)
	}
	return nil
}
