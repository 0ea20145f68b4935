package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pdiddy/wikiplace/internal/store"
)

var nearCmd = &cobra.Command{
	Use:   "near",
	Short: "List stored cities near a coordinate",
	Long: `Near looks up cities in the S2 cell containing the coordinate and the
cells around it (roughly a 20 km neighbourhood) and lists them by
distance.`,
	RunE: runNear,
}

func init() {
	nearCmd.Flags().Float64("lat", 0, "latitude in degrees")
	nearCmd.Flags().Float64("lon", 0, "longitude in degrees")
	nearCmd.Flags().Int("limit", 10, "maximum number of cities")
	nearCmd.Flags().String("lang", "en", "label language")
	nearCmd.Flags().Bool("json", false, "output as JSON")
	nearCmd.MarkFlagRequired("lat")
	nearCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(nearCmd)
}

func runNear(cmd *cobra.Command, args []string) error {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	limit, _ := cmd.Flags().GetInt("limit")
	lang, _ := cmd.Flags().GetString("lang")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	cities, err := st.Near(cmd.Context(), lat, lon, limit, lang)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cities)
	}
	if len(cities) == 0 {
		fmt.Fprintln(w, "No cities found.")
		return nil
	}

	fmt.Fprintf(w, "%-12s  %-30s  %-10s  %12s  %10s\n", "ID", "Label", "Country", "Population", "km")
	fmt.Fprintln(w, strings.Repeat("-", 82))
	for _, c := range cities {
		label := truncate(c.Label, 30)
		pop := "-"
		if c.Population != nil {
			pop = fmt.Sprint(*c.Population)
		}
		fmt.Fprintf(w, "%-12s  %-30s  %-10s  %12s  %10.3f\n", c.ID, label, c.CountryID, pop, c.DistanceKm)
	}
	return nil
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
