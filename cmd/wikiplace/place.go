package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/wikiplace/internal/store"
)

var placeCmd = &cobra.Command{
	Use:   "place <id>",
	Short: "Show everything stored about one entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlace,
}

func init() {
	rootCmd.AddCommand(placeCmd)
}

func runPlace(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	p, ok, err := st.Place(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s not found", args[0])
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
