package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxi/config"
)

var fareCmd = &cobra.Command{
	Use:   "fare <km>",
	Short: "Quote the fare for a distance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := strconv.ParseFloat(args[0], 64)
		if err != nil || km < 0 {
			return fmt.Errorf("invalid distance %q", args[0])
		}
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.2f\n", cfg.Tariff.Price(km))
		return err
	},
}

func init() {
	rootCmd.AddCommand(fareCmd)
}
