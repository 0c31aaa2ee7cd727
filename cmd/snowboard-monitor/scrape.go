package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maltedev/snowboard-monitor/internal/monitor"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Runs one scrape and writes the catalog, exports and dashboard.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		m, err := a.monitor(cmd.Context())
		if err != nil {
			return err
		}

		summary, err := m.RunOnce(cmd.Context())
		if errors.Is(err, monitor.ErrNoProducts) {
			fmt.Fprintln(cmd.OutOrStdout(), "no products found, previous catalog kept")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d products from %d brands on %d pages (%s)\n",
			summary.Products, summary.Brands, summary.Pages, summary.StopReason)
		if summary.ReportPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "dashboard: %s\n", summary.ReportPath)
		}
		return nil
	},
}
