package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maltedev/snowboard-monitor/internal/database"
	"github.com/maltedev/snowboard-monitor/internal/models"
	"github.com/maltedev/snowboard-monitor/internal/report"
	"github.com/maltedev/snowboard-monitor/internal/storage"
)

var (
	reportInput  *string
	reportFromDB *bool
)

func init() {
	reportInput = reportCmd.Flags().String("input", "", "Catalog file to render (defaults to the stored catalog).")
	reportFromDB = reportCmd.Flags().Bool("from-db", false, "Render the products of the latest run stored in the database.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--input <catalog.json>] [--from-db]",
	Short: "Re-renders the dashboard from a stored catalog without scraping.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var catalog *models.Catalog
		switch {
		case *reportFromDB:
			db, err := a.database(cmd.Context())
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("--from-db needs DB_HOST to be set")
			}

			runID, at, err := db.LastRun(cmd.Context())
			if err != nil {
				return err
			}
			products, err := db.ListProducts(cmd.Context(), database.ListFilter{RunID: runID})
			if err != nil {
				return err
			}
			catalog = models.NewCatalog(a.cfg.Scraper.ListingURL, products)
			catalog.RunID = runID
			catalog.LastUpdated = at
		case *reportInput != "":
			catalog, err = storage.ReadCatalog(*reportInput)
			if err != nil {
				return err
			}
		default:
			catalog, err = a.store.Current()
			if err != nil {
				return err
			}
		}

		path, err := report.WriteFile(a.cfg.Output.WebDir, catalog)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "dashboard with %d products written to %s\n", catalog.ProductCount, path)
		return nil
	},
}
