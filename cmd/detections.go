package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"camtrap-cli/internal/render"
	"camtrap-cli/pkg/models"
)

var detectionsAll bool

var detectionsCmd = &cobra.Command{
	Use:   "detections",
	Short: "Browse detection records",
	Long:  `List detection records, the latest captures and the species seen so far.`,
}

var detectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detections, newest first",
	Example: `  camtrap-cli detections list --species jaguar --start 2024-05-01
  camtrap-cli detections list --since 72h`,
	Run: func(cmd *cobra.Command, args []string) {
		api, _ := setupClient()

		filter, err := buildFilter()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		var records []models.Detection
		if detectionsAll {
			records, err = api.GetAllDetections(context.Background())
		} else {
			records, err = api.GetDetections(context.Background(), filter)
		}
		if err != nil {
			fail("fetching detections", err)
		}

		if jsonOutput {
			printJSON(records)
			return
		}

		table := render.NewTable()
		table.Render(&models.Snapshot{Detections: records, FetchedAt: time.Now()})
		if err := table.Draw(os.Stdout); err != nil {
			fail("drawing detections", err)
		}
	},
}

var detectionsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the five most recent detections",
	Run: func(cmd *cobra.Command, args []string) {
		api, settings := setupClient()

		records, err := api.GetLatest(context.Background())
		if err != nil {
			fail("fetching latest detections", err)
		}

		if jsonOutput {
			printJSON(records)
			return
		}

		ticker := render.NewTicker(settings.TickerSize)
		ticker.RenderLatest(records)
		if err := ticker.Draw(os.Stdout); err != nil {
			fail("drawing detections", err)
		}
	},
}

var detectionsSpeciesCmd = &cobra.Command{
	Use:   "species",
	Short: "List species with their detection counts",
	Run: func(cmd *cobra.Command, args []string) {
		api, _ := setupClient()
		ctx := context.Background()

		species, err := api.GetSpecies(ctx)
		if err != nil {
			fail("fetching species", err)
		}
		counts, err := api.GetSpeciesCounts(ctx)
		if err != nil {
			fail("fetching species counts", err)
		}

		// Species with records but missing from the distinct list still show up
		for id := range counts {
			if !slices.Contains(species, id) {
				species = append(species, id)
			}
		}
		slices.Sort(species)

		if jsonOutput {
			printJSON(counts)
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSPECIES\tCOLOR\tDETECTIONS")
		fmt.Fprintln(w, "--\t-------\t-----\t----------")
		for _, id := range species {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", id, render.SpeciesLabel(id), render.SpeciesColor(id), counts[id])
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(detectionsCmd)
	detectionsCmd.AddCommand(detectionsListCmd)
	detectionsCmd.AddCommand(detectionsLatestCmd)
	detectionsCmd.AddCommand(detectionsSpeciesCmd)

	detectionsListCmd.Flags().StringVar(&filterStart, "start", "", "First day, YYYY-MM-DD")
	detectionsListCmd.Flags().StringVar(&filterEnd, "end", "", "Last day, YYYY-MM-DD")
	detectionsListCmd.Flags().StringVar(&filterSince, "since", "", "Only the last duration (e.g. 24h), overrides --start")
	detectionsListCmd.Flags().StringVar(&filterSpecies, "species", "", "Species id (e.g. jaguar)")
	detectionsListCmd.Flags().BoolVar(&detectionsAll, "all", false, "Every record, ignoring filters")
}
