package cmd

import (
	"strings"

	"github.com/josephgoksu/concierge/internal/airport"
	"github.com/josephgoksu/concierge/internal/ui"
	"github.com/spf13/cobra"
)

var airportsLimit int

var airportsCmd = &cobra.Command{
	Use:   "airports [query]",
	Short: "Search the airport directory",
	Long: `Search airports by IATA code, city or name. Typos are tolerated.

Examples:
  concierge airports lon
  concierge airports "charles de gaule"`,
	RunE: runAirports,
}

func init() {
	airportsCmd.Flags().IntVarP(&airportsLimit, "limit", "n", 10, "maximum results")
	rootCmd.AddCommand(airportsCmd)
}

func runAirports(cmd *cobra.Command, args []string) error {
	dir := airport.Builtin()

	var found []airport.Airport
	if q := strings.Join(args, " "); q != "" {
		found = dir.Search(q, airportsLimit)
	} else {
		found = dir.All()
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), found)
	}
	ui.RenderAirports(cmd.OutOrStdout(), found)
	return nil
}
