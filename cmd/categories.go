package cmd

import (
	"github.com/josephgoksu/concierge/internal/catalog"
	"github.com/josephgoksu/concierge/internal/ui"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"cats"},
	Short:   "List request categories",
	Args:    cobra.NoArgs,
	RunE:    runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, args []string) error {
	cat, err := openCatalog(cmd.Context(), current)
	if err != nil {
		return err
	}
	defer cat.Stop()

	if isJSON() {
		primary, secondary := cat.Rows()
		return printJSON(cmd.OutOrStdout(), map[string][]catalog.Category{
			"primary":   resolveIDs(cat, primary),
			"secondary": resolveIDs(cat, secondary),
		})
	}
	ui.RenderCategories(cmd.OutOrStdout(), cat)
	return nil
}

func resolveIDs(cat catalog.Lookup, ids []string) []catalog.Category {
	out := make([]catalog.Category, 0, len(ids))
	for _, id := range ids {
		if c, ok := cat.Category(id); ok {
			out = append(out, c)
		}
	}
	return out
}
