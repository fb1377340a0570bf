package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"cinestream/internal/catalog"
	"cinestream/internal/media"
	"cinestream/internal/ui"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <catalog-id>",
	Short: "List related titles for an item",
	Args:  cobra.ExactArgs(1),
	RunE:  recommendRun,
}

func recommendRun(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("catalog id must be numeric, got %q", args[0])
	}

	items, err := catalog.New(cfg.CatalogURL, cfg.CatalogKey).
		Recommendations(cmd.Context(), media.ParseType(flagType), id)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no recommendations")
		return nil
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if flagInteractive {
		item, err := ui.SelectItem("Related", items)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\n", item.ID, item.DisplayTitle())
		return nil
	}

	for _, it := range items {
		fmt.Printf("%d\t%s\n", it.ID, it.DisplayTitle())
	}
	return nil
}
