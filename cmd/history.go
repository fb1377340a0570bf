package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cinestream/internal/history"
	"cinestream/internal/media"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show watch history",
	RunE:  historyRun,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe watch history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		hist, err := history.Open(store.DB())
		if err != nil {
			return err
		}
		return hist.Clear()
	},
}

func init() {
	historyCmd.AddCommand(historyClearCmd)
}

func historyRun(cmd *cobra.Command, args []string) error {
	store, _, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	hist, err := history.Open(store.DB())
	if err != nil {
		return err
	}
	entries, err := hist.Recent(0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no watch history")
		return nil
	}
	for _, e := range entries {
		label := e.Title
		if e.Type == media.Series {
			label = fmt.Sprintf("%s S%02dE%02d", e.Title, e.Season, e.Episode)
		}
		pct := 0.0
		if e.Duration > 0 {
			pct = e.Position / e.Duration * 100
		}
		fmt.Printf("%-50s %5.1f%% (%.0fs of %.0fs)\n", label, pct, e.Position, e.Duration)
	}
	return nil
}
