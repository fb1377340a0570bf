package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <catalog-id> [title]",
	Short: "Resolve stream links without playing",
	Args:  cobra.MinimumNArgs(1),
	RunE:  resolveRun,
}

func resolveRun(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args)
	if err != nil {
		return err
	}

	store, streamCache, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := newResolver(streamCache).Resolve(cmd.Context(), req)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("provider: %s\n", res.Provider)
	for _, link := range res.Links {
		fmt.Printf("%-8s %s\n", link.Quality, link.URL)
	}
	for _, sub := range res.Subtitles {
		fmt.Printf("sub %-4s %s\n", sub.Language, sub.URL)
	}
	return nil
}
