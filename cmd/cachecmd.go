package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the stream cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached resolution keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, streamCache, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		keys, err := streamCache.Keys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached resolutions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, streamCache, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()
		return streamCache.Clear()
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
