package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cinestream/internal/resolver"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers in fallback order",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range resolver.Providers() {
			fmt.Printf("%-14s %s\n", p.ID, p.Name)
		}
	},
}
