package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/lane/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean caches and stored results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tools, _ := cmd.Flags().GetBool("tools")
			results, _ := cmd.Flags().GetBool("results")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{}

			switch {
			case all:
				opts.Cache = true
				opts.Tools = true
				opts.Results = true
			case tools:
				opts.Tools = true
			case results:
				opts.Results = true
			default:
				// Default behavior: clean the step cache
				opts.Cache = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolP("tools", "t", false, "Clean toolchain environment caches")
	cmd.Flags().BoolP("results", "r", false, "Clean stored run results")
	cmd.Flags().BoolP("all", "a", false, "Clean everything (step cache, environments, and results)")

	return cmd
}
