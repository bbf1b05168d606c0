package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/lane/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [jobs...]",
		Short: "Run specified jobs and their needs (use \"all\" for every job)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			noCache, _ := cmd.Flags().GetBool("no-cache")
			watch, _ := cmd.Flags().GetBool("watch")
			parallelism, _ := cmd.Flags().GetInt("parallelism")

			return c.app.Run(cmd.Context(), args, app.RunOptions{
				NoCache:     noCache,
				Watch:       watch,
				Parallelism: parallelism,
			})
		},
	}
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass step caches and force execution")
	cmd.Flags().BoolP("watch", "w", false, "Rerun the selected jobs when files change")
	cmd.Flags().IntP("parallelism", "p", 0, "Maximum concurrently running jobs (0 = one per CPU)")
	return cmd
}
