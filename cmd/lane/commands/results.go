package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results [jobs...]",
		Short: "Show stored results of previous runs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := c.app.Results(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				_, _ = fmt.Fprintln(out, "no stored results")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "INSTANCE\tSTATUS\tSTEPS\tCACHED\tWHEN")
			for _, record := range records {
				cached := 0
				for _, step := range record.Steps {
					if step.Cached {
						cached++
					}
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					record.Instance,
					record.Status,
					len(record.Steps),
					cached,
					record.Timestamp.Format("2006-01-02 15:04:05"),
				)
			}
			return w.Flush()
		},
	}
}
