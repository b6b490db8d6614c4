package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <client>",
		Short: "List cached entries for a client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, _, err := ensureNamespace(cmd, args[0])
			if err != nil {
				return err
			}
			entries, err := ns.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				cmd.Println("no cached entries")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tCREATED\tAGE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					e.Key,
					e.CreatedAt.Format(time.RFC3339),
					humanize.Time(e.CreatedAt))
			}
			return w.Flush()
		},
	}
}
