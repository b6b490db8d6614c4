package cli

import (
	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <client> <key>",
		Short: "Remove a single cached entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, _, err := ensureNamespace(cmd, args[0])
			if err != nil {
				return err
			}
			return ns.Remove(args[1])
		},
	}
}
