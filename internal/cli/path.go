package cli

import (
	"github.com/spf13/cobra"
)

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <client>",
		Short: "Print the on-disk location of a client's cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, _, err := ensureNamespace(cmd, args[0])
			if err != nil {
				return err
			}
			cmd.Println(ns.Path())
			return nil
		},
	}
}
