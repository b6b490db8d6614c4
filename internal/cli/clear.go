package cli

import (
	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/config"
)

func newClearCmd() *cobra.Command {
	var maxAge string

	cmd := &cobra.Command{
		Use:   "clear <client>",
		Short: "Delete entries older than the age threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, cfg, err := ensureNamespace(cmd, args[0])
			if err != nil {
				return err
			}

			threshold := cfg.ResolvedMaxAge()
			if maxAge != "" {
				threshold, err = config.ParseMaxAge(maxAge)
				if err != nil {
					return err
				}
			}

			deleted, err := ns.Clear(threshold)
			if err != nil {
				return err
			}
			for _, key := range deleted {
				cmd.Println(key)
			}
			logger.Info().Int("deleted", len(deleted)).Str("client", args[0]).Msg("cache swept")
			return nil
		},
	}
	cmd.Flags().StringVar(&maxAge, "max-age", "", `age threshold, e.g. "24h" or seconds (default from config)`)
	return cmd
}
