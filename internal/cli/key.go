package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/fingerprint"
)

func newKeyCmd() *cobra.Command {
	var (
		namespace   string
		rawArgs     []string
		exclude     []string
		noExclude   bool
		noNamespace bool
	)

	cmd := &cobra.Command{
		Use:   "key <function>",
		Short: "Compute the cache key for a call",
		Long: `Compute the fingerprint used as a cache key for a function call.
Arguments are given as name=value pairs and hashed in the order supplied;
values are treated as strings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			call := fingerprint.Call{Namespace: namespace, Name: args[0]}
			for _, raw := range rawArgs {
				name, value, found := strings.Cut(raw, "=")
				if !found {
					return fmt.Errorf("argument %q is not name=value", raw)
				}
				call.Args = append(call.Args, fingerprint.Arg{Name: name, Value: value})
			}

			if noExclude && len(exclude) > 0 {
				return errors.New("--no-exclude and --exclude are mutually exclusive")
			}
			opts := fingerprint.Options{
				WithNamespace: !noNamespace,
				Exclude:       exclude,
			}
			if noExclude {
				opts.Exclude = fingerprint.NoExclusions
			}
			key, err := fingerprint.Generate(call, opts)
			if err != nil {
				return err
			}
			cmd.Println(key)
			return nil
		},
	}
	cmd.Flags().StringVar(&namespace, "ns", "", "owning namespace of the function")
	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "call argument as name=value (repeatable, order matters)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "argument names to exclude (default use_cache,cache_lifespan)")
	cmd.Flags().BoolVar(&noExclude, "no-exclude", false, "hash every argument, including cache-control flags")
	cmd.Flags().BoolVar(&noNamespace, "no-ns", false, "omit the namespace prefix")
	return cmd
}
