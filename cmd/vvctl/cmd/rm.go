package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete files and their records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, func(e *env) error {
				for _, p := range args {
					if err := e.lib.DeleteFile(p); err != nil {
						return fmt.Errorf("%s: %w", p, err)
					}
					if !opts.json {
						fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", p)
					}
				}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), map[string][]string{"removed": args})
				}
				return nil
			})
		},
	}
}
