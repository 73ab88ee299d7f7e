package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"visionvault/internal/indexer"
)

func newReindexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Sweep the tree and rebuild the root store",
		Long: `Walk every directory, add untagged records for files that have none,
prune records of removed files and rewrite the root store from the
directory stores. Running it twice without changes leaves every store
byte-identical.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(opts, func(e *env) error {
				res, err := e.idx.Reinitialize(cmd.Context(), indexer.TriggerManual)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(),
					"Swept %d directories: %d records, %d created, %d pruned, %d errors (%v)\n",
					res.Directories, res.Records, res.Created, res.Pruned, res.Errors, res.Duration.Round(time.Millisecond))
				if err == nil && res.Preserved > 0 {
					_, err = fmt.Fprintf(cmd.OutOrStdout(),
						"Kept %d records under unreadable directories\n", res.Preserved)
				}
				return err
			})
		},
	}
}
