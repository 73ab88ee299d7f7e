package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory with its tags",
		Long: `List the folders and files of a directory relative to the media root,
folders first, each ordered by name ignoring case. Listing never writes
to the stores; files without a record show as untagged.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return withEnv(opts, func(e *env) error {
				listing, err := e.scanner.GetDirectory(path)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), listing)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, item := range listing.Items {
					if item.IsFolder() {
						fmt.Fprintf(tw, "%s/\t\t\n", item.Name)
						continue
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", item.Name, item.Status, orDash(item.Tags))
				}
				return tw.Flush()
			})
		},
	}
}
