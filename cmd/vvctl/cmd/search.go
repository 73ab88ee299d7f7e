package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search paths, tags and descriptions",
		Long: `Search the root store for records whose path, tags or description
contain the query, ignoring case.

Examples:
  vvctl search beach
  vvctl search "red car" --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(opts, func(e *env) error {
				matches, err := e.lib.Search(strings.Join(args, " "))
				if err != nil {
					return err
				}
				if limit > 0 && len(matches) > limit {
					matches = matches[:limit]
				}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), matches)
				}
				if len(matches) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "No matches")
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, r := range matches {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Key, orDash(r.Tags), orDash(r.Description))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (0 for all)")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
