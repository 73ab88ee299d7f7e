package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"visionvault/internal/indexer"
)

// errOutOfSync is returned by verify when the stores disagree.
var errOutOfSync = errors.New("stores are out of sync (run with --repair)")

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare the directory stores with the root store",
		Long: `Report records missing from the root store, stale root store records,
records that differ between the two and files without any record.
With --repair a sweep is run when anything is found and the tree is
verified again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(opts, func(e *env) error {
				report, err := e.idx.Verify(cmd.Context())
				if err != nil {
					return err
				}
				if !report.Clean() && repair {
					if !opts.json {
						printReport(cmd.OutOrStdout(), report)
						fmt.Fprintln(cmd.OutOrStdout(), "Repairing...")
					}
					if _, err := e.idx.Reinitialize(cmd.Context(), indexer.TriggerManual); err != nil {
						return err
					}
					if report, err = e.idx.Verify(cmd.Context()); err != nil {
						return err
					}
				}

				if opts.json {
					if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
						return err
					}
				} else {
					printReport(cmd.OutOrStdout(), report)
				}
				if !report.Clean() {
					return errOutOfSync
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Run a sweep when the stores disagree")
	return cmd
}

func printReport(w io.Writer, r *indexer.Report) {
	fmt.Fprintf(w, "Checked %d directories, %d records\n", r.Directories, r.Records)
	for _, k := range r.Missing {
		fmt.Fprintf(w, "  missing from root store: %s\n", k)
	}
	for _, k := range r.Stale {
		fmt.Fprintf(w, "  stale in root store:     %s\n", k)
	}
	for _, d := range r.Differing {
		fmt.Fprintf(w, "  differs:                 %s (%q vs %q)\n", d.Key, d.Dir.Tags, d.Root.Tags)
	}
	for _, k := range r.Unrecorded {
		fmt.Fprintf(w, "  no record:               %s\n", k)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	if r.Clean() {
		fmt.Fprintln(w, "OK")
	}
}
