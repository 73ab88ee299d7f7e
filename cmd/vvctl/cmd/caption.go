package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCaptionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "caption [dir]",
		Short: "Caption the untagged images of a directory",
		Long: `Add records for files that have none and send every untagged image in
the directory to the captioning service. Needs captioner.endpoint in the
config or VISIONVAULT_CAPTIONER_ENDPOINT.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return withEnv(opts, func(e *env) error {
				if e.cfg.Captioner.Endpoint == "" {
					return errors.New("captioning is not configured")
				}
				summary, err := e.lib.UpdateUntagged(cmd.Context(), dir)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), summary)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d added, %d captioned, %d failed\n",
					summary.Added, summary.Captioned, summary.Failed)
				return err
			})
		},
	}
}
